package common

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

func IsValidHTTPURL(input string) bool {
	parsed, err := url.ParseRequestURI(input)
	if err != nil {
		return false
	}

	return parsed.Scheme == "http" || parsed.Scheme == "https"
}

// TrimSchema removes the http(s) prefix from an endpoint so it can be used
// as a plain host:port node address.
func TrimSchema(endpoint string) string {
	return strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
}

func SplitString(s string, length int) (res []string) {
	for i := 0; i < len(s); i += length {
		end := i + length
		if end > len(s) {
			end = len(s)
		}

		res = append(res, s[i:end])
	}

	return res
}

func RetryForever(ctx context.Context, interval time.Duration, fn func(context.Context) error) error {
	err := retry.Do(ctx, retry.NewConstant(interval), func(context.Context) error {
		return retry.RetryableError(fn(ctx))
	})

	return err
}
