package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
)

// BigAmountSentinel tags amounts that exceed 53-bit precision when they are
// serialized to JSON, so that decoding restores the exact value instead of a
// truncated float.
const BigAmountSentinel = "__BIGINT__"

const maxSafeJSONInteger = uint64(1)<<53 - 1

// BigAmount is an arbitrary-precision amount of the smallest ledger unit.
// Only SubUint64 can produce a negative value. The zero value represents the
// amount 0.
type BigAmount struct {
	value big.Int
}

func NewBigAmount(v uint64) BigAmount {
	result := BigAmount{}
	result.value.SetUint64(v)

	return result
}

func NewBigAmountFromBig(v *big.Int) BigAmount {
	result := BigAmount{}
	if v != nil {
		result.value.Set(v)
	}

	return result
}

func NewBigAmountFromString(s string) (BigAmount, error) {
	result := BigAmount{}
	if _, ok := result.value.SetString(s, 10); !ok {
		return BigAmount{}, fmt.Errorf("invalid amount: %s", s)
	}

	return result, nil
}

func (a BigAmount) Big() *big.Int {
	return new(big.Int).Set(&a.value)
}

func (a BigAmount) Uint64() uint64 {
	return a.value.Uint64()
}

func (a BigAmount) IsUint64() bool {
	return a.value.IsUint64()
}

func (a BigAmount) Cmp(b BigAmount) int {
	return a.value.Cmp(&b.value)
}

func (a BigAmount) CmpUint64(v uint64) int {
	return a.value.Cmp(new(big.Int).SetUint64(v))
}

func (a BigAmount) Sign() int {
	return a.value.Sign()
}

// SubUint64 returns a - v. The result is negative if v exceeds a.
func (a BigAmount) SubUint64(v uint64) BigAmount {
	result := BigAmount{}
	result.value.Sub(&a.value, new(big.Int).SetUint64(v))

	return result
}

func (a BigAmount) String() string {
	return a.value.String()
}

func (a BigAmount) MarshalJSON() ([]byte, error) {
	if a.value.IsUint64() && a.value.Uint64() <= maxSafeJSONInteger {
		return []byte(a.value.String()), nil
	}

	return json.Marshal(BigAmountSentinel + a.value.String())
}

func (a *BigAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty amount")
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		s = trimSentinel(s)

		if _, ok := a.value.SetString(s, 10); !ok {
			return fmt.Errorf("invalid amount string: %s", s)
		}

		return nil
	}

	if _, ok := a.value.SetString(string(data), 10); !ok {
		return fmt.Errorf("invalid amount number: %s", data)
	}

	return nil
}

func trimSentinel(s string) string {
	if len(s) >= len(BigAmountSentinel) && s[:len(BigAmountSentinel)] == BigAmountSentinel {
		return s[len(BigAmountSentinel):]
	}

	return s
}
