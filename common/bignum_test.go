package common

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBigAmountJSON(t *testing.T) {
	t.Run("small amounts stay plain numbers", func(t *testing.T) {
		bytes, err := json.Marshal(NewBigAmount(5_000_000))
		require.NoError(t, err)
		require.Equal(t, "5000000", string(bytes))

		var restored BigAmount

		require.NoError(t, json.Unmarshal(bytes, &restored))
		require.Equal(t, uint64(5_000_000), restored.Uint64())
	})

	t.Run("amounts beyond 53 bits use the sentinel", func(t *testing.T) {
		v := new(big.Int).Lsh(big.NewInt(1), 64) // 2^64

		bytes, err := json.Marshal(NewBigAmountFromBig(v))
		require.NoError(t, err)
		require.Equal(t, `"__BIGINT__18446744073709551616"`, string(bytes))

		var restored BigAmount

		require.NoError(t, json.Unmarshal(bytes, &restored))
		require.Equal(t, 0, restored.Big().Cmp(v))
	})

	t.Run("round trip across the precision range", func(t *testing.T) {
		values := []*big.Int{
			big.NewInt(0),
			big.NewInt(1),
			new(big.Int).SetUint64(maxSafeJSONInteger),
			new(big.Int).SetUint64(maxSafeJSONInteger + 1),
			new(big.Int).SetUint64(^uint64(0)),
			new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)),
		}

		for _, v := range values {
			bytes, err := json.Marshal(NewBigAmountFromBig(v))
			require.NoError(t, err)

			var restored BigAmount

			require.NoError(t, json.Unmarshal(bytes, &restored))
			require.Equal(t, 0, restored.Big().Cmp(v), "value %s", v)
		}
	})

	t.Run("plain string without sentinel is accepted", func(t *testing.T) {
		var restored BigAmount

		require.NoError(t, json.Unmarshal([]byte(`"12345"`), &restored))
		require.Equal(t, uint64(12345), restored.Uint64())
	})

	t.Run("garbage is rejected", func(t *testing.T) {
		var restored BigAmount

		require.Error(t, json.Unmarshal([]byte(`"__BIGINT__xyz"`), &restored))
		require.Error(t, json.Unmarshal([]byte(`{}`), &restored))
	})
}

func TestBigAmountArithmetic(t *testing.T) {
	amount := NewBigAmount(5_000_000)

	net := amount.SubUint64(1_000_000)
	require.Equal(t, uint64(4_000_000), net.Uint64())

	require.Equal(t, 1, net.CmpUint64(1_000_000))
	require.Equal(t, 0, net.CmpUint64(4_000_000))
	require.Equal(t, -1, net.CmpUint64(5_000_000))

	negative := NewBigAmount(100).SubUint64(200)
	require.Equal(t, -1, negative.Sign())
}
