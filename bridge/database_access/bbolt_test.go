package databaseaccess

import (
	"math/big"
	"path"
	"strings"
	"testing"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/stretchr/testify/require"
)

func newTestDeposit(txHash string, amount uint64) core.DepositEvent {
	return core.DepositEvent{
		TxHash:           txHash,
		SenderAddress:    "addr_test1sender",
		RecipientAddress: "addr_test1watched",
		Amount:           common.NewBigAmount(amount),
		AssetType:        "ADA",
		BlockSlot:        100,
		BlockHash:        "0b",
		OutputIndex:      0,
		Metadata:         map[string]string{"674": "deposit"},
		Timestamp:        1717171717000,
	}
}

func TestBBoltDatabase(t *testing.T) {
	newDB := func(t *testing.T) core.Database {
		t.Helper()

		db, err := NewDatabase(path.Join(t.TempDir(), "bridge.db"))
		require.NoError(t, err)

		t.Cleanup(func() { _ = db.Close() })

		return db
	}

	t.Run("fresh db returns empty state with genesis watermark", func(t *testing.T) {
		db := newDB(t)

		state, err := db.GetBridgeState()
		require.NoError(t, err)
		require.Empty(t, state.ProcessedDeposits)
		require.Empty(t, state.PendingMirrors)
		require.Equal(t, core.GenesisWatermark(), state.Watermark)
	})

	t.Run("add and load pending mirror", func(t *testing.T) {
		db := newDB(t)
		txHash := strings.Repeat("aa", 32)

		pm := core.PendingMirror{
			DepositTxHash: txHash,
			Deposit:       newTestDeposit(txHash, 5_000_000),
		}

		require.NoError(t, db.AddPendingMirror(pm))

		loaded, err := db.GetPendingMirror(txHash)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		require.Equal(t, pm, *loaded)

		all, err := db.GetPendingMirrors()
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("add pending mirror is an upsert", func(t *testing.T) {
		db := newDB(t)
		txHash := strings.Repeat("bb", 32)

		pm := core.PendingMirror{DepositTxHash: txHash, Deposit: newTestDeposit(txHash, 5_000_000)}

		require.NoError(t, db.AddPendingMirror(pm))
		require.NoError(t, db.AddPendingMirror(pm))

		all, err := db.GetPendingMirrors()
		require.NoError(t, err)
		require.Len(t, all, 1)
	})

	t.Run("update pending mirror retry metadata", func(t *testing.T) {
		db := newDB(t)
		txHash := strings.Repeat("cc", 32)

		pm := core.PendingMirror{DepositTxHash: txHash, Deposit: newTestDeposit(txHash, 5_000_000)}
		require.NoError(t, db.AddPendingMirror(pm))

		require.NoError(t, db.UpdatePendingMirror(txHash, 2, "submit failed"))

		loaded, err := db.GetPendingMirror(txHash)
		require.NoError(t, err)
		require.Equal(t, uint32(2), loaded.RetryCount)
		require.Equal(t, "submit failed", loaded.ErrorMessage)
		require.NotZero(t, loaded.LastRetryAt)
	})

	t.Run("update missing pending mirror reports not found", func(t *testing.T) {
		db := newDB(t)

		err := db.UpdatePendingMirror("unknown", 1, "err")
		require.ErrorIs(t, err, core.ErrPendingMirrorNotFound)
	})

	t.Run("move pending to processed is atomic and exclusive", func(t *testing.T) {
		db := newDB(t)
		txHash := strings.Repeat("dd", 32)

		pm := core.PendingMirror{DepositTxHash: txHash, Deposit: newTestDeposit(txHash, 5_000_000)}
		require.NoError(t, db.AddPendingMirror(pm))

		pd := core.ProcessedDeposit{
			DepositTxHash: txHash,
			ProcessedAt:   1717171717000,
			MirrorTxHash:  strings.Repeat("bb", 32),
			Status:        core.MirrorStatusConfirmed,
		}
		require.NoError(t, db.MovePendingToProcessed(txHash, pd))

		state, err := db.GetBridgeState()
		require.NoError(t, err)
		require.Empty(t, state.PendingMirrors)
		require.Len(t, state.ProcessedDeposits, 1)
		require.Equal(t, pd, state.ProcessedDeposits[txHash])
	})

	t.Run("get processed deposit by hash", func(t *testing.T) {
		db := newDB(t)
		txHash := strings.Repeat("ab", 32)

		pd := core.ProcessedDeposit{
			DepositTxHash: txHash,
			ProcessedAt:   1717171717000,
			MirrorTxHash:  strings.Repeat("cd", 32),
			Status:        core.MirrorStatusConfirmed,
		}
		require.NoError(t, db.AddProcessedDeposit(pd))

		loaded, err := db.GetProcessedDeposit(txHash)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		require.Equal(t, pd, *loaded)

		missing, err := db.GetProcessedDeposit("unknown")
		require.NoError(t, err)
		require.Nil(t, missing)
	})

	t.Run("watermark round trip", func(t *testing.T) {
		db := newDB(t)

		wm := core.Watermark{LastProcessedSlot: 123456, LastProcessedBlockHash: "0bdeadbeef"}
		require.NoError(t, db.SaveWatermark(wm))

		loaded, err := db.GetWatermark()
		require.NoError(t, err)
		require.Equal(t, wm, loaded)
	})

	t.Run("state survives reopen", func(t *testing.T) {
		dbPath := path.Join(t.TempDir(), "bridge.db")
		txHash := strings.Repeat("ee", 32)

		db, err := NewDatabase(dbPath)
		require.NoError(t, err)

		pm := core.PendingMirror{DepositTxHash: txHash, Deposit: newTestDeposit(txHash, 7_500_000)}
		require.NoError(t, db.AddPendingMirror(pm))
		require.NoError(t, db.SaveWatermark(core.Watermark{LastProcessedSlot: 42, LastProcessedBlockHash: "0b42"}))
		require.NoError(t, db.Close())

		db, err = NewDatabase(dbPath)
		require.NoError(t, err)

		defer db.Close()

		state, err := db.GetBridgeState()
		require.NoError(t, err)
		require.Equal(t, pm, state.PendingMirrors[txHash])
		require.Equal(t, uint64(42), state.Watermark.LastProcessedSlot)
	})

	t.Run("big amounts survive the blob column", func(t *testing.T) {
		db := newDB(t)
		txHash := strings.Repeat("ff", 32)

		huge := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

		deposit := newTestDeposit(txHash, 0)
		deposit.Amount = common.NewBigAmountFromBig(huge)

		require.NoError(t, db.AddPendingMirror(core.PendingMirror{DepositTxHash: txHash, Deposit: deposit}))

		loaded, err := db.GetPendingMirror(txHash)
		require.NoError(t, err)
		require.Equal(t, 0, loaded.Deposit.Amount.Big().Cmp(huge))
	})

	t.Run("cleanup removes only old processed deposits", func(t *testing.T) {
		db := newDB(t)

		old := core.ProcessedDeposit{DepositTxHash: "old", ProcessedAt: 1000, Status: core.MirrorStatusConfirmed}
		recent := core.ProcessedDeposit{DepositTxHash: "recent", ProcessedAt: 2000, Status: core.MirrorStatusConfirmed}

		require.NoError(t, db.AddProcessedDeposit(old))
		require.NoError(t, db.AddProcessedDeposit(recent))

		removed, err := db.RemoveProcessedDepositsBefore(1500)
		require.NoError(t, err)
		require.Equal(t, 1, removed)

		state, err := db.GetBridgeState()
		require.NoError(t, err)
		require.Len(t, state.ProcessedDeposits, 1)
		require.Contains(t, state.ProcessedDeposits, "recent")
	})
}
