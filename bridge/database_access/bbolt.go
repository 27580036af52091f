package databaseaccess

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"go.etcd.io/bbolt"
)

func nowMilli() int64 {
	return time.Now().UnixMilli()
}

var (
	ProcessedDepositsBucket = []byte("ProcessedDeposits")
	PendingMirrorsBucket    = []byte("PendingMirrors")
	BridgeConfigBucket      = []byte("BridgeConfig")

	lastProcessedSlotKey      = []byte("lastProcessedSlot")
	lastProcessedBlockHashKey = []byte("lastProcessedBlockHash")
)

type BBoltDatabase struct {
	DB *bbolt.DB
}

var _ core.Database = (*BBoltDatabase)(nil)

func (bd *BBoltDatabase) Init(filePath string) error {
	db, err := bbolt.Open(filePath, 0660, nil)
	if err != nil {
		return fmt.Errorf("could not open db: %w", err)
	}

	bd.DB = db

	return db.Update(func(tx *bbolt.Tx) error {
		for _, bn := range [][]byte{ProcessedDepositsBucket, PendingMirrorsBucket, BridgeConfigBucket} {
			_, err := tx.CreateBucketIfNotExists(bn)
			if err != nil {
				return fmt.Errorf("could not bucket: %s, err: %w", string(bn), err)
			}
		}

		return nil
	})
}

func (bd *BBoltDatabase) Close() error {
	return bd.DB.Close()
}

func (bd *BBoltDatabase) AddProcessedDeposit(pd core.ProcessedDeposit) error {
	return bd.DB.Update(func(tx *bbolt.Tx) error {
		return putProcessedDeposit(tx, pd)
	})
}

func (bd *BBoltDatabase) AddPendingMirror(pm core.PendingMirror) error {
	return bd.DB.Update(func(tx *bbolt.Tx) error {
		bytes, err := json.Marshal(pm)
		if err != nil {
			return fmt.Errorf("could not marshal pending mirror: %w", err)
		}

		if err := tx.Bucket(PendingMirrorsBucket).Put(pm.Key(), bytes); err != nil {
			return fmt.Errorf("pending mirror write error: %w", err)
		}

		return nil
	})
}

func (bd *BBoltDatabase) UpdatePendingMirror(
	depositTxHash string, retryCount uint32, errorMessage string,
) error {
	return bd.DB.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(PendingMirrorsBucket)

		data := bucket.Get([]byte(depositTxHash))
		if len(data) == 0 {
			return core.ErrPendingMirrorNotFound
		}

		var pm core.PendingMirror

		if err := json.Unmarshal(data, &pm); err != nil {
			return fmt.Errorf("could not unmarshal pending mirror: %w", err)
		}

		pm.RetryCount = retryCount
		pm.LastRetryAt = nowMilli()
		pm.ErrorMessage = errorMessage

		bytes, err := json.Marshal(pm)
		if err != nil {
			return fmt.Errorf("could not marshal pending mirror: %w", err)
		}

		if err := bucket.Put(pm.Key(), bytes); err != nil {
			return fmt.Errorf("pending mirror write error: %w", err)
		}

		return nil
	})
}

func (bd *BBoltDatabase) RemovePendingMirror(depositTxHash string) error {
	return bd.DB.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(PendingMirrorsBucket).Delete([]byte(depositTxHash))
	})
}

func (bd *BBoltDatabase) MovePendingToProcessed(depositTxHash string, pd core.ProcessedDeposit) error {
	return bd.DB.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(PendingMirrorsBucket).Delete([]byte(depositTxHash)); err != nil {
			return fmt.Errorf("could not remove from pending mirrors: %w", err)
		}

		return putProcessedDeposit(tx, pd)
	})
}

func (bd *BBoltDatabase) GetPendingMirror(depositTxHash string) (*core.PendingMirror, error) {
	var result *core.PendingMirror

	err := bd.DB.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(PendingMirrorsBucket).Get([]byte(depositTxHash))
		if len(data) == 0 {
			return nil
		}

		var pm core.PendingMirror

		if err := json.Unmarshal(data, &pm); err != nil {
			return fmt.Errorf("could not unmarshal pending mirror: %w", err)
		}

		result = &pm

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (bd *BBoltDatabase) GetProcessedDeposit(depositTxHash string) (*core.ProcessedDeposit, error) {
	var result *core.ProcessedDeposit

	err := bd.DB.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(ProcessedDepositsBucket).Get([]byte(depositTxHash))
		if len(data) == 0 {
			return nil
		}

		var pd core.ProcessedDeposit

		if err := json.Unmarshal(data, &pd); err != nil {
			return fmt.Errorf("could not unmarshal processed deposit: %w", err)
		}

		result = &pd

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (bd *BBoltDatabase) GetPendingMirrors() ([]core.PendingMirror, error) {
	var result []core.PendingMirror

	err := bd.DB.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(PendingMirrorsBucket).Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var pm core.PendingMirror

			if err := json.Unmarshal(v, &pm); err != nil {
				return fmt.Errorf("could not unmarshal pending mirror: %w", err)
			}

			result = append(result, pm)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (bd *BBoltDatabase) RemoveProcessedDepositsBefore(timestamp int64) (int, error) {
	removed := 0

	err := bd.DB.Update(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(ProcessedDepositsBucket).Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var pd core.ProcessedDeposit

			if err := json.Unmarshal(v, &pd); err != nil {
				return fmt.Errorf("could not unmarshal processed deposit: %w", err)
			}

			if pd.ProcessedAt < timestamp {
				if err := cursor.Delete(); err != nil {
					return err
				}

				removed++
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

func (bd *BBoltDatabase) GetBridgeState() (*core.BridgeState, error) {
	state := &core.BridgeState{
		ProcessedDeposits: map[string]core.ProcessedDeposit{},
		PendingMirrors:    map[string]core.PendingMirror{},
		Watermark:         core.GenesisWatermark(),
	}

	err := bd.DB.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket(ProcessedDepositsBucket).Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var pd core.ProcessedDeposit

			if err := json.Unmarshal(v, &pd); err != nil {
				return fmt.Errorf("could not unmarshal processed deposit: %w", err)
			}

			state.ProcessedDeposits[pd.DepositTxHash] = pd
		}

		cursor = tx.Bucket(PendingMirrorsBucket).Cursor()

		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var pm core.PendingMirror

			if err := json.Unmarshal(v, &pm); err != nil {
				return fmt.Errorf("could not unmarshal pending mirror: %w", err)
			}

			state.PendingMirrors[pm.DepositTxHash] = pm
		}

		state.Watermark = readWatermark(tx)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return state, nil
}

func (bd *BBoltDatabase) SaveWatermark(w core.Watermark) error {
	return bd.DB.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(BridgeConfigBucket)

		slot := strconv.FormatUint(w.LastProcessedSlot, 10)
		if err := bucket.Put(lastProcessedSlotKey, []byte(slot)); err != nil {
			return fmt.Errorf("watermark slot write error: %w", err)
		}

		if err := bucket.Put(lastProcessedBlockHashKey, []byte(w.LastProcessedBlockHash)); err != nil {
			return fmt.Errorf("watermark block hash write error: %w", err)
		}

		return nil
	})
}

func (bd *BBoltDatabase) GetWatermark() (core.Watermark, error) {
	result := core.GenesisWatermark()

	err := bd.DB.View(func(tx *bbolt.Tx) error {
		result = readWatermark(tx)

		return nil
	})
	if err != nil {
		return core.Watermark{}, err
	}

	return result, nil
}

func putProcessedDeposit(tx *bbolt.Tx, pd core.ProcessedDeposit) error {
	bytes, err := json.Marshal(pd)
	if err != nil {
		return fmt.Errorf("could not marshal processed deposit: %w", err)
	}

	if err := tx.Bucket(ProcessedDepositsBucket).Put(pd.Key(), bytes); err != nil {
		return fmt.Errorf("processed deposit write error: %w", err)
	}

	return nil
}

func readWatermark(tx *bbolt.Tx) core.Watermark {
	result := core.GenesisWatermark()
	bucket := tx.Bucket(BridgeConfigBucket)

	if data := bucket.Get(lastProcessedSlotKey); len(data) > 0 {
		if slot, err := strconv.ParseUint(string(data), 10, 64); err == nil {
			result.LastProcessedSlot = slot
		}
	}

	if data := bucket.Get(lastProcessedBlockHashKey); len(data) > 0 {
		result.LastProcessedBlockHash = string(data)
	}

	return result
}
