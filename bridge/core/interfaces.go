package core

import (
	"context"
	"errors"
	"time"
)

// ErrPendingMirrorNotFound is returned by Database.UpdatePendingMirror when
// no row exists for the given deposit.
var ErrPendingMirrorNotFound = errors.New("pending mirror not found")

// Database is the durable store behind the relayer. Every mutation is
// durable before it returns.
type Database interface {
	AddProcessedDeposit(pd ProcessedDeposit) error
	AddPendingMirror(pm PendingMirror) error
	UpdatePendingMirror(depositTxHash string, retryCount uint32, errorMessage string) error
	RemovePendingMirror(depositTxHash string) error
	// MovePendingToProcessed removes the pending mirror and inserts the
	// processed deposit in a single transaction. This is the exactly-once
	// boundary of the bridge.
	MovePendingToProcessed(depositTxHash string, pd ProcessedDeposit) error
	GetPendingMirror(depositTxHash string) (*PendingMirror, error)
	GetPendingMirrors() ([]PendingMirror, error)
	GetProcessedDeposit(depositTxHash string) (*ProcessedDeposit, error)
	RemoveProcessedDepositsBefore(timestamp int64) (int, error)
	GetBridgeState() (*BridgeState, error)
	SaveWatermark(w Watermark) error
	GetWatermark() (Watermark, error)
	Close() error
}

// Relayer is the single publication point for deposits and the sole mutator
// of the durable store.
type Relayer interface {
	Start(ctx context.Context) error
	PublishDeposit(event DepositEvent) (PublishResult, error)
	SubscribeToDeposits() <-chan DepositEvent
	UpdateMirrorStatus(depositTxHash, mirrorTxHash string, status MirrorStatus, errorMessage string) (bool, error)
	GetBridgeState() (*BridgeState, error)
	GetPendingDeposits() ([]PendingMirror, error)
	GetPendingDepositsForRetry(maxRetries uint32) ([]PendingMirror, error)
	SetWatermark(slot uint64, blockHash string)
	PersistState() error
	CleanupOldDeposits(maxAge time.Duration) (int, error)
}

// DepositsReceiver accepts batches of extracted deposit events from the
// source chain observer.
type DepositsReceiver interface {
	NewDeposits(events []DepositEvent) error
}

type ChainObserver interface {
	Start() error
	Dispose() error
	ErrorCh() <-chan error
}

// MirrorTxSender builds, signs, submits and confirms destination
// transactions. CreateMirrorTx returns the transaction hash before
// submission so retries stay idempotent by hash.
type MirrorTxSender interface {
	CreateMirrorTx(ctx context.Context, receiverAddr string, amount uint64, metadata []byte) ([]byte, string, error)
	SubmitTx(ctx context.Context, txRaw []byte, txHash string) (string, error)
	WaitForTx(ctx context.Context, txHash string) error
	Dispose()
}

type MirrorWorker interface {
	Start(ctx context.Context)
	ErrorCh() <-chan error
}
