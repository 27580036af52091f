package relayer

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/Ethernal-Tech/vista-bridge/telemetry"
	"github.com/hashicorp/go-hclog"
)

// RelayerImpl is the single publication point for deposits. All store
// mutations are linearized through its lock; every transition is durable
// before it becomes visible to subscribers.
type RelayerImpl struct {
	config *core.AppConfig
	db     core.Database
	logger hclog.Logger

	lock        sync.Mutex
	subscribeCh *common.SafeCh[core.DepositEvent]
	msgCounter  uint64

	watermarkLock sync.Mutex
	watermark     *core.Watermark

	lastMirrorTxHash string
}

var _ core.Relayer = (*RelayerImpl)(nil)

func NewRelayer(
	config *core.AppConfig, db core.Database, logger hclog.Logger,
) *RelayerImpl {
	return &RelayerImpl{
		config:      config,
		db:          db,
		logger:      logger,
		subscribeCh: common.MakeSafeCh[core.DepositEvent](),
	}
}

// Start loads the persisted bridge state and re-emits every surviving
// pending mirror onto the subscriber channel so the mirror worker can
// resume them without waiting for the periodic sweep.
func (r *RelayerImpl) Start(ctx context.Context) error {
	state, err := r.db.GetBridgeState()
	if err != nil {
		return fmt.Errorf("failed to load bridge state: %w", err)
	}

	r.logger.Info("Bridge state loaded",
		"processed", len(state.ProcessedDeposits),
		"pending", len(state.PendingMirrors),
		"slot", state.Watermark.LastProcessedSlot)

	pending := make([]core.PendingMirror, 0, len(state.PendingMirrors))
	for _, pm := range state.PendingMirrors {
		pending = append(pending, pm)
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].DepositTxHash < pending[j].DepositTxHash
	})

	for _, pm := range pending {
		if err := r.subscribeCh.Write(pm.Deposit); err != nil {
			return fmt.Errorf("failed to re-emit pending mirror %s: %w", pm.DepositTxHash, err)
		}

		r.logger.Debug("Re-emitted pending mirror", "txHash", pm.DepositTxHash, "retryCount", pm.RetryCount)
	}

	telemetry.UpdateBridgePendingMirrorsGauge(len(state.PendingMirrors))

	return nil
}

func (r *RelayerImpl) Stop() {
	if err := r.subscribeCh.Close(); err != nil {
		r.logger.Debug("Subscriber channel close", "err", err)
	}
}

// PublishDeposit persists the pending mirror for the deposit and then offers
// it to the subscriber channel. The pending row is an upsert keyed by the
// deposit hash, which makes re-delivery from the source stream idempotent.
// A deposit that already reached its terminal processed state is never
// re-admitted into the pending pool.
func (r *RelayerImpl) PublishDeposit(event core.DepositEvent) (core.PublishResult, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	pd, err := r.db.GetProcessedDeposit(event.TxHash)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to check processed deposits: %w", err)
	}

	if pd != nil {
		r.logger.Debug("Deposit already processed, skipping publish",
			"txHash", event.TxHash, "status", pd.Status)

		return core.PublishResult{Success: false}, nil
	}

	pm := core.PendingMirror{
		DepositTxHash: event.TxHash,
		Deposit:       event,
		RetryCount:    0,
	}

	if err := r.db.AddPendingMirror(pm); err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to persist pending mirror: %w", err)
	}

	r.msgCounter++
	messageID := fmt.Sprintf("%s-%d", event.TxHash, r.msgCounter)

	if err := r.subscribeCh.Write(event); err != nil {
		return core.PublishResult{}, fmt.Errorf("failed to offer deposit to subscriber: %w", err)
	}

	r.logger.Info("Deposit published", "txHash", event.TxHash, "amount", event.Amount, "messageId", messageID)
	telemetry.UpdateBridgeDepositsPublishedCounter(1)

	return core.PublishResult{Success: true, MessageID: messageID}, nil
}

// SubscribeToDeposits returns the single-consumer FIFO of published
// deposits for this boot. The queue is unbounded; the consumer must drain.
func (r *RelayerImpl) SubscribeToDeposits() <-chan core.DepositEvent {
	return r.subscribeCh.ReadCh()
}

// UpdateMirrorStatus applies the outcome of a mirror attempt. It returns
// true when a matching pending mirror existed, even if this call promoted it
// to its terminal state.
func (r *RelayerImpl) UpdateMirrorStatus(
	depositTxHash, mirrorTxHash string, status core.MirrorStatus, errorMessage string,
) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	pm, err := r.db.GetPendingMirror(depositTxHash)
	if err != nil {
		return false, fmt.Errorf("failed to get pending mirror: %w", err)
	}

	if pm == nil {
		r.logger.Debug("Mirror status update for unknown pending mirror", "txHash", depositTxHash, "status", status)

		return false, nil
	}

	switch status {
	case core.MirrorStatusConfirmed:
		pd := core.ProcessedDeposit{
			DepositTxHash: depositTxHash,
			ProcessedAt:   time.Now().UnixMilli(),
			MirrorTxHash:  mirrorTxHash,
			Status:        core.MirrorStatusConfirmed,
		}

		if err := r.db.MovePendingToProcessed(depositTxHash, pd); err != nil {
			return false, fmt.Errorf("failed to move pending mirror to processed: %w", err)
		}

		r.lastMirrorTxHash = mirrorTxHash

		r.logger.Info("Mirror confirmed", "txHash", depositTxHash, "mirrorTxHash", mirrorTxHash)
		telemetry.UpdateBridgeMirrorsConfirmedCounter(1)

		return true, nil

	case core.MirrorStatusFailed:
		newCount := pm.RetryCount + 1

		if newCount >= r.config.Security.RetryAttempts {
			pd := core.ProcessedDeposit{
				DepositTxHash: depositTxHash,
				ProcessedAt:   time.Now().UnixMilli(),
				MirrorTxHash:  mirrorTxHash,
				Status:        core.MirrorStatusFailed,
			}

			if err := r.db.MovePendingToProcessed(depositTxHash, pd); err != nil {
				return false, fmt.Errorf("failed to promote pending mirror to failed: %w", err)
			}

			r.logger.Error("Mirror failed terminally",
				"txHash", depositTxHash, "retryCount", newCount, "err", errorMessage)
			telemetry.UpdateBridgeMirrorsFailedCounter(1)

			return true, nil
		}

		if err := r.db.UpdatePendingMirror(depositTxHash, newCount, errorMessage); err != nil {
			return false, fmt.Errorf("failed to update pending mirror retry state: %w", err)
		}

		r.logger.Warn("Mirror attempt failed",
			"txHash", depositTxHash, "retryCount", newCount, "err", errorMessage)

		return true, nil

	default:
		return false, fmt.Errorf("unsupported mirror status update: %s", status)
	}
}

func (r *RelayerImpl) GetBridgeState() (*core.BridgeState, error) {
	return r.db.GetBridgeState()
}

func (r *RelayerImpl) GetPendingDeposits() ([]core.PendingMirror, error) {
	return r.db.GetPendingMirrors()
}

// GetPendingDepositsForRetry returns pending mirrors whose retry count is
// below the cap and whose last attempt is old enough per the configured
// retry delay.
func (r *RelayerImpl) GetPendingDepositsForRetry(maxRetries uint32) ([]core.PendingMirror, error) {
	pending, err := r.db.GetPendingMirrors()
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-r.config.RetryDelay()).UnixMilli()

	result := make([]core.PendingMirror, 0, len(pending))

	for _, pm := range pending {
		if pm.RetryCount < maxRetries && pm.LastRetryAt <= cutoff {
			result = append(result, pm)
		}
	}

	return result, nil
}

// SetWatermark records the most recent source-chain position in memory. It
// is flushed to the store by PersistState.
func (r *RelayerImpl) SetWatermark(slot uint64, blockHash string) {
	r.watermarkLock.Lock()
	defer r.watermarkLock.Unlock()

	r.watermark = &core.Watermark{LastProcessedSlot: slot, LastProcessedBlockHash: blockHash}
	telemetry.UpdateBridgeLastProcessedSlotGauge(slot)
}

func (r *RelayerImpl) PersistState() error {
	r.watermarkLock.Lock()
	watermark := r.watermark
	r.watermark = nil
	r.watermarkLock.Unlock()

	if watermark == nil {
		return nil
	}

	if err := r.db.SaveWatermark(*watermark); err != nil {
		return fmt.Errorf("failed to save watermark: %w", err)
	}

	r.logger.Debug("Watermark persisted",
		"slot", watermark.LastProcessedSlot, "hash", watermark.LastProcessedBlockHash)

	return nil
}

// CleanupOldDeposits removes terminal processed deposits older than maxAge.
// It is an operator action; the supervisor never calls it.
func (r *RelayerImpl) CleanupOldDeposits(maxAge time.Duration) (int, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	cutoff := time.Now().Add(-maxAge).UnixMilli()

	removed, err := r.db.RemoveProcessedDepositsBefore(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old deposits: %w", err)
	}

	if removed > 0 {
		r.logger.Info("Removed old processed deposits", "count", removed)
	}

	return removed, nil
}

// LastMirrorTxHash returns the hash of the most recently confirmed mirror
// transaction, for the periodic status report.
func (r *RelayerImpl) LastMirrorTxHash() string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.lastMirrorTxHash
}
