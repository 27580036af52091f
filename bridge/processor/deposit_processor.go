package processor

import (
	"fmt"
	"sync"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/telemetry"
	"github.com/hashicorp/go-hclog"
)

// DepositProcessorImpl validates extracted deposit events and hands them to
// the relayer. The in-memory seen set deduplicates re-deliveries within a
// boot; the relayer's upsert deduplicates across boots.
type DepositProcessorImpl struct {
	config  *core.AppConfig
	relayer core.Relayer
	logger  hclog.Logger

	lock    sync.Mutex
	seenTxs map[string]bool
}

var _ core.DepositsReceiver = (*DepositProcessorImpl)(nil)

func NewDepositProcessor(
	config *core.AppConfig, relayer core.Relayer, logger hclog.Logger,
) *DepositProcessorImpl {
	return &DepositProcessorImpl{
		config:  config,
		relayer: relayer,
		logger:  logger,
		seenTxs: map[string]bool{},
	}
}

// NewDeposits processes a batch of extracted deposits. Validation failures
// are dropped with a warning; publish failures roll the event back out of
// the seen set and propagate so the caller can back off and retry.
func (dp *DepositProcessorImpl) NewDeposits(events []core.DepositEvent) error {
	telemetry.UpdateBridgeDepositsReceivedCounter(len(events))

	for _, event := range events {
		if err := dp.processDeposit(event); err != nil {
			return err
		}
	}

	return nil
}

func (dp *DepositProcessorImpl) processDeposit(event core.DepositEvent) error {
	dp.lock.Lock()
	seen := dp.seenTxs[event.TxHash]
	dp.lock.Unlock()

	if seen {
		dp.logger.Debug("Skipping already seen deposit", "txHash", event.TxHash)

		return nil
	}

	if err := dp.validate(event); err != nil {
		// the on-chain deposit is uncorrectable from our side, drop it
		dp.logger.Warn("Dropping invalid deposit", "txHash", event.TxHash, "err", err)
		telemetry.UpdateBridgeDepositsInvalidCounter(1)

		return nil
	}

	dp.lock.Lock()
	dp.seenTxs[event.TxHash] = true
	dp.lock.Unlock()

	if _, err := dp.relayer.PublishDeposit(event); err != nil {
		dp.lock.Lock()
		delete(dp.seenTxs, event.TxHash)
		dp.lock.Unlock()

		return fmt.Errorf("failed to publish deposit %s: %w", event.TxHash, err)
	}

	return nil
}

func (dp *DepositProcessorImpl) validate(event core.DepositEvent) error {
	if event.Amount.Sign() <= 0 {
		return fmt.Errorf("amount must be positive: %s", event.Amount)
	}

	if event.Amount.CmpUint64(dp.config.Bridge.MinDepositAmount) < 0 {
		return fmt.Errorf("amount %s below minimum %d", event.Amount, dp.config.Bridge.MinDepositAmount)
	}

	if event.Amount.CmpUint64(dp.config.Bridge.MaxTransferAmount) > 0 {
		return fmt.Errorf("amount %s above maximum %d", event.Amount, dp.config.Bridge.MaxTransferAmount)
	}

	if !dp.config.IsAssetAllowed(event.AssetType) {
		return fmt.Errorf("asset type not allowed: %s", event.AssetType)
	}

	return nil
}
