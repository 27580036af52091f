package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/hashicorp/go-hclog"
)

const (
	pendingSweepInterval = time.Second * 5
	maxParallelMirrors   = 3
)

// MirrorWorkerImpl consumes pending deposits from the relayer and issues one
// destination transaction per deposit. Outcomes are reported back through
// UpdateMirrorStatus so retries stay data-driven.
type MirrorWorkerImpl struct {
	config  *core.AppConfig
	relayer core.Relayer
	sender  core.MirrorTxSender
	logger  hclog.Logger

	sem      chan struct{}
	errorCh  chan error
	lock     sync.Mutex
	inFlight map[string]bool
}

var _ core.MirrorWorker = (*MirrorWorkerImpl)(nil)

func NewMirrorWorker(
	config *core.AppConfig, relayer core.Relayer, sender core.MirrorTxSender, logger hclog.Logger,
) *MirrorWorkerImpl {
	return &MirrorWorkerImpl{
		config:   config,
		relayer:  relayer,
		sender:   sender,
		logger:   logger,
		sem:      make(chan struct{}, maxParallelMirrors),
		errorCh:  make(chan error, 1),
		inFlight: map[string]bool{},
	}
}

// Start runs the live subscription loop and the periodic pending sweep until
// the context is cancelled.
func (mw *MirrorWorkerImpl) Start(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		mw.runSubscriptionLoop(ctx)
	}()

	go func() {
		defer wg.Done()

		mw.runPendingSweep(ctx)
	}()

	wg.Wait()
}

func (mw *MirrorWorkerImpl) ErrorCh() <-chan error {
	return mw.errorCh
}

func (mw *MirrorWorkerImpl) runSubscriptionLoop(ctx context.Context) {
	subscribeCh := mw.relayer.SubscribeToDeposits()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-subscribeCh:
			if !ok {
				return
			}

			if err := mw.processDeposit(ctx, event); err != nil {
				mw.reportError(err)
			}
		}
	}
}

func (mw *MirrorWorkerImpl) runPendingSweep(ctx context.Context) {
	ticker := time.NewTicker(pendingSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pending, err := mw.relayer.GetPendingDepositsForRetry(mw.config.Security.RetryAttempts)
		if err != nil {
			mw.logger.Error("Failed to get pending deposits for retry", "err", err)

			continue
		}

		var wg sync.WaitGroup

		for _, pm := range pending {
			select {
			case <-ctx.Done():
				wg.Wait()
				return
			case mw.sem <- struct{}{}:
			}

			wg.Add(1)

			go func(event core.DepositEvent) {
				defer func() {
					<-mw.sem

					wg.Done()
				}()

				if err := mw.processDeposit(ctx, event); err != nil {
					mw.reportError(err)
				}
			}(pm.Deposit)
		}

		wg.Wait()
	}
}

// processDeposit builds, signs, submits and confirms the destination
// transaction for one deposit, then reports the outcome to the relayer.
func (mw *MirrorWorkerImpl) processDeposit(ctx context.Context, event core.DepositEvent) error {
	if !mw.markInFlight(event.TxHash) {
		mw.logger.Debug("Deposit already being mirrored", "txHash", event.TxHash)

		return nil
	}

	defer mw.releaseInFlight(event.TxHash)

	mirrorTxHash, err := mw.mirrorDeposit(ctx, event)
	if err != nil {
		found, updateErr := mw.relayer.UpdateMirrorStatus(
			event.TxHash, "", core.MirrorStatusFailed, err.Error())
		if updateErr != nil {
			return fmt.Errorf("failed to record mirror failure for %s: %w", event.TxHash, updateErr)
		}

		if !found {
			mw.logger.Debug("Mirror failure for already processed deposit", "txHash", event.TxHash)

			return nil
		}

		return fmt.Errorf("failed to mirror deposit %s: %w", event.TxHash, err)
	}

	found, err := mw.relayer.UpdateMirrorStatus(event.TxHash, mirrorTxHash, core.MirrorStatusConfirmed, "")
	if err != nil {
		return fmt.Errorf("failed to record mirror confirmation for %s: %w", event.TxHash, err)
	}

	if !found {
		// the pending mirror was concurrently promoted, nothing to do
		mw.logger.Debug("Mirror confirmation for already processed deposit", "txHash", event.TxHash)
	}

	return nil
}

func (mw *MirrorWorkerImpl) mirrorDeposit(ctx context.Context, event core.DepositEvent) (string, error) {
	receiver := event.SenderAddress

	net := event.Amount.SubUint64(mw.config.Bridge.FeeAmount)
	if net.Sign() <= 0 || net.CmpUint64(core.MinMirrorOutputAmount) <= 0 {
		return "", fmt.Errorf("insufficient after fee: %s - %d", event.Amount, mw.config.Bridge.FeeAmount)
	}

	if !net.IsUint64() {
		return "", fmt.Errorf("net amount too large for a single output: %s", net)
	}

	metadata, err := common.MarshalMetadata(
		common.MetadataEncodingTypeJSON,
		common.NewMirrorMetadata(event.TxHash, uint64(time.Now().UnixMilli())))
	if err != nil {
		return "", fmt.Errorf("failed to marshal mirror metadata: %w", err)
	}

	txRaw, txHash, err := mw.sender.CreateMirrorTx(ctx, receiver, net.Uint64(), metadata)
	if err != nil {
		return "", fmt.Errorf("failed to create mirror tx: %w", err)
	}

	mw.logger.Info("Submitting mirror tx",
		"txHash", event.TxHash, "mirrorTxHash", txHash, "receiver", receiver, "amount", net)

	submittedHash, err := mw.sender.SubmitTx(ctx, txRaw, txHash)
	if err != nil {
		return "", fmt.Errorf("failed to submit mirror tx: %w", err)
	}

	if submittedHash != txHash {
		// the ledger's hash is authoritative
		mw.logger.Warn("Submitted tx hash differs from computed hash",
			"computed", txHash, "submitted", submittedHash)

		txHash = submittedHash
	}

	if err := mw.sender.WaitForTx(ctx, txHash); err != nil {
		mw.logger.Warn("Mirror tx confirmation wait failed", "mirrorTxHash", txHash, "err", err)
	}

	return txHash, nil
}

func (mw *MirrorWorkerImpl) markInFlight(txHash string) bool {
	mw.lock.Lock()
	defer mw.lock.Unlock()

	if mw.inFlight[txHash] {
		return false
	}

	mw.inFlight[txHash] = true

	return true
}

func (mw *MirrorWorkerImpl) releaseInFlight(txHash string) {
	mw.lock.Lock()
	defer mw.lock.Unlock()

	delete(mw.inFlight, txHash)
}

func (mw *MirrorWorkerImpl) reportError(err error) {
	select {
	case mw.errorCh <- err:
	default:
	}
}
