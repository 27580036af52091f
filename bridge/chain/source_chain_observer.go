package chain

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Ethernal-Tech/cardano-infrastructure/indexer"
	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/hashicorp/go-hclog"
)

const (
	indexerQueueChannelSize = 1024
	indexerRestartDelay     = time.Second * 5
	indexerKeepAlive        = true
	indexerSyncStartTries   = math.MaxInt
)

// WatermarkSetter receives the most recent confirmed source-chain position.
type WatermarkSetter interface {
	SetWatermark(slot uint64, blockHash string)
}

// SourceChainObserverImpl watches the configured deposit addresses and feeds
// extracted deposit events into the deposits receiver. Only applied
// transactions reach the handler; rollbacks are absorbed by the indexer's
// confirmation depth.
type SourceChainObserverImpl struct {
	ctx       context.Context
	indexerDB indexer.Database
	runner    indexer.Service
	syncer    indexer.BlockSyncer
	logger    hclog.Logger
	config    *core.AppConfig
}

var _ core.ChainObserver = (*SourceChainObserverImpl)(nil)

func NewSourceChainObserver(
	ctx context.Context,
	config *core.AppConfig,
	watermark core.Watermark,
	depositsReceiver core.DepositsReceiver,
	watermarkSetter WatermarkSetter,
	indexerDB indexer.Database,
	logger hclog.Logger,
) (*SourceChainObserverImpl, error) {
	if len(config.Source.DepositAddresses) == 0 {
		return nil, fmt.Errorf("no deposit addresses configured")
	}

	indexerConfig, runnerConfig, syncerConfig := loadSyncerConfigs(config, watermark)

	extractor := NewDepositExtractor(
		config.Source.DepositAddresses, config.Bridge.AllowedAssets[0], logger.Named("deposit_extractor"))

	confirmedBlockHandler := func(block *indexer.CardanoBlock, blockTxs []*indexer.Tx) error {
		logger.Debug("Confirmed block handler invoked",
			"block", block.Hash, "slot", block.Slot, "block txs", len(blockTxs))

		// retrieve all unprocessed transactions from the database instead of
		// relying only on blockTxs, to account for any previous errors
		txs, err := indexerDB.GetUnprocessedConfirmedTxs(0)
		if err != nil {
			return err
		}

		events := extractor.Extract(txs)

		if len(events) > 0 {
			if err := depositsReceiver.NewDeposits(events); err != nil {
				return err
			}
		}

		if err := indexerDB.MarkConfirmedTxsProcessed(txs); err != nil {
			return err
		}

		watermarkSetter.SetWatermark(block.Slot, block.Hash.String())

		return nil
	}

	blockIndexer := indexer.NewBlockIndexer(
		indexerConfig, confirmedBlockHandler, indexerDB, logger.Named("block_indexer"))
	runner := indexer.NewBlockIndexerRunner(blockIndexer, runnerConfig, logger.Named("block_runner"))
	syncer := indexer.NewBlockSyncer(syncerConfig, runner, logger.Named("block_syncer"))

	return &SourceChainObserverImpl{
		ctx:       ctx,
		indexerDB: indexerDB,
		syncer:    syncer,
		runner:    runner,
		logger:    logger,
		config:    config,
	}, nil
}

func (so *SourceChainObserverImpl) Start() error {
	bp, err := so.indexerDB.GetLatestBlockPoint()
	if err == nil && bp != nil {
		so.logger.Debug("Started...", "hash", bp.BlockHash, "slot", bp.BlockSlot)
	}

	go func() {
		_ = common.RetryForever(so.ctx, indexerRestartDelay, func(context.Context) (err error) {
			err = so.syncer.Sync()
			if err != nil {
				so.logger.Error("Failed to start syncer. Retrying...", "err", err)
			}

			return err
		})
	}()

	return nil
}

func (so *SourceChainObserverImpl) Dispose() error {
	if err := so.runner.Close(); err != nil {
		return fmt.Errorf("runner close failed. err: %w", err)
	}

	if err := so.syncer.Close(); err != nil {
		return fmt.Errorf("syncer close failed. err: %w", err)
	}

	return nil
}

func (so *SourceChainObserverImpl) ErrorCh() <-chan error {
	return so.syncer.ErrorCh()
}

func loadSyncerConfigs(
	config *core.AppConfig, watermark core.Watermark,
) (*indexer.BlockIndexerConfig, *indexer.BlockIndexerRunnerConfig, *indexer.BlockSyncerConfig) {
	startSlot := config.Source.StartSlot
	startHash := config.Source.StartBlockHash

	// the watermark is only a restart hint; use it when it is ahead of the
	// configured start point
	if watermark.LastProcessedSlot > startSlot && watermark.LastProcessedBlockHash != core.GenesisBlockHash {
		startSlot = watermark.LastProcessedSlot
		startHash = watermark.LastProcessedBlockHash
	}

	indexerConfig := &indexer.BlockIndexerConfig{
		StartingBlockPoint: &indexer.BlockPoint{
			BlockSlot: startSlot,
			BlockHash: indexer.NewHashFromHexString(startHash),
		},
		AddressCheck:           indexer.AddressCheckAll,
		ConfirmationBlockCount: config.Source.ConfirmationBlockCount,
		AddressesOfInterest:    config.Source.DepositAddresses,
	}
	syncerConfig := &indexer.BlockSyncerConfig{
		NetworkMagic:   config.Source.NetworkMagic,
		NodeAddress:    common.TrimSchema(config.Source.UtxoRPCURL),
		RestartOnError: true, // always try to restart on non-fatal errors
		RestartDelay:   config.RetryDelay(),
		KeepAlive:      indexerKeepAlive,
		SyncStartTries: indexerSyncStartTries,
	}
	runnerConfig := &indexer.BlockIndexerRunnerConfig{
		QueueChannelSize: indexerQueueChannelSize,
	}

	return indexerConfig, runnerConfig, syncerConfig
}
