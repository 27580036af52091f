package bridge

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Ethernal-Tech/cardano-infrastructure/indexer"
	indexerDb "github.com/Ethernal-Tech/cardano-infrastructure/indexer/db"
	cardanowallet "github.com/Ethernal-Tech/cardano-infrastructure/wallet"
	"github.com/Ethernal-Tech/vista-bridge/api"
	"github.com/Ethernal-Tech/vista-bridge/bridge/chain"
	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	databaseaccess "github.com/Ethernal-Tech/vista-bridge/bridge/database_access"
	"github.com/Ethernal-Tech/vista-bridge/bridge/mirror"
	"github.com/Ethernal-Tech/vista-bridge/bridge/processor"
	"github.com/Ethernal-Tech/vista-bridge/bridge/relayer"
	cardanotx "github.com/Ethernal-Tech/vista-bridge/cardano"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/Ethernal-Tech/vista-bridge/telemetry"
	"github.com/hashicorp/go-hclog"
)

const (
	MainComponentName = "bridge"

	statusReportWarmup   = time.Second * 5
	statusReportInterval = time.Second * 30
)

// BridgeImpl boots and supervises the bridge subsystems in dependency
// order: store, relayer, destination sender, mirror worker, source observer.
type BridgeImpl struct {
	ctx       context.Context
	cancelCtx context.CancelFunc

	appConfig *core.AppConfig
	db        core.Database
	indexerDB indexer.Database
	relayer   *relayer.RelayerImpl
	processor *processor.DepositProcessorImpl
	observer  core.ChainObserver
	sender    core.MirrorTxSender
	worker    core.MirrorWorker
	api       *api.APIImpl
	telemetry *telemetry.Telemetry
	logger    hclog.Logger

	errorCh chan error
}

func NewBridge(appConfig *core.AppConfig, logger hclog.Logger) (*BridgeImpl, error) {
	ctx, cancelCtx := context.WithCancel(context.Background())

	b, err := newBridge(ctx, appConfig, logger)
	if err != nil {
		cancelCtx()

		return nil, err
	}

	b.cancelCtx = cancelCtx

	return b, nil
}

func newBridge(ctx context.Context, appConfig *core.AppConfig, logger hclog.Logger) (*BridgeImpl, error) {
	if err := common.CreateDirectoryIfNotExists(appConfig.Settings.DbsPath, 0770); err != nil {
		return nil, fmt.Errorf("failed to create directory for bridge database: %w", err)
	}

	db, err := databaseaccess.NewDatabase(path.Join(appConfig.Settings.DbsPath, MainComponentName+".db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open bridge database: %w", err)
	}

	indexerDB, err := indexerDb.NewDatabaseInit("",
		path.Join(appConfig.Settings.DbsPath, "source_chain.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open source chain indexer db: %w", err)
	}

	relayerImpl := relayer.NewRelayer(appConfig, db, logger.Named("relayer"))

	depositProcessor := processor.NewDepositProcessor(appConfig, relayerImpl, logger.Named("deposit_processor"))

	watermark, err := db.GetWatermark()
	if err != nil {
		return nil, fmt.Errorf("failed to load watermark: %w", err)
	}

	observer, err := chain.NewSourceChainObserver(
		ctx, appConfig, watermark, depositProcessor, relayerImpl, indexerDB, logger.Named("chain_observer"))
	if err != nil {
		return nil, fmt.Errorf("failed to create source chain observer: %w", err)
	}

	txProvider, err := cardanotx.GetTxProvider(
		appConfig.Destination.ProviderURL, appConfig.Destination.UtxoRPCURL, appConfig.Destination.UtxoRPCAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create destination tx provider: %w", err)
	}

	sender, err := cardanotx.NewMirrorTxSender(
		destinationNetworkID(appConfig.Destination.ProviderNetwork),
		uint(appConfig.Destination.NetworkMagic),
		appConfig.Destination.SenderAddresses[0],
		appConfig.Destination.WalletSeed,
		txProvider,
		appConfig.Security.RequiredConfirmations,
		logger.Named("mirror_tx_sender"))
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror tx sender: %w", err)
	}

	worker := mirror.NewMirrorWorker(appConfig, relayerImpl, sender, logger.Named("mirror_worker"))

	var apiImpl *api.APIImpl

	if appConfig.API.Enabled {
		apiImpl, err = api.NewAPI(ctx, appConfig.API, []api.APIController{
			api.NewBridgeStateController(relayerImpl, logger.Named("api")),
		}, logger.Named("api"))
		if err != nil {
			return nil, fmt.Errorf("failed to create api: %w", err)
		}
	}

	return &BridgeImpl{
		ctx:       ctx,
		appConfig: appConfig,
		db:        db,
		indexerDB: indexerDB,
		relayer:   relayerImpl,
		processor: depositProcessor,
		observer:  observer,
		sender:    sender,
		worker:    worker,
		api:       apiImpl,
		telemetry: telemetry.NewTelemetry(telemetry.TelemetryConfig{
			PrometheusAddr: appConfig.Telemetry.PrometheusAddr,
			DataDogAddr:    appConfig.Telemetry.DataDogAddr,
		}, logger.Named("telemetry")),
		logger: logger,
	}, nil
}

func (b *BridgeImpl) Start() error {
	b.logger.Debug("Starting Bridge")

	if err := b.telemetry.Start(); err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}

	if err := b.relayer.Start(b.ctx); err != nil {
		return fmt.Errorf("failed to start relayer: %w", err)
	}

	go b.worker.Start(b.ctx)

	if err := b.observer.Start(); err != nil {
		return fmt.Errorf("failed to start source chain observer: %w", err)
	}

	if b.api != nil {
		go b.api.Start()
	}

	b.errorCh = make(chan error, 1)
	go b.errorHandler()

	go b.statusReportLoop()

	b.logger.Debug("Started Bridge")

	return nil
}

func (b *BridgeImpl) Dispose() error {
	b.logger.Info("Disposing Bridge")

	b.cancelCtx()

	if err := b.observer.Dispose(); err != nil {
		b.logger.Error("Failed to dispose source chain observer", "err", err)
	}

	if b.api != nil {
		if err := b.api.Dispose(); err != nil {
			b.logger.Error("Failed to dispose api", "err", err)
		}
	}

	if err := b.relayer.PersistState(); err != nil {
		b.logger.Error("Failed to persist state on shutdown", "err", err)
	}

	b.relayer.Stop()
	b.sender.Dispose()

	if err := b.telemetry.Close(context.Background()); err != nil {
		b.logger.Error("Failed to close telemetry", "err", err)
	}

	if err := b.indexerDB.Close(); err != nil {
		b.logger.Error("Failed to close indexer db", "err", err)
	}

	if err := b.db.Close(); err != nil {
		b.logger.Error("Failed to close bridge db", "err", err)
	}

	b.logger.Info("Bridge disposed")

	return nil
}

func (b *BridgeImpl) ErrorCh() <-chan error {
	return b.errorCh
}

// errorHandler propagates fatal source observer errors and logs mirror
// worker failures, which are retried forever by the pending sweep.
func (b *BridgeImpl) errorHandler() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case err := <-b.observer.ErrorCh():
			b.logger.Error("Source chain observer fatal error", "err", err)

			select {
			case b.errorCh <- err:
			default:
			}
		case err := <-b.worker.ErrorCh():
			b.logger.Error("Mirror worker error", "err", err)
		}
	}
}

func (b *BridgeImpl) statusReportLoop() {
	select {
	case <-b.ctx.Done():
		return
	case <-time.After(statusReportWarmup):
	}

	b.reportStatus()

	ticker := time.NewTicker(statusReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
		}

		b.reportStatus()
	}
}

func (b *BridgeImpl) reportStatus() {
	state, err := b.relayer.GetBridgeState()
	if err != nil {
		b.logger.Error("Failed to read bridge state for status report", "err", err)

		return
	}

	b.logger.Info("Bridge status",
		"processedDeposits", len(state.ProcessedDeposits),
		"pendingMirrors", len(state.PendingMirrors),
		"lastProcessedSlot", state.Watermark.LastProcessedSlot,
		"lastMirrorTxHash", b.relayer.LastMirrorTxHash())

	telemetry.UpdateBridgePendingMirrorsGauge(len(state.PendingMirrors))

	if err := b.relayer.PersistState(); err != nil {
		b.logger.Error("Failed to persist state", "err", err)
	}
}

func destinationNetworkID(network string) cardanowallet.CardanoNetworkType {
	if network == "Mainnet" || network == "mainnet" {
		return cardanowallet.MainNetNetwork
	}

	return cardanowallet.TestNetNetwork
}
