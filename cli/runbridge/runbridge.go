package clirunbridge

import (
	"fmt"
	"os"
	"os/signal"
	"path"
	"syscall"

	loggerInfra "github.com/Ethernal-Tech/cardano-infrastructure/logger"
	bridgeComponents "github.com/Ethernal-Tech/vista-bridge/bridge/bridge"
	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var configPath string

func GetRunBridgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-bridge",
		Short: "runs the bridge relay components",
		Args:  cobra.NoArgs,
		RunE:  runCommand,
	}

	cmd.Flags().StringVar(&configPath, "config", "", "optional json configuration file, overrides the environment")

	return cmd
}

func runCommand(_ *cobra.Command, _ []string) error {
	config, err := core.LoadAppConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := loggerInfra.NewLogger(loggerInfra.LoggerConfig{
		LogLevel:      hclog.Level(config.Settings.LogLevel),
		JSONLogFormat: false,
		AppendFile:    true,
		LogFilePath:   path.Join(config.Settings.LogsPath, "bridge.log"),
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	bridge, err := bridgeComponents.NewBridge(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	if err := bridge.Start(); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}

	defer bridge.Dispose()

	signalChannel := make(chan os.Signal, 1)
	// Notify the signalChannel when the interrupt signal is received (Ctrl+C)
	signal.Notify(signalChannel, os.Interrupt, syscall.SIGTERM)

	select {
	case <-signalChannel:
	case err := <-bridge.ErrorCh():
		return fmt.Errorf("bridge stopped with fatal error: %w", err)
	}

	return nil
}
