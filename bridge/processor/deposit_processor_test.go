package processor

import (
	"errors"
	"strings"
	"testing"

	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *core.AppConfig {
	return &core.AppConfig{
		Bridge: core.BridgeSettings{
			AllowedAssets:     []string{"ADA"},
			MinDepositAmount:  2_000_000,
			MaxTransferAmount: 100_000_000_000,
			FeeAmount:         1_000_000,
		},
	}
}

func testDeposit(txHash string, amount uint64) core.DepositEvent {
	return core.DepositEvent{
		TxHash:           txHash,
		SenderAddress:    "addr_test1sender",
		RecipientAddress: "addr_test1watched",
		Amount:           common.NewBigAmount(amount),
		AssetType:        "ADA",
	}
}

func TestDepositProcessor(t *testing.T) {
	txHash := strings.Repeat("aa", 32)

	t.Run("valid deposit is published once", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		relayerMock.On("PublishDeposit", mock.Anything).Return(core.PublishResult{Success: true}, nil).Once()

		proc := NewDepositProcessor(testConfig(), relayerMock, hclog.NewNullLogger())

		require.NoError(t, proc.NewDeposits([]core.DepositEvent{testDeposit(txHash, 5_000_000)}))

		// duplicate delivery within the same boot is absorbed
		require.NoError(t, proc.NewDeposits([]core.DepositEvent{testDeposit(txHash, 5_000_000)}))

		relayerMock.AssertExpectations(t)
	})

	t.Run("below minimum is dropped without publish", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}

		proc := NewDepositProcessor(testConfig(), relayerMock, hclog.NewNullLogger())

		require.NoError(t, proc.NewDeposits([]core.DepositEvent{testDeposit(txHash, 1_500_000)}))

		relayerMock.AssertNotCalled(t, "PublishDeposit", mock.Anything)
	})

	t.Run("above maximum is dropped without publish", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}

		proc := NewDepositProcessor(testConfig(), relayerMock, hclog.NewNullLogger())

		require.NoError(t, proc.NewDeposits([]core.DepositEvent{testDeposit(txHash, 200_000_000_000)}))

		relayerMock.AssertNotCalled(t, "PublishDeposit", mock.Anything)
	})

	t.Run("disallowed asset is dropped", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}

		proc := NewDepositProcessor(testConfig(), relayerMock, hclog.NewNullLogger())

		deposit := testDeposit(txHash, 5_000_000)
		deposit.AssetType = "ERC20"

		require.NoError(t, proc.NewDeposits([]core.DepositEvent{deposit}))

		relayerMock.AssertNotCalled(t, "PublishDeposit", mock.Anything)
	})

	t.Run("publish failure allows redelivery to retry", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		relayerMock.On("PublishDeposit", mock.Anything).Return(core.PublishResult{}, errors.New("broker down")).Once()
		relayerMock.On("PublishDeposit", mock.Anything).Return(core.PublishResult{Success: true}, nil).Once()

		proc := NewDepositProcessor(testConfig(), relayerMock, hclog.NewNullLogger())

		err := proc.NewDeposits([]core.DepositEvent{testDeposit(txHash, 5_000_000)})
		require.Error(t, err)
		require.ErrorContains(t, err, "broker down")

		// stream re-delivery succeeds because the seen set was rolled back
		require.NoError(t, proc.NewDeposits([]core.DepositEvent{testDeposit(txHash, 5_000_000)}))

		relayerMock.AssertExpectations(t)
	})
}
