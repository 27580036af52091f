package mirror

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

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
		Security: core.SecuritySettings{
			RetryAttempts: 3,
			RetryDelayMs:  1,
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

func TestMirrorWorkerProcessDeposit(t *testing.T) {
	depositTxHash := strings.Repeat("aa", 32)
	mirrorTxHash := strings.Repeat("bb", 32)

	t.Run("happy path confirms with net amount and deposit metadata", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		senderMock := &core.MirrorTxSenderMock{}

		senderMock.On("CreateMirrorTx", mock.Anything, "addr_test1sender", uint64(4_000_000), mock.Anything).
			Run(func(args mock.Arguments) {
				metadata, err := common.UnmarshalMetadata(
					common.MetadataEncodingTypeJSON, args.Get(3).([]byte))
				require.NoError(t, err)
				require.Equal(t, depositTxHash, metadata.OriginalTx)
				require.Equal(t, common.BridgeVersion, metadata.BridgeVersion)
			}).
			Return([]byte{0x01}, mirrorTxHash, nil)
		senderMock.On("SubmitTx", mock.Anything, []byte{0x01}, mirrorTxHash).Return(mirrorTxHash, nil)
		senderMock.On("WaitForTx", mock.Anything, mirrorTxHash).Return(nil)

		relayerMock.On("UpdateMirrorStatus", depositTxHash, mirrorTxHash, core.MirrorStatusConfirmed, "").
			Return(true, nil)

		worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

		err := worker.processDeposit(context.Background(), testDeposit(depositTxHash, 5_000_000))
		require.NoError(t, err)

		relayerMock.AssertExpectations(t)
		senderMock.AssertExpectations(t)
	})

	t.Run("insufficient after fee fails without submission", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		senderMock := &core.MirrorTxSenderMock{}

		relayerMock.On("UpdateMirrorStatus", depositTxHash, "", core.MirrorStatusFailed,
			mock.MatchedBy(func(msg string) bool {
				return strings.Contains(msg, "insufficient after fee")
			})).Return(true, nil)

		worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

		err := worker.processDeposit(context.Background(), testDeposit(depositTxHash, 1_900_000))
		require.Error(t, err)
		require.ErrorContains(t, err, "insufficient after fee")

		senderMock.AssertNotCalled(t, "CreateMirrorTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		senderMock.AssertNotCalled(t, "SubmitTx", mock.Anything, mock.Anything, mock.Anything)
		relayerMock.AssertExpectations(t)
	})

	t.Run("submit failure is reported as failed attempt", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		senderMock := &core.MirrorTxSenderMock{}

		senderMock.On("CreateMirrorTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]byte{0x01}, mirrorTxHash, nil)
		senderMock.On("SubmitTx", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("submit rpc error"))

		relayerMock.On("UpdateMirrorStatus", depositTxHash, "", core.MirrorStatusFailed,
			mock.MatchedBy(func(msg string) bool {
				return strings.Contains(msg, "submit rpc error")
			})).Return(true, nil)

		worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

		err := worker.processDeposit(context.Background(), testDeposit(depositTxHash, 5_000_000))
		require.Error(t, err)

		relayerMock.AssertExpectations(t)
	})

	t.Run("ledger hash is authoritative on mismatch", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		senderMock := &core.MirrorTxSenderMock{}
		ledgerHash := strings.Repeat("cc", 32)

		senderMock.On("CreateMirrorTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]byte{0x01}, mirrorTxHash, nil)
		senderMock.On("SubmitTx", mock.Anything, mock.Anything, mock.Anything).Return(ledgerHash, nil)
		senderMock.On("WaitForTx", mock.Anything, mock.Anything).Return(nil)

		relayerMock.On("UpdateMirrorStatus", depositTxHash, ledgerHash, core.MirrorStatusConfirmed, "").
			Return(true, nil)

		worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

		err := worker.processDeposit(context.Background(), testDeposit(depositTxHash, 5_000_000))
		require.NoError(t, err)

		relayerMock.AssertExpectations(t)
	})

	t.Run("already processed deposit is a no-op", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		senderMock := &core.MirrorTxSenderMock{}

		senderMock.On("CreateMirrorTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]byte{0x01}, mirrorTxHash, nil)
		senderMock.On("SubmitTx", mock.Anything, mock.Anything, mock.Anything).Return(mirrorTxHash, nil)
		senderMock.On("WaitForTx", mock.Anything, mock.Anything).Return(nil)

		relayerMock.On("UpdateMirrorStatus", depositTxHash, mirrorTxHash, core.MirrorStatusConfirmed, "").
			Return(false, nil)

		worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

		err := worker.processDeposit(context.Background(), testDeposit(depositTxHash, 5_000_000))
		require.NoError(t, err)
	})

	t.Run("confirmation wait failure does not fail the mirror", func(t *testing.T) {
		relayerMock := &core.RelayerMock{}
		senderMock := &core.MirrorTxSenderMock{}

		senderMock.On("CreateMirrorTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]byte{0x01}, mirrorTxHash, nil)
		senderMock.On("SubmitTx", mock.Anything, mock.Anything, mock.Anything).Return(mirrorTxHash, nil)
		senderMock.On("WaitForTx", mock.Anything, mock.Anything).
			Return(errors.New("timed out"))

		relayerMock.On("UpdateMirrorStatus", depositTxHash, mirrorTxHash, core.MirrorStatusConfirmed, "").
			Return(true, nil)

		worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

		err := worker.processDeposit(context.Background(), testDeposit(depositTxHash, 5_000_000))
		require.NoError(t, err)
	})
}

func TestMirrorWorkerSubscriptionLoop(t *testing.T) {
	depositTxHash := strings.Repeat("dd", 32)
	mirrorTxHash := strings.Repeat("ee", 32)

	relayerMock := &core.RelayerMock{}
	senderMock := &core.MirrorTxSenderMock{}

	subscribeCh := make(chan core.DepositEvent, 1)
	relayerMock.On("SubscribeToDeposits").Return(subscribeCh)
	relayerMock.On("GetPendingDepositsForRetry", uint32(3)).Return([]core.PendingMirror{}, nil).Maybe()

	confirmed := make(chan struct{})

	senderMock.On("CreateMirrorTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]byte{0x01}, mirrorTxHash, nil)
	senderMock.On("SubmitTx", mock.Anything, mock.Anything, mock.Anything).Return(mirrorTxHash, nil)
	senderMock.On("WaitForTx", mock.Anything, mock.Anything).Return(nil)

	relayerMock.On("UpdateMirrorStatus", depositTxHash, mirrorTxHash, core.MirrorStatusConfirmed, "").
		Run(func(mock.Arguments) { close(confirmed) }).
		Return(true, nil)

	worker := NewMirrorWorker(testConfig(), relayerMock, senderMock, hclog.NewNullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})

	go func() {
		worker.Start(ctx)
		close(done)
	}()

	subscribeCh <- testDeposit(depositTxHash, 5_000_000)

	select {
	case <-confirmed:
	case <-time.After(2 * time.Second):
		t.Fatal("deposit from subscription was not mirrored")
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
