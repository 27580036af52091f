package core

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type DatabaseMock struct {
	mock.Mock
}

var _ Database = (*DatabaseMock)(nil)

func (m *DatabaseMock) AddProcessedDeposit(pd ProcessedDeposit) error {
	return m.Called(pd).Error(0)
}

func (m *DatabaseMock) AddPendingMirror(pm PendingMirror) error {
	return m.Called(pm).Error(0)
}

func (m *DatabaseMock) UpdatePendingMirror(depositTxHash string, retryCount uint32, errorMessage string) error {
	return m.Called(depositTxHash, retryCount, errorMessage).Error(0)
}

func (m *DatabaseMock) RemovePendingMirror(depositTxHash string) error {
	return m.Called(depositTxHash).Error(0)
}

func (m *DatabaseMock) MovePendingToProcessed(depositTxHash string, pd ProcessedDeposit) error {
	return m.Called(depositTxHash, pd).Error(0)
}

func (m *DatabaseMock) GetPendingMirror(depositTxHash string) (*PendingMirror, error) {
	args := m.Called(depositTxHash)

	arg0, _ := args.Get(0).(*PendingMirror)

	return arg0, args.Error(1)
}

func (m *DatabaseMock) GetProcessedDeposit(depositTxHash string) (*ProcessedDeposit, error) {
	args := m.Called(depositTxHash)

	arg0, _ := args.Get(0).(*ProcessedDeposit)

	return arg0, args.Error(1)
}

func (m *DatabaseMock) GetPendingMirrors() ([]PendingMirror, error) {
	args := m.Called()

	arg0, _ := args.Get(0).([]PendingMirror)

	return arg0, args.Error(1)
}

func (m *DatabaseMock) RemoveProcessedDepositsBefore(timestamp int64) (int, error) {
	args := m.Called(timestamp)

	arg0, _ := args.Get(0).(int)

	return arg0, args.Error(1)
}

func (m *DatabaseMock) GetBridgeState() (*BridgeState, error) {
	args := m.Called()

	arg0, _ := args.Get(0).(*BridgeState)

	return arg0, args.Error(1)
}

func (m *DatabaseMock) SaveWatermark(w Watermark) error {
	return m.Called(w).Error(0)
}

func (m *DatabaseMock) GetWatermark() (Watermark, error) {
	args := m.Called()

	arg0, _ := args.Get(0).(Watermark)

	return arg0, args.Error(1)
}

func (m *DatabaseMock) Close() error {
	return m.Called().Error(0)
}

type RelayerMock struct {
	mock.Mock
}

var _ Relayer = (*RelayerMock)(nil)

func (m *RelayerMock) Start(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *RelayerMock) PublishDeposit(event DepositEvent) (PublishResult, error) {
	args := m.Called(event)

	arg0, _ := args.Get(0).(PublishResult)

	return arg0, args.Error(1)
}

func (m *RelayerMock) SubscribeToDeposits() <-chan DepositEvent {
	args := m.Called()

	switch ch := args.Get(0).(type) {
	case chan DepositEvent:
		return ch
	case <-chan DepositEvent:
		return ch
	default:
		return nil
	}
}

func (m *RelayerMock) UpdateMirrorStatus(
	depositTxHash, mirrorTxHash string, status MirrorStatus, errorMessage string,
) (bool, error) {
	args := m.Called(depositTxHash, mirrorTxHash, status, errorMessage)

	arg0, _ := args.Get(0).(bool)

	return arg0, args.Error(1)
}

func (m *RelayerMock) GetBridgeState() (*BridgeState, error) {
	args := m.Called()

	arg0, _ := args.Get(0).(*BridgeState)

	return arg0, args.Error(1)
}

func (m *RelayerMock) GetPendingDeposits() ([]PendingMirror, error) {
	args := m.Called()

	arg0, _ := args.Get(0).([]PendingMirror)

	return arg0, args.Error(1)
}

func (m *RelayerMock) GetPendingDepositsForRetry(maxRetries uint32) ([]PendingMirror, error) {
	args := m.Called(maxRetries)

	arg0, _ := args.Get(0).([]PendingMirror)

	return arg0, args.Error(1)
}

func (m *RelayerMock) SetWatermark(slot uint64, blockHash string) {
	m.Called(slot, blockHash)
}

func (m *RelayerMock) PersistState() error {
	return m.Called().Error(0)
}

func (m *RelayerMock) CleanupOldDeposits(maxAge time.Duration) (int, error) {
	args := m.Called(maxAge)

	arg0, _ := args.Get(0).(int)

	return arg0, args.Error(1)
}

type MirrorTxSenderMock struct {
	mock.Mock
}

var _ MirrorTxSender = (*MirrorTxSenderMock)(nil)

func (m *MirrorTxSenderMock) CreateMirrorTx(
	ctx context.Context, receiverAddr string, amount uint64, metadata []byte,
) ([]byte, string, error) {
	args := m.Called(ctx, receiverAddr, amount, metadata)

	arg0, _ := args.Get(0).([]byte)
	arg1, _ := args.Get(1).(string)

	return arg0, arg1, args.Error(2)
}

func (m *MirrorTxSenderMock) SubmitTx(ctx context.Context, txRaw []byte, txHash string) (string, error) {
	args := m.Called(ctx, txRaw, txHash)

	arg0, _ := args.Get(0).(string)

	return arg0, args.Error(1)
}

func (m *MirrorTxSenderMock) WaitForTx(ctx context.Context, txHash string) error {
	return m.Called(ctx, txHash).Error(0)
}

func (m *MirrorTxSenderMock) Dispose() {
	m.Called()
}
