package cardanotx

import (
	"context"
	"fmt"
	"strings"
	"time"

	cardanowallet "github.com/Ethernal-Tech/cardano-infrastructure/wallet"
	"github.com/hashicorp/go-hclog"
)

const (
	DefaultPotentialFee = 250_000

	ttlSlotNumberInc = 500

	retryWait       = time.Millisecond * 1000
	retriesMaxCount = 10

	confirmationPollWait = time.Second * 5
)

// MirrorTxSenderImpl builds, signs and submits destination transactions that
// return deposited funds to their originator, net of fee, with the deposit
// reference attached as auxiliary metadata.
type MirrorTxSenderImpl struct {
	cardanoCliBinary     string
	txProvider           cardanowallet.ITxProvider
	wallet               cardanowallet.IWallet
	senderAddr           string
	testNetMagic         uint
	potentialFee         uint64
	confirmationPolls    int
	confirmationPollWait time.Duration
	logger               hclog.Logger
}

func NewMirrorTxSender(
	networkID cardanowallet.CardanoNetworkType,
	testNetMagic uint,
	senderAddr string,
	walletSeed string,
	txProvider cardanowallet.ITxProvider,
	requiredConfirmations uint32,
	logger hclog.Logger,
) (*MirrorTxSenderImpl, error) {
	keyBytes, err := cardanowallet.GetKeyBytes(walletSeed)
	if err != nil || len(keyBytes) != 32 {
		return nil, fmt.Errorf("invalid sender wallet seed")
	}

	wallet := cardanowallet.NewWallet(cardanowallet.GetVerificationKeyFromSigningKey(keyBytes), keyBytes)

	return &MirrorTxSenderImpl{
		cardanoCliBinary:     cardanowallet.ResolveCardanoCliBinary(networkID),
		txProvider:           txProvider,
		wallet:               wallet,
		senderAddr:           senderAddr,
		testNetMagic:         testNetMagic,
		potentialFee:         DefaultPotentialFee,
		confirmationPolls:    int(requiredConfirmations),
		confirmationPollWait: confirmationPollWait,
		logger:               logger,
	}, nil
}

// CreateMirrorTx creates the mirror tx and returns the cbor of the raw
// transaction together with its hash. The hash is computed before
// submission so that submission retries stay idempotent.
func (ms *MirrorTxSenderImpl) CreateMirrorTx(
	ctx context.Context, receiverAddr string, amount uint64, metadata []byte,
) ([]byte, string, error) {
	slot, err := ms.txProvider.GetSlot(ctx)
	if err != nil {
		return nil, "", err
	}

	protocolParams, err := ms.txProvider.GetProtocolParameters(ctx)
	if err != nil {
		return nil, "", err
	}

	outputs := []cardanowallet.TxOutput{
		{
			Addr:   receiverAddr,
			Amount: amount,
		},
		{
			Addr: ms.senderAddr,
		},
	}

	desiredSum := amount + ms.potentialFee + cardanowallet.MinUTxODefaultValue

	inputs, err := cardanowallet.GetUTXOsForAmount(ctx, ms.txProvider, ms.senderAddr, desiredSum, desiredSum)
	if err != nil {
		return nil, "", err
	}

	builder, err := cardanowallet.NewTxBuilder(ms.cardanoCliBinary)
	if err != nil {
		return nil, "", err
	}

	defer builder.Dispose()

	builder.SetMetaData(metadata).
		SetProtocolParameters(protocolParams).
		SetTimeToLive(slot + ttlSlotNumberInc).
		SetTestNetMagic(ms.testNetMagic).
		AddInputs(inputs.Inputs...).
		AddOutputs(outputs...)

	fee, err := builder.CalculateFee(0)
	if err != nil {
		return nil, "", err
	}

	change := inputs.Sum - amount - fee
	// handle overflow or insufficient amount
	if change > inputs.Sum || (change > 0 && change < cardanowallet.MinUTxODefaultValue) {
		return nil, "", fmt.Errorf("insufficient amount %d for %d or min utxo not satisfied",
			inputs.Sum, amount+fee)
	}

	if change == 0 {
		builder.RemoveOutput(-1)
	} else {
		builder.UpdateOutputAmount(-1, change)
	}

	builder.SetFee(fee)

	return builder.Build()
}

// SubmitTx signs the raw transaction with the sender wallet and submits it.
// The returned hash is the one the submission was keyed on.
func (ms *MirrorTxSenderImpl) SubmitTx(
	ctx context.Context, txRaw []byte, txHash string,
) (string, error) {
	builder, err := cardanowallet.NewTxBuilder(ms.cardanoCliBinary)
	if err != nil {
		return "", err
	}

	defer builder.Dispose()

	witness, err := cardanowallet.CreateTxWitness(txHash, ms.wallet)
	if err != nil {
		return "", err
	}

	txSigned, err := builder.AssembleTxWitnesses(txRaw, [][]byte{witness})
	if err != nil {
		return "", err
	}

	err = cardanowallet.ExecuteWithRetry(ctx, retriesMaxCount, retryWait, func() (bool, error) {
		err := ms.txProvider.SubmitTx(ctx, txSigned)

		return err == nil, err
	}, isRecoverableError)
	if err != nil {
		return "", err
	}

	ms.logger.Debug("Mirror tx submitted", "txHash", txHash)

	return txHash, nil
}

// WaitForTx polls the provider until the transaction is visible or the
// configured number of polls is exhausted.
func (ms *MirrorTxSenderImpl) WaitForTx(ctx context.Context, txHash string) error {
	for i := 0; i < ms.confirmationPolls; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(ms.confirmationPollWait):
			}
		}

		data, err := ms.txProvider.GetTxByHash(ctx, txHash)
		if err != nil {
			if isRecoverableError(err) {
				continue
			}

			return err
		}

		if len(data) > 0 {
			return nil
		}
	}

	return fmt.Errorf("timeout waiting for tx %s", txHash)
}

func (ms *MirrorTxSenderImpl) Dispose() {
	ms.txProvider.Dispose()
}

func isRecoverableError(err error) bool {
	return strings.Contains(err.Error(), "status code 500") // retry if error is ogmios "status code 500"
}
