package core

import (
	"github.com/Ethernal-Tech/vista-bridge/common"
)

type MirrorStatus uint8

const (
	MirrorStatusUnspecified MirrorStatus = iota
	MirrorStatusPending
	MirrorStatusSubmitted
	MirrorStatusConfirmed
	MirrorStatusFailed
)

func (s MirrorStatus) String() string {
	switch s {
	case MirrorStatusPending:
		return "pending"
	case MirrorStatusSubmitted:
		return "submitted"
	case MirrorStatusConfirmed:
		return "confirmed"
	case MirrorStatusFailed:
		return "failed"
	default:
		return "unspecified"
	}
}

// DepositEvent is a single value transfer observed on the source chain.
// It is immutable once extracted; TxHash is the identity of the deposit
// within the bridge.
type DepositEvent struct {
	TxHash           string            `json:"txHash"`
	SenderAddress    string            `json:"senderAddress"`
	RecipientAddress string            `json:"recipientAddress"`
	Amount           common.BigAmount  `json:"amount"`
	AssetType        string            `json:"assetType"`
	BlockSlot        uint64            `json:"blockSlot"`
	BlockHash        string            `json:"blockHash"`
	OutputIndex      uint32            `json:"outputIndex"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Timestamp        int64             `json:"timestamp"`
}

func (d DepositEvent) Key() []byte {
	return []byte(d.TxHash)
}

// PendingMirror exists while the bridge still owes a destination transaction
// for the deposit.
type PendingMirror struct {
	DepositTxHash string       `json:"depositTxHash"`
	Deposit       DepositEvent `json:"deposit"`
	RetryCount    uint32       `json:"retryCount"`
	LastRetryAt   int64        `json:"lastRetryAt"`
	ErrorMessage  string       `json:"errorMessage,omitempty"`
}

func (pm PendingMirror) Key() []byte {
	return []byte(pm.DepositTxHash)
}

// ProcessedDeposit records the terminal decision for a deposit. Status is
// either MirrorStatusConfirmed or MirrorStatusFailed.
type ProcessedDeposit struct {
	DepositTxHash string       `json:"depositTxHash"`
	ProcessedAt   int64        `json:"processedAt"`
	MirrorTxHash  string       `json:"mirrorTxHash,omitempty"`
	Status        MirrorStatus `json:"status"`
}

func (pd ProcessedDeposit) Key() []byte {
	return []byte(pd.DepositTxHash)
}

// Watermark is a restart hint for the source observer, not a correctness
// condition.
type Watermark struct {
	LastProcessedSlot      uint64 `json:"lastProcessedSlot"`
	LastProcessedBlockHash string `json:"lastProcessedBlockHash"`
}

const GenesisBlockHash = "genesis"

func GenesisWatermark() Watermark {
	return Watermark{LastProcessedSlot: 0, LastProcessedBlockHash: GenesisBlockHash}
}

type BridgeState struct {
	ProcessedDeposits map[string]ProcessedDeposit `json:"processedDeposits"`
	PendingMirrors    map[string]PendingMirror    `json:"pendingMirrors"`
	Watermark         Watermark                   `json:"watermark"`
}

type PublishResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}
