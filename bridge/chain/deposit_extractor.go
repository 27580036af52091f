package chain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Ethernal-Tech/cardano-infrastructure/indexer"
	"github.com/Ethernal-Tech/vista-bridge/bridge/core"
	"github.com/Ethernal-Tech/vista-bridge/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/hashicorp/go-hclog"
)

const unknownSenderAddress = "unknown_sender"

const unknownBlockHash = "unknown_block"

// DepositExtractor turns confirmed source-chain transactions into deposit
// events, one per output that pays a watched address.
type DepositExtractor struct {
	watched   map[string]bool
	assetType string
	logger    hclog.Logger
}

func NewDepositExtractor(depositAddresses []string, assetType string, logger hclog.Logger) *DepositExtractor {
	watched := make(map[string]bool, len(depositAddresses))
	for _, addr := range depositAddresses {
		watched[addr] = true
	}

	return &DepositExtractor{
		watched:   watched,
		assetType: assetType,
		logger:    logger,
	}
}

func (de *DepositExtractor) Extract(txs []*indexer.Tx) []core.DepositEvent {
	var events []core.DepositEvent

	for _, tx := range txs {
		events = append(events, de.extractTx(tx)...)
	}

	return events
}

func (de *DepositExtractor) extractTx(tx *indexer.Tx) []core.DepositEvent {
	var events []core.DepositEvent

	txHash := strings.ToLower(tx.Hash.String())

	senderAddress := unknownSenderAddress
	if len(tx.Inputs) > 0 && tx.Inputs[0].Output.Address != "" {
		senderAddress = tx.Inputs[0].Output.Address
	}

	blockHash := tx.BlockHash.String()
	if tx.BlockHash == (indexer.Hash{}) {
		blockHash = unknownBlockHash
	}

	metadata := de.flattenMetadata(txHash, tx.Metadata)

	for i, out := range tx.Outputs {
		if !de.watched[out.Address] {
			continue
		}

		events = append(events, core.DepositEvent{
			TxHash:           txHash,
			SenderAddress:    senderAddress,
			RecipientAddress: out.Address,
			Amount:           common.NewBigAmount(out.Amount),
			AssetType:        de.assetType,
			BlockSlot:        tx.BlockSlot,
			BlockHash:        blockHash,
			OutputIndex:      uint32(i),
			Metadata:         metadata,
			Timestamp:        time.Now().UnixMilli(),
		})
	}

	return events
}

// flattenMetadata renders the transaction auxiliary metadata as a flat
// label to string map. Text passes through, integers are stringified, bytes
// are UTF-8 decoded and composites become JSON. Entries that cannot be
// represented are dropped.
func (de *DepositExtractor) flattenMetadata(txHash string, data []byte) map[string]string {
	if len(data) == 0 {
		return nil
	}

	var raw map[interface{}]interface{}

	if err := cbor.Unmarshal(data, &raw); err != nil {
		// decoding failures never kill the stream
		de.logger.Debug("Failed to decode tx metadata", "txHash", txHash, "err", err)

		return nil
	}

	result := make(map[string]string, len(raw))

	for label, value := range raw {
		labelStr, ok := stringifyScalar(label)
		if !ok {
			continue
		}

		valueStr, ok := stringifyMetadataValue(value)
		if !ok {
			continue
		}

		result[labelStr] = valueStr
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

func stringifyScalar(v interface{}) (string, bool) {
	switch value := v.(type) {
	case string:
		return value, true
	case []byte:
		if !utf8.Valid(value) {
			return "", false
		}

		return string(value), true
	case uint64, int64, int, uint32, int32:
		return fmt.Sprintf("%d", value), true
	default:
		return "", false
	}
}

func stringifyMetadataValue(v interface{}) (string, bool) {
	if s, ok := stringifyScalar(v); ok {
		return s, true
	}

	normalized, ok := normalizeForJSON(v)
	if !ok {
		return "", false
	}

	bytes, err := json.Marshal(normalized)
	if err != nil {
		return "", false
	}

	return string(bytes), true
}

// normalizeForJSON rewrites cbor-decoded composites into json-encodable
// values (interface-keyed maps become string-keyed ones).
func normalizeForJSON(v interface{}) (interface{}, bool) {
	switch value := v.(type) {
	case map[interface{}]interface{}:
		result := make(map[string]interface{}, len(value))

		for k, item := range value {
			keyStr, ok := stringifyScalar(k)
			if !ok {
				return nil, false
			}

			normalized, ok := normalizeForJSON(item)
			if !ok {
				return nil, false
			}

			result[keyStr] = normalized
		}

		return result, true
	case []interface{}:
		result := make([]interface{}, len(value))

		for i, item := range value {
			normalized, ok := normalizeForJSON(item)
			if !ok {
				return nil, false
			}

			result[i] = normalized
		}

		return result, true
	case []byte:
		if !utf8.Valid(value) {
			return nil, false
		}

		return string(value), true
	case string, uint64, int64, int, uint32, int32, bool:
		return value, true
	default:
		return nil, false
	}
}
