package common

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

type MetadataEncodingType string

const (
	MetadataEncodingTypeJSON MetadataEncodingType = "json"
	MetadataEncodingTypeCbor MetadataEncodingType = "cbor"

	// MirrorMetadataMapKey is the auxiliary metadata label under which every
	// mirror transaction carries its deposit reference.
	MirrorMetadataMapKey = 1337

	BridgeVersion = "1.0.0"

	metadataSplitStringLength = 40
)

// MirrorMetadata is attached to each destination transaction so the
// originating deposit can be traced from the chain itself.
type MirrorMetadata struct {
	Msg           []string `cbor:"msg" json:"msg"`
	OriginalTx    string   `cbor:"originalTx" json:"originalTx"`
	BridgeVersion string   `cbor:"bridgeVersion" json:"bridgeVersion"`
	Timestamp     uint64   `cbor:"timestamp" json:"timestamp"`
}

func NewMirrorMetadata(depositTxHash string, timestamp uint64) MirrorMetadata {
	return MirrorMetadata{
		Msg: append(
			[]string{"VISTA Bridge: Mirroring deposit"},
			SplitString(depositTxHash, metadataSplitStringLength)...),
		OriginalTx:    depositTxHash,
		BridgeVersion: BridgeVersion,
		Timestamp:     timestamp,
	}
}

type marshalFunc = func(v any) ([]byte, error)

type unmarshalFunc = func(data []byte, v interface{}) error

func getMarshalFunc(encodingType MetadataEncodingType) (marshalFunc, error) {
	switch encodingType {
	case MetadataEncodingTypeJSON:
		return json.Marshal, nil
	case MetadataEncodingTypeCbor:
		return cbor.Marshal, nil
	}

	return nil, fmt.Errorf("unsupported metadata encoding type")
}

func getUnmarshalFunc(encodingType MetadataEncodingType) (unmarshalFunc, error) {
	switch encodingType {
	case MetadataEncodingTypeJSON:
		return json.Unmarshal, nil
	case MetadataEncodingTypeCbor:
		return cbor.Unmarshal, nil
	}

	return nil, fmt.Errorf("unsupported metadata encoding type")
}

func MarshalMetadata(
	encodingType MetadataEncodingType, metadata MirrorMetadata,
) ([]byte, error) {
	marshalFunc, err := getMarshalFunc(encodingType)
	if err != nil {
		return nil, err
	}

	result, err := marshalFunc(map[int]MirrorMetadata{
		MirrorMetadataMapKey: metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %v, err: %w", metadata, err)
	}

	return result, nil
}

func UnmarshalMetadata(
	encodingType MetadataEncodingType, data []byte,
) (*MirrorMetadata, error) {
	unmarshalFunc, err := getUnmarshalFunc(encodingType)
	if err != nil {
		return nil, err
	}

	var metadataMap map[int]*MirrorMetadata

	if err := unmarshalFunc(data, &metadataMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata, err: %w", err)
	}

	metadata := metadataMap[MirrorMetadataMapKey]
	if metadata == nil {
		return nil, fmt.Errorf("metadata missing mirror label %d", MirrorMetadataMapKey)
	}

	return metadata, nil
}
