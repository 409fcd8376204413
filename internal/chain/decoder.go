package chain

import (
	"encoding/hex"
	"fmt"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/crypto"

	"synnergy-network/internal/domain"
)

// DecodedEvent is the typed result of decoding a RawLog against the known
// event schema table (spec.md §4.4).
type DecodedEvent struct {
	Name        domain.OnchainEventName
	AgreementID string // canonical "0x"+64-lowercase-hex
	Args        map[string]any
}

// ErrUnknownTopic is returned when a log has no topics or its first topic
// does not match any known event — not a failure, just a signal to skip
// the log.
var ErrUnknownTopic = fmt.Errorf("chain: unknown topic")

// Decoder maps a raw log's first topic to a known event and extracts its
// typed arguments, per spec.md §4.4.
type Decoder struct {
	byTopic map[[32]byte]eventSchema
	argTypes map[argKind]gethabi.Type
}

// NewDecoder builds the topic0 → event mapping once at startup by computing
// keccak-256 over each event's canonical signature, exactly as spec.md
// §4.4 step 1 describes. This never touches the network (TopicHashOf is
// pure); the decoder does not need a live Client.
func NewDecoder() *Decoder {
	d := &Decoder{
		byTopic:  make(map[[32]byte]eventSchema, len(eventSchemas)),
		argTypes: make(map[argKind]gethabi.Type, 4),
	}
	for _, s := range eventSchemas {
		topic := crypto.Keccak256Hash([]byte(s.Signature()))
		d.byTopic[topic] = s
	}
	d.argTypes[kindUint256] = mustType("uint256")
	d.argTypes[kindUint8] = mustType("uint8")
	d.argTypes[kindAddress] = mustType("address")
	d.argTypes[kindBytes32] = mustType("bytes32")
	return d
}

func mustType(name string) gethabi.Type {
	t, err := gethabi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Decode transforms a RawLog into a DecodedEvent. If topics[0] is not in
// the known-event table, it returns ErrUnknownTopic (not a failure —
// callers skip and log per spec.md §4.4 step 2 / §7).
func (d *Decoder) Decode(log RawLog) (*DecodedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, ErrUnknownTopic
	}
	schema, ok := d.byTopic[log.Topics[0]]
	if !ok {
		return nil, ErrUnknownTopic
	}
	if len(log.Topics)-1 != len(schema.Indexed) {
		return nil, fmt.Errorf("chain: event %s expected %d indexed topics, got %d", schema.Name, len(schema.Indexed), len(log.Topics)-1)
	}

	args := make(map[string]any, len(schema.Indexed)+len(schema.NonIndex))
	var agreementID string

	for i, a := range schema.Indexed {
		topic := log.Topics[i+1]
		switch a.Kind {
		case kindBytes32:
			val := "0x" + hex.EncodeToString(topic[:])
			args[a.Name] = val
			if a.Name == "agreementId" {
				agreementID = val
			}
		case kindAddress:
			args[a.Name] = "0x" + hex.EncodeToString(topic[12:])
		default:
			return nil, fmt.Errorf("chain: indexed arg %s has unsupported kind for topic decoding", a.Name)
		}
	}

	if len(schema.NonIndex) > 0 {
		arguments := make(gethabi.Arguments, len(schema.NonIndex))
		for i, a := range schema.NonIndex {
			arguments[i] = gethabi.Argument{Name: a.Name, Type: d.argTypes[a.Kind]}
		}
		values, err := arguments.Unpack(log.Data)
		if err != nil {
			return nil, fmt.Errorf("chain: unpack %s data: %w", schema.Name, err)
		}
		for i, a := range schema.NonIndex {
			args[a.Name] = values[i]
		}
	}

	if agreementID == "" {
		return nil, fmt.Errorf("chain: event %s missing agreementId argument", schema.Name)
	}
	if err := domain.ValidateAgreementID(agreementID); err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}

	return &DecodedEvent{Name: schema.Name, AgreementID: agreementID, Args: args}, nil
}
