package chain

import (
	"synnergy-network/internal/domain"
)

// argKind enumerates the primitive ABI types this decoder understands —
// exactly the set the escrow contract's five events use (spec.md §4.4,
// §6). A hand-written table mirrors the original Python's
// TRUSTFLOW_ESCROW_ABI constant but is expressed as Go data instead of a
// JSON ABI blob, since this service only ever decodes its own events.
type argKind int

const (
	kindBytes32 argKind = iota
	kindAddress
	kindUint256
	kindUint8
)

// eventArg names one argument of an event, indexed or not.
type eventArg struct {
	Name string
	Kind argKind
}

// eventSchema describes one contract event: its canonical signature (used
// to compute the topic hash) and its indexed/non-indexed argument layout.
type eventSchema struct {
	Name     domain.OnchainEventName
	Indexed  []eventArg
	NonIndex []eventArg
}

func abiType(k argKind) string {
	switch k {
	case kindBytes32:
		return "bytes32"
	case kindAddress:
		return "address"
	case kindUint256:
		return "uint256"
	case kindUint8:
		return "uint8"
	default:
		panic("unknown arg kind")
	}
}

// Signature renders the canonical "Name(type1,type2,...)" form, matching
// spec.md §6's listed signatures exactly.
func (e eventSchema) Signature() string {
	sig := string(rawName(e.Name)) + "("
	first := true
	for _, a := range append(append([]eventArg{}, e.Indexed...), e.NonIndex...) {
		if !first {
			sig += ","
		}
		sig += abiType(a.Kind)
		first = false
	}
	return sig + ")"
}

func rawName(name domain.OnchainEventName) string {
	switch name {
	case domain.EventAgreementCreated:
		return "AgreementCreated"
	case domain.EventPaymentFunded:
		return "PaymentFunded"
	case domain.EventDisputeOpened:
		return "DisputeOpened"
	case domain.EventPaymentReleased:
		return "PaymentReleased"
	case domain.EventPaymentRefunded:
		return "PaymentRefunded"
	default:
		panic("unknown event name")
	}
}

// eventSchemas is the fixed table from spec.md §4.4/§6.
var eventSchemas = []eventSchema{
	{
		Name:     domain.EventAgreementCreated,
		Indexed:  []eventArg{{"agreementId", kindBytes32}, {"payer", kindAddress}, {"payee", kindAddress}},
		NonIndex: []eventArg{{"amount", kindUint256}, {"policy", kindUint8}, {"arbitrator", kindAddress}},
	},
	{
		Name:     domain.EventPaymentFunded,
		Indexed:  []eventArg{{"agreementId", kindBytes32}, {"payer", kindAddress}},
		NonIndex: []eventArg{{"amount", kindUint256}},
	},
	{
		Name:     domain.EventDisputeOpened,
		Indexed:  []eventArg{{"agreementId", kindBytes32}, {"openedBy", kindAddress}},
		NonIndex: nil,
	},
	{
		Name:     domain.EventPaymentReleased,
		Indexed:  []eventArg{{"agreementId", kindBytes32}, {"payee", kindAddress}},
		NonIndex: []eventArg{{"amount", kindUint256}},
	},
	{
		Name:     domain.EventPaymentRefunded,
		Indexed:  []eventArg{{"agreementId", kindBytes32}, {"payer", kindAddress}},
		NonIndex: []eventArg{{"amount", kindUint256}},
	},
}
