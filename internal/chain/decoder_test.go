package chain

import (
	"encoding/hex"
	"math/big"
	"testing"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

func addressTopic(addr common.Address) [32]byte {
	var out [32]byte
	copy(out[12:], addr.Bytes())
	return out
}

func bytes32Topic(b byte) [32]byte {
	var out [32]byte
	out[0] = b
	return out
}

func TestDecodeAgreementCreated(t *testing.T) {
	d := NewDecoder()
	agreementID := bytes32Topic(0xaa)
	payer := common.HexToAddress("0x0000000000000000000000000000000000000001")
	payee := common.HexToAddress("0x0000000000000000000000000000000000000002")
	arbitrator := common.HexToAddress("0x0000000000000000000000000000000000000003")

	topic0 := crypto.Keccak256Hash([]byte("AgreementCreated(bytes32,address,address,uint256,uint8,address)"))

	uint256T, _ := gethabi.NewType("uint256", "", nil)
	uint8T, _ := gethabi.NewType("uint8", "", nil)
	addrT, _ := gethabi.NewType("address", "", nil)
	args := gethabi.Arguments{
		{Name: "amount", Type: uint256T},
		{Name: "policy", Type: uint8T},
		{Name: "arbitrator", Type: addrT},
	}
	data, err := args.Pack(big.NewInt(1_000000000000000000), uint8(1), arbitrator)
	if err != nil {
		t.Fatalf("pack data: %v", err)
	}

	log := RawLog{
		Topics: [][32]byte{topic0, agreementID, addressTopic(payer), addressTopic(payee)},
		Data:   data,
	}

	decoded, err := d.Decode(log)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.AgreementID != "0x"+hex.EncodeToString(agreementID[:]) {
		t.Errorf("agreement id mismatch: got %s", decoded.AgreementID)
	}
	if amt, ok := decoded.Args["amount"].(*big.Int); !ok || amt.Cmp(big.NewInt(1_000000000000000000)) != 0 {
		t.Errorf("amount mismatch: %v", decoded.Args["amount"])
	}
	if decoded.Args["payer"] != "0x"+hex.EncodeToString(payer.Bytes()) {
		t.Errorf("payer mismatch: %v", decoded.Args["payer"])
	}
}

func TestDecodeDisputeOpenedNoData(t *testing.T) {
	d := NewDecoder()
	agreementID := bytes32Topic(0xbb)
	openedBy := common.HexToAddress("0x0000000000000000000000000000000000000099")
	topic0 := crypto.Keccak256Hash([]byte("DisputeOpened(bytes32,address)"))

	log := RawLog{
		Topics: [][32]byte{topic0, agreementID, addressTopic(openedBy)},
	}

	decoded, err := d.Decode(log)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.AgreementID != "0x"+hex.EncodeToString(agreementID[:]) {
		t.Errorf("agreement id mismatch: got %s", decoded.AgreementID)
	}
}

func TestDecodeUnknownTopic(t *testing.T) {
	d := NewDecoder()
	log := RawLog{Topics: [][32]byte{{0xff}}}
	if _, err := d.Decode(log); err == nil {
		t.Error("expected error for unknown topic")
	}
}

func TestDecodeNoTopics(t *testing.T) {
	d := NewDecoder()
	if _, err := d.Decode(RawLog{}); err == nil {
		t.Error("expected error for log with no topics")
	}
}

func TestDecodeWrongIndexedCount(t *testing.T) {
	d := NewDecoder()
	topic0 := crypto.Keccak256Hash([]byte("DisputeOpened(bytes32,address)"))
	log := RawLog{Topics: [][32]byte{topic0, bytes32Topic(0x01)}}
	if _, err := d.Decode(log); err == nil {
		t.Error("expected error for missing indexed topic")
	}
}
