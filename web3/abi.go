package web3

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const registrarABIJSON = `[
  {"type":"function","name":"register","stateMutability":"nonpayable","inputs":[
    {"name":"proof","type":"uint256[8]"},{"name":"input","type":"uint256[]"}],"outputs":[]},
  {"type":"function","name":"getUserPublicKey","stateMutability":"view","inputs":[
    {"name":"user","type":"address"}],"outputs":[{"name":"publicKey","type":"uint256[2]"}]},
  {"type":"event","name":"Register","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"publicKey","type":"uint256[2]","indexed":false}]}
]`

const tokenABIJSON = `[
  {"type":"function","name":"privateMint","stateMutability":"nonpayable","inputs":[
    {"name":"user","type":"address"},{"name":"proof","type":"uint256[8]"},{"name":"input","type":"uint256[]"}],"outputs":[]},
  {"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
    {"name":"to","type":"address"},{"name":"proof","type":"uint256[8]"},{"name":"input","type":"uint256[]"},
    {"name":"senderDelta","type":"uint256[4]"}],"outputs":[]},
  {"type":"function","name":"privateBurn","stateMutability":"nonpayable","inputs":[
    {"name":"proof","type":"uint256[8]"},{"name":"input","type":"uint256[]"},
    {"name":"senderDelta","type":"uint256[4]"}],"outputs":[]},
  {"type":"function","name":"auditorPublicKey","stateMutability":"view","inputs":[],
    "outputs":[{"name":"publicKey","type":"uint256[2]"}]},
  {"type":"event","name":"PrivateMint","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"amountCiphertext","type":"uint256[4]","indexed":false},
    {"name":"auditorPCT","type":"uint256[7]","indexed":false},
    {"name":"auditorAddress","type":"address","indexed":true}]},
  {"type":"event","name":"PrivateTransfer","anonymous":false,"inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"senderDelta","type":"uint256[4]","indexed":false},
    {"name":"recipientDelta","type":"uint256[4]","indexed":false},
    {"name":"auditorPCT","type":"uint256[7]","indexed":false},
    {"name":"auditorAddress","type":"address","indexed":true}]},
  {"type":"event","name":"PrivateBurn","anonymous":false,"inputs":[
    {"name":"user","type":"address","indexed":true},
    {"name":"senderDelta","type":"uint256[4]","indexed":false},
    {"name":"burnDelta","type":"uint256[4]","indexed":false},
    {"name":"auditorPCT","type":"uint256[7]","indexed":false},
    {"name":"auditorAddress","type":"address","indexed":true}]}
]`

const (
	methodRegister         = "register"
	methodGetUserPublicKey = "getUserPublicKey"
	methodPrivateMint      = "privateMint"
	methodTransfer         = "transfer"
	methodPrivateBurn      = "privateBurn"
	methodAuditorPublicKey = "auditorPublicKey"

	eventRegister        = "Register"
	eventPrivateMint     = "PrivateMint"
	eventPrivateTransfer = "PrivateTransfer"
	eventPrivateBurn     = "PrivateBurn"
)

var (
	registrarABI = mustParseABI(registrarABIJSON)
	tokenABI     = mustParseABI(tokenABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// eventTopics returns the topic0 of every eERC event.
func eventTopics() []common.Hash {
	return []common.Hash{
		registrarABI.Events[eventRegister].ID,
		tokenABI.Events[eventPrivateMint].ID,
		tokenABI.Events[eventPrivateTransfer].ID,
		tokenABI.Events[eventPrivateBurn].ID,
	}
}

// DecodeLog decodes an eERC contract log.
func DecodeLog(l *types.Log) (*Event, error) {
	if len(l.Topics) == 0 {
		return nil, fmt.Errorf("log without topics")
	}
	ev := &Event{
		BlockNumber: l.BlockNumber,
		LogIndex:    l.Index,
		TxHash:      l.TxHash,
	}
	var abiEvent abi.Event
	switch l.Topics[0] {
	case registrarABI.Events[eventRegister].ID:
		ev.Kind, abiEvent = EventRegister, registrarABI.Events[eventRegister]
	case tokenABI.Events[eventPrivateMint].ID:
		ev.Kind, abiEvent = EventMint, tokenABI.Events[eventPrivateMint]
	case tokenABI.Events[eventPrivateTransfer].ID:
		ev.Kind, abiEvent = EventTransfer, tokenABI.Events[eventPrivateTransfer]
	case tokenABI.Events[eventPrivateBurn].ID:
		ev.Kind, abiEvent = EventBurn, tokenABI.Events[eventPrivateBurn]
	default:
		return nil, fmt.Errorf("unknown event topic %s", l.Topics[0].Hex())
	}

	indexed := make([]common.Address, 0, 3)
	for _, topic := range l.Topics[1:] {
		indexed = append(indexed, common.BytesToAddress(topic.Bytes()))
	}
	values, err := abiEvent.Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", abiEvent.Name, err)
	}

	switch ev.Kind {
	case EventRegister:
		if len(indexed) != 1 || len(values) != 1 {
			return nil, fmt.Errorf("malformed %s log", abiEvent.Name)
		}
		ev.User = indexed[0]
		ev.PublicKey, err = fixedArray[[2]*big.Int](values[0])
	case EventMint:
		if len(indexed) != 2 || len(values) != 2 {
			return nil, fmt.Errorf("malformed %s log", abiEvent.Name)
		}
		ev.User, ev.AuditorAddress = indexed[0], indexed[1]
		if ev.RecipientDelta, err = fixedArray[[4]*big.Int](values[0]); err == nil {
			ev.AuditorPCT, err = fixedArray[[7]*big.Int](values[1])
		}
	case EventTransfer:
		if len(indexed) != 3 || len(values) != 3 {
			return nil, fmt.Errorf("malformed %s log", abiEvent.Name)
		}
		ev.From, ev.To, ev.AuditorAddress = indexed[0], indexed[1], indexed[2]
		err = unpackDeltas(ev, values)
	case EventBurn:
		if len(indexed) != 2 || len(values) != 3 {
			return nil, fmt.Errorf("malformed %s log", abiEvent.Name)
		}
		ev.User, ev.AuditorAddress = indexed[0], indexed[1]
		ev.From = ev.User
		err = unpackDeltas(ev, values)
	}
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", abiEvent.Name, err)
	}
	return ev, nil
}

func unpackDeltas(ev *Event, values []any) error {
	var err error
	if ev.SenderDelta, err = fixedArray[[4]*big.Int](values[0]); err != nil {
		return err
	}
	if ev.RecipientDelta, err = fixedArray[[4]*big.Int](values[1]); err != nil {
		return err
	}
	ev.AuditorPCT, err = fixedArray[[7]*big.Int](values[2])
	return err
}

// fixedArray converts an unpacked uintN[k] value to a slice.
func fixedArray[A [2]*big.Int | [4]*big.Int | [7]*big.Int](v any) ([]*big.Int, error) {
	arr, ok := v.(A)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", v)
	}
	out := make([]*big.Int, len(arr))
	for i := 0; i < len(arr); i++ {
		out[i] = arr[i]
	}
	return out, nil
}

func toArray4(in []*big.Int) ([4]*big.Int, error) {
	var out [4]*big.Int
	if len(in) != len(out) {
		return out, fmt.Errorf("expected %d elements, got %d", len(out), len(in))
	}
	copy(out[:], in)
	return out, nil
}
