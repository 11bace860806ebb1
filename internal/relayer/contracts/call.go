package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github/chapool/relayer/internal/relayer/errs"
)

// Call is one dispatchable contract invocation. Value is the msg.value attached to the
// transaction and may be nil.
type Call struct {
	Function Function
	Args     []interface{}
	Value    *big.Int
}

func CrossChainTransfer(intent *TransferIntent) Call {
	return Call{
		Function: FunctionCrossChainTransfer,
		Args: []interface{}{
			intent.SourceChainIDs,
			intent.AmountEach,
			intent.Nonces,
			intent.Expiry,
			intent.DestinationChainID,
			intent.TargetAddress,
			intent.Signature,
			intent.nativeFee(),
		},
		Value: intent.nativeFee(),
	}
}

func Transfer(intent *TransferIntent) Call {
	return Call{
		Function: FunctionTransfer,
		Args: []interface{}{
			intent.SourceChainIDs,
			intent.AmountEach,
			intent.Nonces,
			intent.Expiry,
			intent.DestinationChainID,
			intent.TargetAddress,
			intent.Signature,
		},
	}
}

func QuoteNativeFee(dstChainID *big.Int, amount *big.Int, target common.Address) Call {
	return Call{Function: FunctionQuoteNativeFee, Args: []interface{}{dstChainID, amount, target}}
}

func TokenTransfer(to common.Address, amount *big.Int) Call {
	return Call{Function: FunctionTokenTransfer, Args: []interface{}{to, amount}}
}

func BalanceOf(account common.Address) Call {
	return Call{Function: FunctionBalanceOf, Args: []interface{}{account}}
}

func Decimals() Call {
	return Call{Function: FunctionDecimals}
}

func ComputeAddress(salt *big.Int, signer common.Address, operator common.Address) Call {
	return Call{Function: FunctionComputeAddress, Args: []interface{}{salt, signer, operator}}
}

func Deploy(salt *big.Int, signer common.Address, operator common.Address) Call {
	return Call{Function: FunctionDeploy, Args: []interface{}{salt, signer, operator}}
}

// Pack ABI encodes the call including its 4 byte selector.
func (c Call) Pack() ([]byte, error) {
	method, err := c.Function.method()
	if err != nil {
		return nil, err
	}

	packed, err := method.Inputs.Pack(c.Args...)
	if err != nil {
		return nil, errs.Wrapf(errs.ErrInvalidTransaction, err, "failed to encode arguments of %s", c.Function)
	}

	return append(append([]byte{}, method.ID...), packed...), nil
}

// Unpack decodes the return data of a call to fn.
func Unpack(fn Function, data []byte) ([]interface{}, error) {
	method, err := fn.method()
	if err != nil {
		return nil, err
	}

	out, err := method.Outputs.Unpack(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode result of %s", fn)
	}

	if len(out) != len(method.Outputs) {
		return nil, errors.Errorf("unexpected result arity %d of %s", len(out), fn)
	}

	return out, nil
}

func UnpackBigInt(fn Function, data []byte) (*big.Int, error) {
	out, err := Unpack(fn, data)
	if err != nil {
		return nil, err
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("result of %s is %T, not uint256", fn, out[0])
	}
	return v, nil
}

func UnpackDecimals(data []byte) (uint8, error) {
	out, err := Unpack(FunctionDecimals, data)
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		return 0, errors.Errorf("result of decimals is %T, not uint8", out[0])
	}
	return v, nil
}

func UnpackAddress(fn Function, data []byte) (common.Address, error) {
	out, err := Unpack(fn, data)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, errors.Errorf("result of %s is %T, not address", fn, out[0])
	}
	return v, nil
}

// ParseCall builds a call from textual arguments, one per ABI input: uint256 as decimal or 0x
// hex, uint256[] as a comma separated list, address as checked hex and bytes as 0x hex.
func ParseCall(name string, args []string, value *big.Int) (Call, error) {
	fn, err := ParseFunction(name)
	if err != nil {
		return Call{}, err
	}

	method, err := fn.method()
	if err != nil {
		return Call{}, err
	}

	if len(args) != len(method.Inputs) {
		return Call{}, errs.Newf(errs.ErrInvalidTransaction, "%s takes %d arguments, got %d", fn, len(method.Inputs), len(args))
	}

	parsed := make([]interface{}, 0, len(args))
	for i, input := range method.Inputs {
		v, err := parseArg(input.Type, args[i])
		if err != nil {
			return Call{}, errors.Wrapf(err, "argument %q of %s", input.Name, fn)
		}
		parsed = append(parsed, v)
	}

	return Call{Function: fn, Args: parsed, Value: value}, nil
}

func parseArg(t abi.Type, raw string) (interface{}, error) {
	raw = strings.TrimSpace(raw)

	switch t.T {
	case abi.UintTy:
		return parseUint256(raw)
	case abi.AddressTy:
		return ParseAddress(raw)
	case abi.BytesTy:
		b, err := hexutil.Decode(raw)
		if err != nil {
			return nil, errs.Wrap(errs.ErrInvalidTransaction, err, "malformed bytes")
		}
		return b, nil
	case abi.SliceTy:
		if t.Elem.T != abi.UintTy {
			break
		}
		raw = strings.TrimSuffix(strings.TrimPrefix(raw, "["), "]")
		values := []*big.Int{}
		if raw == "" {
			return values, nil
		}
		for _, part := range strings.Split(raw, ",") {
			v, err := parseUint256(strings.TrimSpace(part))
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	}

	return nil, errs.Newf(errs.ErrInvalidTransaction, "unsupported argument type %s", t.String())
}

func parseUint256(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 0)
	if !ok || v.Sign() < 0 || v.BitLen() > 256 {
		return nil, errs.Newf(errs.ErrInvalidTransaction, "malformed uint256 %q", raw)
	}
	return v, nil
}
