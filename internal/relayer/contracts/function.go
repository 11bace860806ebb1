package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github/chapool/relayer/internal/relayer/errs"
)

// Function names one entry of the closed dispatch table. Callers never reach a contract method
// by a free-form name.
type Function string

const (
	// PyPay
	FunctionTransfer           Function = "transfer"
	FunctionCrossChainTransfer Function = "CrossChainTransfer"
	FunctionQuoteNativeFee     Function = "quoteNativeFee"
	// ERC-20
	FunctionTokenTransfer Function = "tokenTransfer"
	FunctionBalanceOf     Function = "balanceOf"
	FunctionDecimals      Function = "decimals"
	// Factory
	FunctionComputeAddress Function = "computeAddress"
	FunctionDeploy         Function = "deploy"
)

const (
	GasLimitValueTransfer uint64 = 21000
	gasLimitDefault       uint64 = 500000
	gasLimitTokenTransfer uint64 = 100000
	gasLimitDeploy        uint64 = 300000
)

type entry struct {
	abi      *abi.ABI
	method   string
	gasLimit uint64
	readOnly bool
}

var dispatch = map[Function]entry{
	FunctionTransfer:           {abi: &pyPayABI, method: "transfer", gasLimit: gasLimitDefault},
	FunctionCrossChainTransfer: {abi: &pyPayABI, method: "CrossChainTransfer", gasLimit: gasLimitDefault},
	FunctionQuoteNativeFee:     {abi: &pyPayABI, method: "quoteNativeFee", gasLimit: gasLimitDefault, readOnly: true},
	FunctionTokenTransfer:      {abi: &erc20ABI, method: "transfer", gasLimit: gasLimitTokenTransfer},
	FunctionBalanceOf:          {abi: &erc20ABI, method: "balanceOf", gasLimit: gasLimitDefault, readOnly: true},
	FunctionDecimals:           {abi: &erc20ABI, method: "decimals", gasLimit: gasLimitDefault, readOnly: true},
	FunctionComputeAddress:     {abi: &factoryABI, method: "computeAddress", gasLimit: gasLimitDefault, readOnly: true},
	FunctionDeploy:             {abi: &factoryABI, method: "deploy", gasLimit: gasLimitDeploy},
}

// ParseFunction maps a caller supplied name onto the dispatch table.
func ParseFunction(name string) (Function, error) {
	fn := Function(name)
	if _, ok := dispatch[fn]; !ok {
		return "", errs.Newf(errs.ErrUnknownFunction, "function %q", name)
	}
	return fn, nil
}

// Functions lists every dispatchable function.
func Functions() []Function {
	return []Function{
		FunctionTransfer,
		FunctionCrossChainTransfer,
		FunctionQuoteNativeFee,
		FunctionTokenTransfer,
		FunctionBalanceOf,
		FunctionDecimals,
		FunctionComputeAddress,
		FunctionDeploy,
	}
}

func (f Function) String() string {
	return string(f)
}

// GasLimit is the fixed gas limit used for transactions calling f.
func (f Function) GasLimit() uint64 {
	return dispatch[f].gasLimit
}

// ReadOnly reports whether f is only ever used through eth_call.
func (f Function) ReadOnly() bool {
	return dispatch[f].readOnly
}

func (f Function) method() (abi.Method, error) {
	e, ok := dispatch[f]
	if !ok {
		return abi.Method{}, errs.Newf(errs.ErrUnknownFunction, "function %q", string(f))
	}
	return e.abi.Methods[e.method], nil
}
