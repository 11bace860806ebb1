package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Only the entries the relayer dispatches to are declared.
const (
	pyPayABIJSON = `[
	{"type":"function","name":"CrossChainTransfer","stateMutability":"payable","inputs":[
		{"name":"sourceChainIds","type":"uint256[]"},
		{"name":"amountEach","type":"uint256[]"},
		{"name":"nonces","type":"uint256[]"},
		{"name":"expiry","type":"uint256"},
		{"name":"destinationChainId","type":"uint256"},
		{"name":"target","type":"address"},
		{"name":"signature","type":"bytes"},
		{"name":"nativeFee","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
		{"name":"sourceChainIds","type":"uint256[]"},
		{"name":"amountEach","type":"uint256[]"},
		{"name":"nonces","type":"uint256[]"},
		{"name":"expiry","type":"uint256"},
		{"name":"destinationChainId","type":"uint256"},
		{"name":"target","type":"address"},
		{"name":"signature","type":"bytes"}],"outputs":[]},
	{"type":"function","name":"quoteNativeFee","stateMutability":"view","inputs":[
		{"name":"dstChainId","type":"uint256"},
		{"name":"amount","type":"uint256"},
		{"name":"target","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

	erc20ABIJSON = `[
	{"type":"function","name":"transfer","stateMutability":"nonpayable","inputs":[
		{"name":"to","type":"address"},
		{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
		{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

	factoryABIJSON = `[
	{"type":"function","name":"computeAddress","stateMutability":"view","inputs":[
		{"name":"_salt_int","type":"uint256"},
		{"name":"signer","type":"address"},
		{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"deploy","stateMutability":"nonpayable","inputs":[
		{"name":"_salt_int","type":"uint256"},
		{"name":"signer","type":"address"},
		{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"address"}]}
]`
)

var (
	pyPayABI   = mustParseABI(pyPayABIJSON)
	erc20ABI   = mustParseABI(erc20ABIJSON)
	factoryABI = mustParseABI(factoryABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(err)
	}
	return parsed
}
