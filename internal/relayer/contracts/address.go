package contracts

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/relayer/internal/relayer/errs"
)

// ParseAddress accepts a 0x prefixed 40 hex digit address. Mixed case input must carry a valid
// EIP-55 checksum; all lower or all upper case input is accepted as is.
func ParseAddress(s string) (common.Address, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return common.Address{}, errs.Newf(errs.ErrInvalidAddress, "address %q lacks 0x prefix", s)
	}
	if len(s) != 2+2*common.AddressLength || !common.IsHexAddress(s) {
		return common.Address{}, errs.Newf(errs.ErrInvalidAddress, "address %q is malformed", s)
	}

	addr := common.HexToAddress(s)

	body := s[2:]
	if body != strings.ToLower(body) && body != strings.ToUpper(body) && addr.Hex() != s {
		return common.Address{}, errs.Newf(errs.ErrInvalidAddress, "address %q has an invalid checksum", s)
	}

	return addr, nil
}
