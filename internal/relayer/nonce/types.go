// Package nonce serialises nonce assignment and broadcast per chain and signing address.
package nonce

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Unlock releases a lock taken with Locker.Lock. Calling it more than once is a no-op.
type Unlock func()

// Locker hands out exclusive submission locks. Lock blocks until the lock is held or ctx is done.
type Locker interface {
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Key is the lock key of one signing address on one chain.
func Key(chainID int64, address common.Address) string {
	return fmt.Sprintf("%d:%s", chainID, address.Hex())
}
