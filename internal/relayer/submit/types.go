package submit

import (
	"context"

	"github/chapool/relayer/internal/relayer/signer"
)

type Submitter interface {
	// Submit signs tx with a freshly read nonce and broadcasts it. It returns once the node
	// accepted the transaction into its pool; inclusion is tracked separately.
	Submit(ctx context.Context, tx *signer.UnsignedTransaction) (*signer.SignedTransaction, error)
}
