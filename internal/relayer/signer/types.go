package signer

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github/chapool/relayer/internal/relayer/contracts"
)

// UnsignedTransaction is a legacy (EIP-155) transaction ready for signing. Nonce and To are
// pointers so that a missing value can be told apart from zero.
type UnsignedTransaction struct {
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
	Nonce    *uint64
	ChainID  int64
	// Function is empty for plain value transfers.
	Function contracts.Function
}

// SignedTransaction carries the raw payload ready for eth_sendRawTransaction.
type SignedTransaction struct {
	UnsignedTransaction
	Raw  []byte
	Hash common.Hash
}

// Credentials lists the supported key sources. The first configured source wins, in field order.
type Credentials struct {
	// PrivateKey is a hex encoded secp256k1 key, with or without 0x prefix.
	PrivateKey string

	Mnemonic           string
	MnemonicPassphrase string
	DerivationPath     string

	// KeystoreJSON is a V3 keystore file, decrypted with KeystorePassword.
	KeystoreJSON     []byte
	KeystorePassword string
}

// Signer holds the operator key. The key never leaves the signer.
type Signer interface {
	Address() common.Address
	Sign(tx *UnsignedTransaction) (*SignedTransaction, error)
}
