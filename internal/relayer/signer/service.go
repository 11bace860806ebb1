package signer

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github/chapool/relayer/internal/relayer/errs"
)

type service struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewService loads the operator key from creds. The address is derived once here.
//
//nolint:ireturn // Returning interface is intentional
func NewService(creds Credentials) (Signer, error) {
	key, err := LoadKey(creds)
	if err != nil {
		return nil, err
	}
	return NewFromKey(key), nil
}

//nolint:ireturn
func NewFromKey(key *ecdsa.PrivateKey) Signer {
	return &service{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

func (s *service) Address() common.Address {
	return s.address
}

// String keeps the key out of formatted output.
func (s *service) String() string {
	return "signer(" + s.address.Hex() + ")"
}

// Sign produces an EIP-155 legacy transaction. Signatures are deterministic (RFC 6979).
func (s *service) Sign(tx *UnsignedTransaction) (*SignedTransaction, error) {
	switch {
	case tx == nil:
		return nil, errs.New(errs.ErrInvalidTransaction, "transaction is nil")
	case tx.To == nil:
		return nil, errs.New(errs.ErrInvalidTransaction, "transaction has no recipient")
	case tx.Nonce == nil:
		return nil, errs.New(errs.ErrInvalidTransaction, "transaction has no nonce")
	case tx.ChainID <= 0:
		return nil, errs.New(errs.ErrInvalidTransaction, "transaction has no chain id")
	}

	legacy := types.NewTx(&types.LegacyTx{
		Nonce:    *tx.Nonce,
		GasPrice: tx.GasPrice,
		Gas:      tx.GasLimit,
		To:       tx.To,
		Value:    tx.Value,
		Data:     tx.Data,
	})

	signedTx, err := types.SignTx(legacy, types.NewEIP155Signer(big.NewInt(tx.ChainID)), s.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal transaction")
	}

	out := &SignedTransaction{
		UnsignedTransaction: *tx,
		Raw:                 raw,
		Hash:                signedTx.Hash(),
	}
	out.Data = append([]byte(nil), tx.Data...)

	return out, nil
}
