package signer_test

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/relayer/internal/relayer/contracts"
	"github/chapool/relayer/internal/relayer/errs"
	"github/chapool/relayer/internal/relayer/signer"
)

const (
	testKey     = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	testAddress = "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23"

	testMnemonic        = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testMnemonicAddress = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
)

func TestMissingCredential(t *testing.T) {
	_, err := signer.NewService(signer.Credentials{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrMissingCredential))

	_, err = signer.NewService(signer.Credentials{PrivateKey: "0x1234"})
	assert.True(t, errors.Is(err, errs.ErrMissingCredential))

	_, err = signer.NewService(signer.Credentials{Mnemonic: "abandon abandon"})
	assert.True(t, errors.Is(err, errs.ErrMissingCredential))

	_, err = signer.NewService(signer.Credentials{Mnemonic: testMnemonic, DerivationPath: "44'/60'"})
	assert.True(t, errors.Is(err, errs.ErrMissingCredential))
}

func TestPrivateKeyCredential(t *testing.T) {
	s, err := signer.NewService(signer.Credentials{PrivateKey: testKey})
	require.NoError(t, err)
	assert.Equal(t, testAddress, s.Address().Hex())

	withoutPrefix, err := signer.NewService(signer.Credentials{PrivateKey: testKey[2:]})
	require.NoError(t, err)
	assert.Equal(t, s.Address(), withoutPrefix.Address())

	assert.NotContains(t, fmt.Sprintf("%v", s), testKey[2:])
}

func TestMnemonicCredential(t *testing.T) {
	s, err := signer.NewService(signer.Credentials{Mnemonic: testMnemonic})
	require.NoError(t, err)
	assert.Equal(t, testMnemonicAddress, s.Address().Hex())

	other, err := signer.NewService(signer.Credentials{Mnemonic: testMnemonic, DerivationPath: "m/44'/60'/0'/0/1"})
	require.NoError(t, err)
	assert.NotEqual(t, s.Address(), other.Address())

	withPassphrase, err := signer.NewService(signer.Credentials{Mnemonic: testMnemonic, MnemonicPassphrase: "secret"})
	require.NoError(t, err)
	assert.NotEqual(t, s.Address(), withPassphrase.Address())
}

func TestKeystoreCredential(t *testing.T) {
	key, err := crypto.HexToECDSA(testKey[2:])
	require.NoError(t, err)

	blob, err := keystore.EncryptKey(&keystore.Key{
		Id:         uuid.New(),
		Address:    crypto.PubkeyToAddress(key.PublicKey),
		PrivateKey: key,
	}, "pw", keystore.LightScryptN, keystore.LightScryptP)
	require.NoError(t, err)

	s, err := signer.NewService(signer.Credentials{KeystoreJSON: blob, KeystorePassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, testAddress, s.Address().Hex())

	_, err = signer.NewService(signer.Credentials{KeystoreJSON: blob, KeystorePassword: "wrong"})
	assert.True(t, errors.Is(err, errs.ErrMissingCredential))
}

func unsigned() *signer.UnsignedTransaction {
	to := common.HexToAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	nonce := uint64(3)
	return &signer.UnsignedTransaction{
		To:       &to,
		Value:    big.NewInt(10_000_000_000_000_000),
		GasLimit: contracts.GasLimitValueTransfer,
		GasPrice: big.NewInt(1_000_000_000),
		Nonce:    &nonce,
		ChainID:  1,
	}
}

func TestSign(t *testing.T) {
	s, err := signer.NewService(signer.Credentials{PrivateKey: testKey})
	require.NoError(t, err)

	signed, err := s.Sign(unsigned())
	require.NoError(t, err)
	assert.Len(t, signed.Hash.Bytes(), 32)
	assert.NotEmpty(t, signed.Raw)

	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(signed.Raw))
	assert.Equal(t, signed.Hash, tx.Hash())
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, int64(1), tx.ChainId().Int64())
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())

	from, err := types.Sender(types.NewEIP155Signer(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, s.Address(), from)

	again, err := s.Sign(unsigned())
	require.NoError(t, err)
	assert.Equal(t, signed.Raw, again.Raw)
}

func TestSignRejectsIncompleteTransactions(t *testing.T) {
	s, err := signer.NewService(signer.Credentials{PrivateKey: testKey})
	require.NoError(t, err)

	noTo := unsigned()
	noTo.To = nil
	noNonce := unsigned()
	noNonce.Nonce = nil
	noChain := unsigned()
	noChain.ChainID = 0

	for _, tx := range []*signer.UnsignedTransaction{nil, noTo, noNonce, noChain} {
		_, err := s.Sign(tx)
		assert.True(t, errors.Is(err, errs.ErrInvalidTransaction))
	}
}
