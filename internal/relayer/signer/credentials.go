package signer

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip32"
	"github.com/tyler-smith/go-bip39"
	"github/chapool/relayer/internal/relayer/errs"
	"golang.org/x/crypto/pbkdf2"
)

const DefaultDerivationPath = "m/44'/60'/0'/0/0"

// LoadKey resolves the configured credential source into a private key.
func LoadKey(creds Credentials) (*ecdsa.PrivateKey, error) {
	switch {
	case creds.PrivateKey != "":
		key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(creds.PrivateKey), "0x"))
		if err != nil {
			return nil, errs.Wrap(errs.ErrMissingCredential, err, "private key is malformed")
		}
		return key, nil

	case creds.Mnemonic != "":
		path := creds.DerivationPath
		if path == "" {
			path = DefaultDerivationPath
		}
		return keyFromMnemonic(creds.Mnemonic, creds.MnemonicPassphrase, path)

	case len(creds.KeystoreJSON) > 0:
		k, err := keystore.DecryptKey(creds.KeystoreJSON, creds.KeystorePassword)
		if err != nil {
			return nil, errs.Wrap(errs.ErrMissingCredential, err, "failed to decrypt keystore")
		}
		return k.PrivateKey, nil
	}

	return nil, errs.New(errs.ErrMissingCredential, "no private key, mnemonic or keystore configured")
}

func keyFromMnemonic(mnemonic string, passphrase string, path string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errs.New(errs.ErrMissingCredential, "mnemonic is not a valid BIP-39 phrase")
	}

	// BIP-39: seed = PBKDF2(mnemonic, "mnemonic" + passphrase, 2048, 64, SHA512)
	const (
		pbkdf2Iterations = 2048
		pbkdf2KeyLength  = 64
	)
	seed := pbkdf2.Key([]byte(mnemonic), []byte("mnemonic"+passphrase), pbkdf2Iterations, pbkdf2KeyLength, sha512.New)
	defer clear(seed)

	indices, err := parseDerivationPath(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMissingCredential, err, "invalid derivation path")
	}

	key, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMissingCredential, err, "failed to create master key")
	}
	for _, index := range indices {
		key, err = key.NewChildKey(index)
		if err != nil {
			return nil, errs.Wrapf(errs.ErrMissingCredential, err, "failed to derive child key at index %d", index)
		}
	}

	privateKey, err := crypto.ToECDSA(key.Key)
	if err != nil {
		return nil, errs.Wrap(errs.ErrMissingCredential, err, "derived key is not a valid secp256k1 key")
	}

	return privateKey, nil
}

// parseDerivationPath parses a BIP-44 style path, e.g. "m/44'/60'/0'/0/0".
func parseDerivationPath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) < 2 || parts[0] != "m" {
		return nil, errors.Errorf("path %q must start with m/", path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'")
		part = strings.TrimSuffix(part, "'")

		index, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid path segment %q", part)
		}
		if hardened {
			index += uint64(bip32.FirstHardenedChild)
		}
		indices = append(indices, uint32(index))
	}

	return indices, nil
}
