// Package signature provides helper functions for handling the blockchain
// hashing and signature needs.
package signature

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the number of hex characters in an address. An address
// is the hex form of an uncompressed secp256k1 public key.
const AddressLength = 130

// addressPrefix marks the uncompressed public key encoding.
const addressPrefix = "04"

// =============================================================================

// Hash returns the hex encoded SHA-256 digest of the string.
func Hash(data string) string {
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// PublicKeyToAddress converts the public key into an address.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&pk))
}

// IsAddress validates the string is formatted as an address. Outputs are
// matched to their owner by string, so only lowercase hex is accepted.
func IsAddress(address string) bool {
	if len(address) != AddressLength {
		return false
	}

	if !strings.HasPrefix(address, addressPrefix) {
		return false
	}

	for _, c := range address {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}

	return true
}

// Sign uses the specified private key to sign the hex encoded hash. The
// signature is returned as hex in the [R|S|V] format.
func Sign(hashHex string, privateKey *ecdsa.PrivateKey) (string, error) {
	digest, err := toDigest(hashHex)
	if err != nil {
		return "", err
	}

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return "", err
	}

	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, sig[:crypto.RecoveryIDOffset]) {
		return "", errors.New("invalid signature")
	}

	return hex.EncodeToString(sig), nil
}

// Verify checks the hex signature was produced over the hash by the private
// key behind the address.
func Verify(hashHex string, sigHex string, address string) error {
	if !IsAddress(address) {
		return fmt.Errorf("invalid address %q", address)
	}

	digest, err := toDigest(hashHex)
	if err != nil {
		return err
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return fmt.Errorf("signature is not hex: %w", err)
	}

	// Accept the signature with or without the recovery id.
	switch len(sig) {
	case crypto.SignatureLength:
		sig = sig[:crypto.RecoveryIDOffset]
	case crypto.SignatureLength - 1:
	default:
		return fmt.Errorf("invalid signature length %d", len(sig))
	}

	pub, err := hex.DecodeString(address)
	if err != nil {
		return fmt.Errorf("address is not hex: %w", err)
	}

	if !crypto.VerifySignature(pub, digest, sig) {
		return errors.New("signature does not match address")
	}

	return nil
}

// =============================================================================

// toDigest converts a hex encoded 32 byte hash into the bytes to sign.
func toDigest(hashHex string) ([]byte, error) {
	digest, err := hex.DecodeString(hashHex)
	if err != nil {
		return nil, fmt.Errorf("hash is not hex: %w", err)
	}

	if len(digest) != crypto.DigestLength {
		return nil, fmt.Errorf("hash must be %d bytes, got %d", crypto.DigestLength, len(digest))
	}

	return digest, nil
}
