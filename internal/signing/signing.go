// Package signing implements the asymmetric authenticity mechanism for
// payment outcomes. The gateway signs every settlement notification with its
// RSA private key; the orchestrator and the ticket issuer verify with the
// public key before trusting the event. Both sides operate on the same
// canonical byte form, timestamp|message, so a payload whose body or
// timestamp was altered after signing always fails verification.
package signing

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/iliyamo/cruise-reservation/internal/errs"
)

// KeyBits is the RSA modulus size used by the keygen utility.
const KeyBits = 2048

// Canonical builds the byte representation covered by the signature. The
// separator makes the pair unambiguous: neither field may be moved into the
// other without changing the digest.
func Canonical(timestamp, message string) []byte {
	return []byte(timestamp + "|" + message)
}

// Sign produces a hex-encoded PKCS#1 v1.5 signature over the SHA-256 digest
// of payload.
func Sign(key *rsa.PrivateKey, payload []byte) (string, error) {
	digest := sha256.Sum256(payload)
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return hex.EncodeToString(sig), nil
}

// Verify checks a hex-encoded signature against payload. Any failure, from
// malformed hex to a digest mismatch, is reported as errs.ErrBadSignature so
// consumers can dead-letter the delivery without inspecting the cause.
func Verify(pub *rsa.PublicKey, payload []byte, hexSig string) error {
	sig, err := hex.DecodeString(hexSig)
	if err != nil {
		return errs.ErrBadSignature
	}
	digest := sha256.Sum256(payload)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig); err != nil {
		return errs.ErrBadSignature
	}
	return nil
}

// GenerateKey creates a fresh RSA keypair for the keygen utility and tests.
func GenerateKey() (*rsa.PrivateKey, error) {
	return rsa.GenerateKey(rand.Reader, KeyBits)
}

// EncodePrivatePEM serializes a private key in PKCS#8 PEM form.
func EncodePrivatePEM(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

// EncodePublicPEM serializes the public half in PKIX PEM form.
func EncodePublicPEM(key *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}), nil
}

// LoadPrivateKey reads a PEM-encoded RSA private key from path. Both PKCS#8
// and PKCS#1 encodings are accepted.
func LoadPrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("private key: no PEM block found")
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		rsaKey, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, errors.New("private key: not an RSA key")
		}
		return rsaKey, nil
	}
	return x509.ParsePKCS1PrivateKey(block.Bytes)
}

// LoadPublicKey reads a PEM-encoded RSA public key from path.
func LoadPublicKey(path string) (*rsa.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("public key: no PEM block found")
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key: not an RSA key")
	}
	return pub, nil
}
