// Package signing implements the request-signing primitive: secp256k1 ECDSA over the
// Keccak-256 digest of a UTF-8 message. Public keys travel as hex-encoded compressed points
// and signatures as hex-encoded 64-byte r||s.
//
// Every function takes the keypair it uses explicitly; nothing in this package holds a
// "current signer".
package signing

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const compactSignatureLen = 64

// Keys is a secp256k1 keypair in its hex wire form.
type Keys struct {
	PrivateKey string `json:"privateKey"`
	PubKey     string `json:"pubKey"`
}

// Verifier checks a signature over a message against a public key.
type Verifier interface {
	Verify(signature, message, pubKey string) bool
}

// Secp256k1Verifier is the production Verifier.
type Secp256k1Verifier struct{}

// Verify implements Verifier.
func (Secp256k1Verifier) Verify(signature, message, pubKey string) bool {
	return Verify(signature, message, pubKey)
}

// GenerateKeys creates a fresh keypair.
func GenerateKeys() (*Keys, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate secp256k1 key: %w", err)
	}
	return &Keys{
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		PubKey:     hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}, nil
}

// KeysFromPrivateKey rebuilds a keypair from a hex private key.
func KeysFromPrivateKey(privateKeyHex string) (*Keys, error) {
	priv, err := parsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}
	return &Keys{
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		PubKey:     hex.EncodeToString(priv.PubKey().SerializeCompressed()),
	}, nil
}

// Sign signs message with keys and returns the hex r||s signature.
func Sign(keys *Keys, message string) (string, error) {
	if keys == nil {
		return "", fmt.Errorf("no keys to sign with")
	}
	priv, err := parsePrivateKey(keys.PrivateKey)
	if err != nil {
		return "", err
	}
	// SignCompact prefixes a recovery byte; the wire format is the remaining r||s.
	compact := ecdsa.SignCompact(priv, digest(message), true)
	return hex.EncodeToString(compact[1:]), nil
}

// Verify reports whether signature is a valid signature of message by pubKey.
// Malformed input of any kind yields false.
func Verify(signature, message, pubKey string) bool {
	keyBytes, err := hex.DecodeString(pubKey)
	if err != nil {
		return false
	}
	pub, err := secp256k1.ParsePubKey(keyBytes)
	if err != nil {
		return false
	}
	sig, err := parseSignature(signature)
	if err != nil {
		return false
	}
	return sig.Verify(digest(message), pub)
}

// ValidPubKey reports whether pubKey is a hex-encoded compressed secp256k1 point.
func ValidPubKey(pubKey string) bool {
	keyBytes, err := hex.DecodeString(pubKey)
	if err != nil || len(keyBytes) != secp256k1.PubKeyBytesLenCompressed {
		return false
	}
	_, err = secp256k1.ParsePubKey(keyBytes)
	return err == nil
}

func digest(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(message))
	return h.Sum(nil)
}

func parsePrivateKey(privateKeyHex string) (*secp256k1.PrivateKey, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil || len(raw) != secp256k1.PrivKeyBytesLen {
		return nil, fmt.Errorf("invalid private key")
	}
	return secp256k1.PrivKeyFromBytes(raw), nil
}

func parseSignature(signature string) (*ecdsa.Signature, error) {
	raw, err := hex.DecodeString(signature)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if len(raw) != compactSignatureLen {
		// Some clients send DER.
		return ecdsa.ParseDERSignature(raw)
	}

	var r, s secp256k1.ModNScalar
	if overflow := r.SetByteSlice(raw[:32]); overflow || r.IsZero() {
		return nil, fmt.Errorf("invalid signature r")
	}
	if overflow := s.SetByteSlice(raw[32:]); overflow || s.IsZero() {
		return nil, fmt.Errorf("invalid signature s")
	}
	return ecdsa.NewSignature(&r, &s), nil
}
