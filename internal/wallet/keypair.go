// Package wallet loads the Solana keypair that signs venue operations.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

// Keypair is an ed25519 key in Solana's 64 byte layout (seed || public key).
type Keypair struct {
	private ed25519.PrivateKey
	public  string
}

// FromSecret builds a keypair from 64 secret key bytes and checks that the
// embedded public key matches the seed and is a valid curve point.
func FromSecret(secret []byte) (*Keypair, error) {
	if len(secret) != ed25519.PrivateKeySize {
		return nil, errors.Errorf("secret key must be %d bytes, got %d", ed25519.PrivateKeySize, len(secret))
	}

	derived := ed25519.NewKeyFromSeed(secret[:ed25519.SeedSize])
	pub := derived.Public().(ed25519.PublicKey)
	if string(pub) != string(secret[ed25519.SeedSize:]) {
		return nil, errors.New("public key does not match secret seed")
	}
	if !isOnCurve(pub) {
		return nil, errors.New("public key is not a valid ed25519 point")
	}

	return &Keypair{private: derived, public: base58.Encode(pub)}, nil
}

// FromBase58 parses a base58-encoded 64 byte secret key, as exported by wallets.
func FromBase58(s string) (*Keypair, error) {
	raw, err := base58.Decode(strings.TrimSpace(s))
	if err != nil {
		return nil, errors.Wrap(err, "decode base58 secret key")
	}
	return FromSecret(raw)
}

// LoadFile reads a keypair file written by solana-keygen (JSON array of 64 bytes).
func LoadFile(path string) (*Keypair, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}

	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read keypair file %s", path)
	}

	var ints []int
	if err := json.Unmarshal(payload, &ints); err != nil {
		return nil, errors.Wrapf(err, "parse keypair file %s", path)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, errors.Errorf("keypair byte %d out of range: %d", i, v)
		}
		raw[i] = byte(v)
	}

	return FromSecret(raw)
}

// Generate creates a random keypair.
func Generate() (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "generate keypair")
	}
	return FromSecret(priv)
}

// PublicKey returns the base58 encoded public key.
func (k *Keypair) PublicKey() string {
	return k.public
}

// Sign signs the message with the private key.
func (k *Keypair) Sign(message []byte) ([]byte, error) {
	if k == nil || len(k.private) == 0 {
		return nil, errors.New("keypair is not initialized")
	}
	return ed25519.Sign(k.private, message), nil
}

// Verify checks a signature made by the owner of the base58 public key.
func Verify(publicKey string, message, signature []byte) bool {
	pub, err := base58.Decode(publicKey)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, signature)
}

func isOnCurve(point []byte) bool {
	if len(point) != ed25519.PublicKeySize {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, path[2:]), nil
}
