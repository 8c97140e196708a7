package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/integration"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/domain/shared"
	"golang.org/x/crypto/hkdf"
)

// Algorithm is the tag stored alongside every credential sealed by this vault
const Algorithm = "aes-256-gcm"

const (
	keySize   = 32
	nonceSize = 12
	hkdfInfo  = "cfo-sync credential vault v1"
)

var (
	ErrEmptyKey         = errors.New("vault: encryption key is required")
	ErrMalformed        = errors.New("vault: malformed ciphertext")
	ErrUnknownAlgorithm = errors.New("vault: unsupported algorithm")
	ErrAuthFailed       = errors.New("vault: message authentication failed")
)

// Vault seals credentials with AES-256-GCM. Ciphertexts are stored as
// hex(nonce) ":" hex(sealed), where sealed carries the GCM tag.
type Vault struct {
	aead cipher.AEAD
	rand io.Reader
}

var _ integration.CredentialVault = (*Vault)(nil)

// NewVault builds a vault from keyMaterial. 64 hex characters are used as the
// raw 256-bit key; anything else is treated as a passphrase and stretched with HKDF-SHA256.
func NewVault(keyMaterial string) (*Vault, error) {
	key, err := DeriveKey(keyMaterial)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: create gcm: %w", err)
	}
	return &Vault{aead: aead, rand: rand.Reader}, nil
}

// DeriveKey turns configured key material into a 256-bit key
func DeriveKey(keyMaterial string) ([]byte, error) {
	material := strings.TrimSpace(keyMaterial)
	if material == "" {
		return nil, ErrEmptyKey
	}
	if len(material) == keySize*2 {
		if raw, err := hex.DecodeString(material); err == nil {
			return raw, nil
		}
	}
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(material), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("vault: derive key: %w", err)
	}
	return key, nil
}

// Encrypt seals plaintext under a fresh random nonce, so equal inputs
// produce different ciphertexts.
func (v *Vault) Encrypt(plaintext string) (integration.Credential, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(v.rand, nonce); err != nil {
		return integration.Credential{}, &shared.EncryptionError{Op: "encrypt", Err: err}
	}
	sealed := v.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return integration.Credential{
		Ciphertext: hex.EncodeToString(nonce) + ":" + hex.EncodeToString(sealed),
		Algorithm:  Algorithm,
	}, nil
}

// Decrypt opens a credential sealed by Encrypt under the same key
func (v *Vault) Decrypt(credential integration.Credential) (string, error) {
	if credential.Algorithm != "" && credential.Algorithm != Algorithm {
		return "", &shared.EncryptionError{Op: "decrypt", Err: fmt.Errorf("%w: %s", ErrUnknownAlgorithm, credential.Algorithm)}
	}

	nonceHex, sealedHex, ok := strings.Cut(credential.Ciphertext, ":")
	if !ok {
		return "", &shared.EncryptionError{Op: "decrypt", Err: ErrMalformed}
	}
	nonce, err := hex.DecodeString(nonceHex)
	if err != nil || len(nonce) != nonceSize {
		return "", &shared.EncryptionError{Op: "decrypt", Err: ErrMalformed}
	}
	sealed, err := hex.DecodeString(sealedHex)
	if err != nil || len(sealed) < v.aead.Overhead() {
		return "", &shared.EncryptionError{Op: "decrypt", Err: ErrMalformed}
	}

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", &shared.EncryptionError{Op: "decrypt", Err: ErrAuthFailed}
	}
	return string(plaintext), nil
}
