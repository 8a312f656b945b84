// Package keystore keeps the treasury signing key encrypted at rest. Payout
// transactions are funded and signed with this key.
package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"

	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"golang.org/x/crypto/argon2"
)

const (
	// Argon2id parameters for key encryption.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// Encryption format sizes.
	SaltLen     = 16
	NonceLen    = 12
	ChecksumLen = 4

	// KeyLen is the length of a serialized secp256k1 private key.
	KeyLen = 32

	// DefaultFileName is the key file name inside the data directory.
	DefaultFileName = "treasury.enc"
)

// Encrypt seals priv with Argon2id + AES-256-GCM.
//
// Output format: salt(16B) || nonce(12B) || AES-GCM(argon2id(password,salt), nonce, key||checksum)
func Encrypt(priv *ec.PrivateKey, password string) ([]byte, error) {
	if priv == nil {
		return nil, fmt.Errorf("%w: private key", ErrNilParam)
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}

	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keystore: failed to generate salt: %w", err)
	}

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	key := priv.Serialize()
	sum := sha256.Sum256(key)
	plaintext := make([]byte, 0, len(key)+ChecksumLen)
	plaintext = append(plaintext, key...)
	plaintext = append(plaintext, sum[:ChecksumLen]...)

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("keystore: failed to generate nonce: %w", err)
	}
	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	out := make([]byte, 0, SaltLen+NonceLen+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decrypt opens a blob produced by Encrypt.
func Decrypt(blob []byte, password string) (*ec.PrivateKey, error) {
	if len(blob) < SaltLen+NonceLen+ChecksumLen {
		return nil, ErrDecryptionFailed
	}
	salt := blob[:SaltLen]
	nonce := blob[SaltLen : SaltLen+NonceLen]
	ciphertext := blob[SaltLen+NonceLen:]

	gcm, err := newGCM(password, salt)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if len(plaintext) != KeyLen+ChecksumLen {
		return nil, ErrDecryptionFailed
	}

	key := plaintext[:KeyLen]
	sum := sha256.Sum256(key)
	if subtle.ConstantTimeCompare(sum[:ChecksumLen], plaintext[KeyLen:]) != 1 {
		return nil, ErrChecksumMismatch
	}

	priv, _ := ec.PrivateKeyFromBytes(key)
	return priv, nil
}

// Save encrypts priv and writes it to path with owner-only permissions.
func Save(path string, priv *ec.PrivateKey, password string) error {
	blob, err := Encrypt(priv, password)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("keystore: create directory: %w", err)
	}
	if err := os.WriteFile(path, blob, 0600); err != nil {
		return fmt.Errorf("keystore: write key file: %w", err)
	}
	return nil
}

// Load reads and decrypts the key file at path.
func Load(path, password string) (*ec.PrivateKey, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keystore: read key file: %w", err)
	}
	return Decrypt(blob, password)
}

func newGCM(password string, salt []byte) (cipher.AEAD, error) {
	derived := argon2.IDKey([]byte(password), salt, Argon2Time, Argon2Memory, Argon2Parallelism, Argon2KeyLen)
	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("keystore: AES cipher creation failed: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("keystore: GCM creation failed: %w", err)
	}
	return gcm, nil
}
