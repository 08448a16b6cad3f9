package security

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/scrypt"
	"golang.org/x/sync/semaphore"

	"hookflo/internal/platform/config"
)

const (
	keyLength  = 32
	saltLength = 32
	ivLength   = 16
	tagLength  = 16
)

// ErrMissingMasterKey is returned by NewEncryptor when no master key is configured.
var ErrMissingMasterKey = config.ErrMissingMasterKey

// EncryptionError is returned for every failure to seal or open a packed secret.
// Decryption failures carry a uniform reason so callers cannot tell a corrupted
// ciphertext from a wrong key.
type EncryptionError struct {
	Reason string
}

func (e *EncryptionError) Error() string {
	return "encryption: " + e.Reason
}

var (
	ErrInvalidFormat    = &EncryptionError{Reason: "invalid format"}
	ErrDecryptionFailed = &EncryptionError{Reason: "decryption failed"}
	ErrEncryptionFailed = &EncryptionError{Reason: "encryption failed"}

	errKeyDerivation = errors.New("security: key derivation failed")
)

// packedSecret is the only form a secret is ever persisted in.
type packedSecret struct {
	Encrypted string `json:"encrypted"`
	IV        string `json:"iv"`
	AuthTag   string `json:"authTag"`
	Salt      string `json:"salt"`
}

// Encryptor seals webhook secrets with AES-256-GCM under a key derived per call
// from the master key and a random salt.
type Encryptor struct {
	masterKey []byte
	n, r, p   int
	kdfSlots  *semaphore.Weighted
}

func NewEncryptor(cfg config.EncryptionConfig) (*Encryptor, error) {
	if cfg.MasterKey == "" {
		return nil, ErrMissingMasterKey
	}

	n, r, p := cfg.ScryptN, cfg.ScryptR, cfg.ScryptP
	if n == 0 {
		n = 16384
	}
	if r == 0 {
		r = 8
	}
	if p == 0 {
		p = 1
	}
	if n <= 1 || n&(n-1) != 0 {
		return nil, fmt.Errorf("security: scrypt N must be a power of two greater than 1, got %d", n)
	}

	slots := cfg.KDFConcurrency
	if slots <= 0 {
		slots = runtime.NumCPU()
	}

	return &Encryptor{
		masterKey: []byte(cfg.MasterKey),
		n:         n,
		r:         r,
		p:         p,
		kdfSlots:  semaphore.NewWeighted(int64(slots)),
	}, nil
}

func (e *Encryptor) Encrypt(plaintext string) (string, error) {
	return e.EncryptContext(context.Background(), plaintext)
}

func (e *Encryptor) Decrypt(packed string) (string, error) {
	return e.DecryptContext(context.Background(), packed)
}

// EncryptContext returns the packed JSON form of plaintext. ctx bounds the wait
// for a key-derivation slot.
func (e *Encryptor) EncryptContext(ctx context.Context, plaintext string) (string, error) {
	salt := make([]byte, saltLength)
	iv := make([]byte, ivLength)
	if _, err := rand.Read(salt); err != nil {
		return "", ErrEncryptionFailed
	}
	if _, err := rand.Read(iv); err != nil {
		return "", ErrEncryptionFailed
	}

	key, err := e.deriveKey(ctx, salt)
	if err != nil {
		return "", sealError(err, ErrEncryptionFailed)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", ErrEncryptionFailed
	}

	sealed := aead.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-tagLength], sealed[len(sealed)-tagLength:]

	out, err := json.Marshal(packedSecret{
		Encrypted: base64.StdEncoding.EncodeToString(ciphertext),
		IV:        base64.StdEncoding.EncodeToString(iv),
		AuthTag:   base64.StdEncoding.EncodeToString(tag),
		Salt:      base64.StdEncoding.EncodeToString(salt),
	})
	if err != nil {
		return "", ErrEncryptionFailed
	}
	return string(out), nil
}

// DecryptContext opens a value produced by EncryptContext.
func (e *Encryptor) DecryptContext(ctx context.Context, packed string) (string, error) {
	ciphertext, iv, tag, salt, err := unpack(packed)
	if err != nil {
		return "", err
	}

	key, err := e.deriveKey(ctx, salt)
	if err != nil {
		return "", sealError(err, ErrDecryptionFailed)
	}

	aead, err := newAEAD(key)
	if err != nil {
		return "", ErrDecryptionFailed
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecryptionFailed
	}
	return string(plaintext), nil
}

func (e *Encryptor) deriveKey(ctx context.Context, salt []byte) ([]byte, error) {
	if err := e.kdfSlots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("security: waiting for key derivation: %w", err)
	}
	defer e.kdfSlots.Release(1)

	key, err := scrypt.Key(e.masterKey, salt, e.n, e.r, e.p, keyLength)
	if err != nil {
		return nil, errKeyDerivation
	}
	return key, nil
}

// sealError maps a failed derivation to the caller's direction. Context errors
// from waiting on a slot pass through.
func sealError(err error, failed *EncryptionError) error {
	if errors.Is(err, errKeyDerivation) {
		return failed
	}
	return err
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, ivLength)
}

func unpack(packed string) (ciphertext, iv, tag, salt []byte, err error) {
	var p packedSecret
	if jsonErr := json.Unmarshal([]byte(packed), &p); jsonErr != nil {
		return nil, nil, nil, nil, ErrInvalidFormat
	}

	fields := []struct {
		value string
		dst   *[]byte
		size  int
	}{
		{p.Encrypted, &ciphertext, -1},
		{p.IV, &iv, ivLength},
		{p.AuthTag, &tag, tagLength},
		{p.Salt, &salt, saltLength},
	}
	for _, f := range fields {
		decoded, decErr := base64.StdEncoding.DecodeString(f.value)
		if decErr != nil {
			return nil, nil, nil, nil, ErrInvalidFormat
		}
		if f.size >= 0 && len(decoded) != f.size {
			return nil, nil, nil, nil, ErrInvalidFormat
		}
		*f.dst = decoded
	}
	return ciphertext, iv, tag, salt, nil
}

// IsEncryptionError reports whether err came from sealing or opening a secret.
func IsEncryptionError(err error) bool {
	var encErr *EncryptionError
	return errors.As(err, &encErr)
}
