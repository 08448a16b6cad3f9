package security

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookflo/internal/platform/config"
)

func newTestEncryptor(t *testing.T, masterKey string) *Encryptor {
	t.Helper()
	enc, err := NewEncryptor(config.EncryptionConfig{
		MasterKey:      masterKey,
		ScryptN:        1024,
		ScryptR:        8,
		ScryptP:        1,
		KDFConcurrency: 2,
	})
	require.NoError(t, err)
	return enc
}

func TestNewEncryptorRequiresMasterKey(t *testing.T) {
	_, err := NewEncryptor(config.EncryptionConfig{})
	assert.ErrorIs(t, err, ErrMissingMasterKey)
}

func TestNewEncryptorRejectsBadCost(t *testing.T) {
	_, err := NewEncryptor(config.EncryptionConfig{MasterKey: "k", ScryptN: 1000})
	assert.Error(t, err)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := newTestEncryptor(t, "master-key")

	for _, plaintext := range []string{"abc123", "", GenerateSecret(), "üñîçødé secret"} {
		packed, err := enc.Encrypt(plaintext)
		require.NoError(t, err)

		got, err := enc.Decrypt(packed)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptPackedFormat(t *testing.T) {
	enc := newTestEncryptor(t, "master-key")

	packed, err := enc.Encrypt("abc123")
	require.NoError(t, err)

	var p map[string]string
	require.NoError(t, json.Unmarshal([]byte(packed), &p))
	for field, size := range map[string]int{"iv": ivLength, "authTag": tagLength, "salt": saltLength} {
		raw, err := base64.StdEncoding.DecodeString(p[field])
		require.NoError(t, err, field)
		assert.Len(t, raw, size, field)
	}
	raw, err := base64.StdEncoding.DecodeString(p["encrypted"])
	require.NoError(t, err)
	assert.Len(t, raw, len("abc123"))
}

func TestEncryptUsesFreshSaltAndIV(t *testing.T) {
	enc := newTestEncryptor(t, "master-key")

	a, err := enc.Encrypt("same")
	require.NoError(t, err)
	b, err := enc.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptDetectsTampering(t *testing.T) {
	enc := newTestEncryptor(t, "master-key")

	packed, err := enc.Encrypt("abc123")
	require.NoError(t, err)

	for _, field := range []string{"encrypted", "authTag"} {
		var p map[string]string
		require.NoError(t, json.Unmarshal([]byte(packed), &p))
		raw, err := base64.StdEncoding.DecodeString(p[field])
		require.NoError(t, err)

		for i := range raw {
			mutated := append([]byte(nil), raw...)
			mutated[i] ^= 0x01
			p[field] = base64.StdEncoding.EncodeToString(mutated)
			tampered, err := json.Marshal(p)
			require.NoError(t, err)

			_, err = enc.Decrypt(string(tampered))
			assert.ErrorIs(t, err, ErrDecryptionFailed, "%s byte %d", field, i)
		}
	}
}

func TestDecryptWrongKeyIsUniform(t *testing.T) {
	packed, err := newTestEncryptor(t, "master-key").Encrypt("abc123")
	require.NoError(t, err)

	_, err = newTestEncryptor(t, "other-key").Decrypt(packed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
	assert.True(t, IsEncryptionError(err))
}

func TestDecryptInvalidFormat(t *testing.T) {
	enc := newTestEncryptor(t, "master-key")
	valid, err := enc.Encrypt("abc123")
	require.NoError(t, err)

	var p map[string]string
	require.NoError(t, json.Unmarshal([]byte(valid), &p))
	shortIV := map[string]string{"encrypted": p["encrypted"], "iv": "AAAA", "authTag": p["authTag"], "salt": p["salt"]}
	shortIVJSON, _ := json.Marshal(shortIV)

	for name, packed := range map[string]string{
		"not json":    "abc123",
		"empty":       "",
		"missing iv":  `{"encrypted":"","authTag":"","salt":""}`,
		"bad base64":  `{"encrypted":"!!","iv":"!!","authTag":"!!","salt":"!!"}`,
		"short iv":    string(shortIVJSON),
		"json string": `"abc"`,
	} {
		_, err := enc.Decrypt(packed)
		assert.ErrorIs(t, err, ErrInvalidFormat, name)
	}
}

func TestDecryptContextCanceledWhileWaiting(t *testing.T) {
	enc, err := NewEncryptor(config.EncryptionConfig{MasterKey: "k", ScryptN: 1024, KDFConcurrency: 1})
	require.NoError(t, err)
	packed, err := enc.Encrypt("abc123")
	require.NoError(t, err)

	require.NoError(t, enc.kdfSlots.Acquire(context.Background(), 1))
	defer enc.kdfSlots.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = enc.DecryptContext(ctx, packed)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsEncryptionError(err))
}

func TestKeyDerivationFailureMatchesDirection(t *testing.T) {
	packed, err := newTestEncryptor(t, "k").Encrypt("abc123")
	require.NoError(t, err)

	// r*p beyond scrypt's bound makes every derivation fail.
	enc := newTestEncryptor(t, "k")
	enc.p = 1 << 28

	_, err = enc.Encrypt("abc123")
	assert.ErrorIs(t, err, ErrEncryptionFailed)

	_, err = enc.Decrypt(packed)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
