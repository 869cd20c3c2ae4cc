package wallet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeypair_SignVerify(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	msg := []byte("withdraw 58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2")
	sig, err := kp.Sign(msg)
	require.NoError(t, err)

	assert.True(t, Verify(kp.PublicKey(), msg, sig))
	assert.False(t, Verify(kp.PublicKey(), []byte("deposit"), sig))
	assert.False(t, Verify("not-a-key", msg, sig))
}

func TestLoadFile(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	ints := make([]int, len(kp.private))
	for i, b := range kp.private {
		ints[i] = int(b)
	}
	payload, err := json.Marshal(ints)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "id.json")
	require.NoError(t, os.WriteFile(path, payload, 0o600))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), loaded.PublicKey())
}

func TestLoadFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	short := filepath.Join(dir, "short.json")
	require.NoError(t, os.WriteFile(short, []byte("[1,2,3]"), 0o600))
	_, err := LoadFile(short)
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte("{}"), 0o600))
	_, err = LoadFile(garbage)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestFromBase58(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	restored, err := FromBase58(base58.Encode(kp.private))
	require.NoError(t, err)
	assert.Equal(t, kp.PublicKey(), restored.PublicKey())

	tampered := append([]byte{}, kp.private...)
	tampered[63] ^= 0xff
	_, err = FromSecret(tampered)
	assert.Error(t, err)
}
