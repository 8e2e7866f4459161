package signing_test

import (
	"encoding/hex"
	"testing"

	"storefront/pkg/signing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	keys, err := signing.GenerateKeys()
	require.NoError(t, err)
	assert.Len(t, keys.PubKey, 66)
	assert.True(t, signing.ValidPubKey(keys.PubKey))

	message := "1700000000000" + keys.PubKey
	sig, err := signing.Sign(keys, message)
	require.NoError(t, err)
	assert.Len(t, sig, 128)

	assert.True(t, signing.Verify(sig, message, keys.PubKey))
	assert.True(t, signing.Secp256k1Verifier{}.Verify(sig, message, keys.PubKey))
}

func TestVerify_TamperedMessage(t *testing.T) {
	keys, err := signing.GenerateKeys()
	require.NoError(t, err)

	message := "1700000000000" + "owner-uuid" + "Widget" + "A widget" + "1500"
	sig, err := signing.Sign(keys, message)
	require.NoError(t, err)

	for i := 0; i < len(message); i++ {
		tampered := []byte(message)
		tampered[i] ^= 0x01
		assert.False(t, signing.Verify(sig, string(tampered), keys.PubKey), "byte %d flipped", i)
	}
}

func TestVerify_WrongKey(t *testing.T) {
	signer, err := signing.GenerateKeys()
	require.NoError(t, err)
	other, err := signing.GenerateKeys()
	require.NoError(t, err)

	sig, err := signing.Sign(signer, "hello")
	require.NoError(t, err)
	assert.False(t, signing.Verify(sig, "hello", other.PubKey))
}

func TestVerify_MalformedInput(t *testing.T) {
	keys, err := signing.GenerateKeys()
	require.NoError(t, err)
	sig, err := signing.Sign(keys, "hello")
	require.NoError(t, err)

	assert.False(t, signing.Verify("", "hello", keys.PubKey))
	assert.False(t, signing.Verify("zz", "hello", keys.PubKey))
	assert.False(t, signing.Verify(sig, "hello", ""))
	assert.False(t, signing.Verify(sig, "hello", "02deadbeef"))

	zero := hex.EncodeToString(make([]byte, 64))
	assert.False(t, signing.Verify(zero, "hello", keys.PubKey))
}

func TestKeysFromPrivateKey(t *testing.T) {
	keys, err := signing.GenerateKeys()
	require.NoError(t, err)

	rebuilt, err := signing.KeysFromPrivateKey(keys.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, keys.PubKey, rebuilt.PubKey)

	_, err = signing.KeysFromPrivateKey("abc")
	assert.Error(t, err)
	_, err = signing.Sign(nil, "hello")
	assert.Error(t, err)
}
