package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"storefront/internal/services"
	"storefront/pkg/signing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestKeygenCommand(t *testing.T) {
	out, err := execute(t, "keygen")
	require.NoError(t, err)

	var keys signing.Keys
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Len(t, keys.PrivateKey, 64)
	assert.True(t, signing.ValidPubKey(keys.PubKey))
}

func TestSignCommand(t *testing.T) {
	keys, err := signing.GenerateKeys()
	require.NoError(t, err)

	out, err := execute(t, "sign", "--private-key", keys.PrivateKey, "--message", "1700000000000abc")
	require.NoError(t, err)

	var signed map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &signed))
	assert.Equal(t, keys.PubKey, signed["pubKey"])
	assert.True(t, signing.Verify(signed["signature"], "1700000000000abc", keys.PubKey))
}

func TestSignCommandRequiresFlags(t *testing.T) {
	_, err := execute(t, "sign", "--message", "hello")
	assert.Error(t, err)

	_, err = execute(t, "sign", "--private-key", "zz", "--message", "hello")
	assert.Error(t, err)
}

func TestReindexCommandOnEmptyStore(t *testing.T) {
	t.Setenv("KV_DRIVER", "memory")
	t.Setenv("APP_ENV", "test")
	t.Setenv("LOG_LEVEL", "error")

	out, err := execute(t, "reindex")
	require.NoError(t, err)

	var result services.ReindexResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Zero(t, result.Products)
	assert.Zero(t, result.Orders)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	t.Setenv("KV_DRIVER", "mongo")

	_, err := execute(t, "reindex")
	assert.Error(t, err)
}
