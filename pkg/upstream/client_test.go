package upstream_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/errs"
	"storefront/pkg/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorded struct {
	method string
	path   string
	body   []byte
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, chan recorded) {
	t.Helper()
	calls := make(chan recorded, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		calls <- recorded{method: r.Method, path: r.URL.Path, body: body}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func TestClient_CreateUser(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"uuid":"splitter-uuid"}`)
	client := upstream.NewClient(srv.URL+"/", time.Second, zap.NewNop())

	ref, err := client.CreateUser(context.Background(), upstream.Registration{Timestamp: "1", PubKey: "02ab", Signature: "sig"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"splitter-uuid"}`, string(ref))

	call := <-calls
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/user/create", call.path)
	var sent upstream.Registration
	require.NoError(t, json.Unmarshal(call.body, &sent))
	assert.Equal(t, "02ab", sent.PubKey)
}

func TestClient_CreateIntent(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"paymentIntent":"pi_1"}`)
	client := upstream.NewClient(srv.URL, time.Second, zap.NewNop())

	intent, err := client.CreateIntent(context.Background(), "stripe", upstream.Intent{
		Timestamp: "1", UUID: "buyer-1", Amount: 1500, Currency: "usd", Signature: "sig",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"paymentIntent":"pi_1"}`, string(intent))

	call := <-calls
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/user/buyer-1/processor/stripe/intent-without-splits", call.path)
}

func TestClient_AttachProcessor(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"uuid":"splitter-uuid","stripeAccountId":"acct"}`)
	client := upstream.NewClient(srv.URL, time.Second, zap.NewNop())

	_, err := client.AttachProcessor(context.Background(), "splitter-uuid", "stripe", json.RawMessage(`{"country":"US"}`))
	require.NoError(t, err)

	call := <-calls
	assert.Equal(t, "/user/splitter-uuid/processor/stripe", call.path)
	assert.JSONEq(t, `{"country":"US"}`, string(call.body))
}

func TestClient_ErrorStatusIsUpstreamError(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	client := upstream.NewClient(srv.URL, time.Second, zap.NewNop())

	_, err := client.CreateUser(context.Background(), upstream.Registration{})
	assert.ErrorIs(t, err, errs.ErrUpstream)
}

func TestClient_UnreachableIsUpstreamError(t *testing.T) {
	client := upstream.NewClient("http://127.0.0.1:1", 200*time.Millisecond, zap.NewNop())

	_, err := client.CreateUser(context.Background(), upstream.Registration{})
	assert.ErrorIs(t, err, errs.ErrUpstream)
}

func TestClient_CanceledContext(t *testing.T) {
	client := upstream.NewClient("http://127.0.0.1:1", time.Second, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.CreateUser(ctx, upstream.Registration{})
	assert.ErrorIs(t, err, errs.ErrUpstream)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_UnparsableTargetReleasesAgent(t *testing.T) {
	bad := upstream.NewClient("ftp://127.0.0.1", time.Second, zap.NewNop())
	for i := 0; i < 100; i++ {
		_, err := bad.CreateUser(context.Background(), upstream.Registration{})
		require.ErrorIs(t, err, errs.ErrUpstream)
	}

	// Agents returned to the pool on the failure path are reusable.
	srv, _ := newServer(t, http.StatusOK, `{"uuid":"splitter-1"}`)
	good := upstream.NewClient(srv.URL, time.Second, zap.NewNop())
	out, err := good.CreateUser(context.Background(), upstream.Registration{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"uuid":"splitter-1"}`, string(out))
}
