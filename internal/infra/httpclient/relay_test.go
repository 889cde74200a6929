package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRelayClientSend(t *testing.T) {
	var got RelayMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		require.NoError(t, sonic.Unmarshal(b, &got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1"}`))
	}))
	defer srv.Close()

	c := NewRelayClient(srv.URL, "secret", zap.NewNop())
	resp, err := c.Send(context.Background(), RelayMessage{
		From: "desk@example.com", To: []string{"a@example.com"}, Subject: "hi", Text: "body",
	})
	require.NoError(t, err)
	assert.Equal(t, "msg_1", resp.ID)
	assert.Equal(t, []string{"a@example.com"}, got.To)
	assert.Equal(t, "hi", got.Subject)
}

func TestRelayClientSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad sender", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewRelayClient(srv.URL, "", zap.NewNop())
	_, err := c.Send(context.Background(), RelayMessage{To: []string{"a@example.com"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestRelayClientSendEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	resp, err := NewRelayClient(srv.URL, "", zap.NewNop()).Send(context.Background(), RelayMessage{})
	require.NoError(t, err)
	assert.Empty(t, resp.ID)
}
