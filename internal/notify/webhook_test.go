package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdane/fleetops/internal/model"
)

func TestSend_GenericPayload(t *testing.T) {
	var received GenericWebhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Regexp(t, `^[a-z0-9]{10}$`, r.Header.Get("X-Delivery-ID"))
		assert.Equal(t, http.MethodPost, r.Method)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSender(zerolog.Nop())
	err := s.Send(context.Background(), WebhookParams{
		URL:   srv.URL,
		Event: "execution.failed",
		Execution: &model.Execution{
			ID:           "exec-1",
			WorkflowName: "disk-cleanup",
			NodeID:       "node-7",
			Status:       model.ExecutionFailed,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "execution.failed", received.Event)
	require.NotNil(t, received.Execution)
	assert.Equal(t, "exec-1", received.Execution.ID)
	assert.Equal(t, "disk-cleanup", received.Execution.WorkflowName)
}

func TestSend_SlackPayload(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewWebhookSender(zerolog.Nop())
	err := s.Send(context.Background(), WebhookParams{
		URL:     srv.URL,
		Format:  model.WebhookFormatSlack,
		Event:   "escalation",
		Message: "step restart-nginx exhausted retries",
		Execution: &model.Execution{
			ID:           "exec-2",
			WorkflowName: "nginx-recovery",
			NodeID:       "node-3",
			Status:       model.ExecutionRunning,
		},
	})

	require.NoError(t, err)
	blocks, ok := received["blocks"].([]any)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(blocks), 3)
}

func TestSend_CustomMethodAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(zerolog.Nop())
	err := s.Send(context.Background(), WebhookParams{
		URL:     srv.URL,
		Method:  http.MethodPut,
		Headers: map[string]string{"Authorization": "Bearer tok"},
		Event:   "check",
	})

	require.NoError(t, err)
}

func TestSend_ClientError_Permanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewWebhookSender(zerolog.Nop())
	err := s.Send(context.Background(), WebhookParams{URL: srv.URL, Event: "check"})

	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.True(t, statusErr.Permanent())
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestSend_ServerError_Retryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewWebhookSender(zerolog.Nop())
	err := s.Send(context.Background(), WebhookParams{URL: srv.URL, Event: "check"})

	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.False(t, statusErr.Permanent())
}

func TestSend_Unreachable(t *testing.T) {
	s := NewWebhookSender(zerolog.Nop())
	err := s.Send(context.Background(), WebhookParams{URL: "http://127.0.0.1:1", Event: "check"})

	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}
