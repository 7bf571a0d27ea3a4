package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/verdane/fleetops/internal/core"
	"github.com/verdane/fleetops/internal/model"
)

func TestEscalationPolicyCreate_InvalidJSON(t *testing.T) {
	h := NewEscalationPolicy(nil)
	rec := httptest.NewRecorder()
	r := jsonRequest(http.MethodPost, "/escalation-policies", "{bad json")

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEscalationPolicyCreate_NoTiers(t *testing.T) {
	h := NewEscalationPolicy(nil)
	rec := httptest.NewRecorder()
	r := jsonRequest(http.MethodPost, "/escalation-policies", map[string]any{
		"name":  "disk-full",
		"tiers": []any{},
	})

	h.Create(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := errorBody(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestEscalationPolicyCreate_BadTiers(t *testing.T) {
	tests := []struct {
		name string
		tier map[string]any
		want string
	}{
		{
			"unknown type",
			map[string]any{"type": "carrier-pigeon"},
			"unknown tier type",
		},
		{
			"run_script without script",
			map[string]any{"type": "run_script", "config": map[string]any{}},
			"requires script_id",
		},
		{
			"webhook without url",
			map[string]any{"type": "webhook", "config": map[string]any{}},
			"http(s) url",
		},
		{
			"webhook with ftp url",
			map[string]any{"type": "webhook", "config": map[string]any{"url": "ftp://host/hook"}},
			"http(s) url",
		},
		{
			"email without recipients",
			map[string]any{"type": "email", "config": map[string]any{"subject": "help"}},
			"requires recipients",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEscalationPolicy(nil)
			rec := httptest.NewRecorder()
			r := jsonRequest(http.MethodPost, "/escalation-policies", map[string]any{
				"name":  "disk-full",
				"tiers": []map[string]any{tt.tier},
			})

			h.Create(rec, r)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := errorBody(rec)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestEscalationPolicyCreate_Valid(t *testing.T) {
	db := &handlerMockDB{}
	db.On("Exec", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(cmdTag("INSERT", 1), nil)
	h := NewEscalationPolicy(core.NewEscalationPolicyService(db))

	rec := httptest.NewRecorder()
	r := jsonRequest(http.MethodPost, "/escalation-policies", map[string]any{
		"name": "disk-full",
		"tiers": []map[string]any{
			{"type": "webhook", "config": map[string]any{"url": "https://ops.example.com/hook"}},
			{"type": "quarantine"},
		},
	})

	h.Create(rec, r)

	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.EscalationPolicy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Len(t, created.Tiers, 2)
}
