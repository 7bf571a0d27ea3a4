// Package notify carries workflow notifications out of the engine: webhook
// posts and email delivery. Payload content is decided by the caller, this
// package only shapes and transports it.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdane/fleetops/internal/model"
	"github.com/verdane/fleetops/internal/platform"
)

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned %d", e.StatusCode)
}

// Permanent reports whether retrying the same request cannot succeed.
func (e *StatusError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// WebhookSender posts execution notifications to external endpoints.
type WebhookSender struct {
	client *http.Client
	logger zerolog.Logger
}

func NewWebhookSender(logger zerolog.Logger) *WebhookSender {
	return NewWebhookSenderWithClient(&http.Client{Timeout: 30 * time.Second}, logger)
}

// NewWebhookSenderWithClient uses a caller-provided HTTP client, for
// deployments whose hook endpoints sit behind a private CA or require a
// client certificate.
func NewWebhookSenderWithClient(client *http.Client, logger zerolog.Logger) *WebhookSender {
	return &WebhookSender{
		client: client,
		logger: logger.With().Str("component", "webhook").Logger(),
	}
}

// WebhookParams holds everything needed to deliver one webhook call.
type WebhookParams struct {
	URL       string
	Method    string
	Headers   map[string]string
	Format    string
	Event     string
	Message   string
	Execution *model.Execution
}

// Send delivers the webhook. 2xx responses succeed, 4xx responses are
// permanent failures, everything else is retryable.
func (s *WebhookSender) Send(ctx context.Context, params WebhookParams) error {
	var body []byte
	var err error

	switch params.Format {
	case model.WebhookFormatSlack:
		body, err = buildSlackPayload(params)
	default:
		body, err = buildGenericPayload(params)
	}
	if err != nil {
		return fmt.Errorf("build webhook payload: %w", err)
	}

	method := params.Method
	if method == "" {
		method = http.MethodPost
	}
	var reader io.Reader
	if method != http.MethodGet && method != http.MethodDelete {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, params.URL, reader)
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	deliveryID := platform.NewToken()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", deliveryID)
	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s %s: %w", method, params.URL, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		s.logger.Debug().
			Str("delivery_id", deliveryID).
			Str("url", params.URL).
			Int("status", resp.StatusCode).
			Msg("webhook delivered")
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode}
}

// GenericWebhookPayload is the default JSON body for webhook calls.
type GenericWebhookPayload struct {
	Event     string           `json:"event"`
	Message   string           `json:"message,omitempty"`
	Execution *model.Execution `json:"execution,omitempty"`
}

func buildGenericPayload(params WebhookParams) ([]byte, error) {
	return json.Marshal(GenericWebhookPayload{
		Event:     params.Event,
		Message:   params.Message,
		Execution: params.Execution,
	})
}

// buildSlackPayload creates a Slack Block Kit message.
func buildSlackPayload(params WebhookParams) ([]byte, error) {
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]string{
				"type": "plain_text",
				"text": params.Event,
			},
		},
	}

	if exec := params.Execution; exec != nil {
		emoji := ":gear:"
		switch exec.Status {
		case model.ExecutionFailed:
			emoji = ":rotating_light:"
		case model.ExecutionSuccess:
			emoji = ":white_check_mark:"
		}

		fields := []map[string]interface{}{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Workflow:* %s", exec.WorkflowName),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Node:* %s", exec.NodeID),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Status:* %s", exec.Status),
			},
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*Triggered by:* %s", exec.TriggeredBy),
			},
		}

		blocks = append(blocks,
			map[string]interface{}{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": fmt.Sprintf("%s *execution %s*", emoji, exec.ID),
				},
			},
			map[string]interface{}{
				"type":   "section",
				"fields": fields,
			},
		)
	}

	if params.Message != "" {
		blocks = append(blocks, map[string]interface{}{
			"type": "section",
			"text": map[string]string{
				"type": "mrkdwn",
				"text": fmt.Sprintf("```%s```", params.Message),
			},
		})
	}

	return json.Marshal(map[string]interface{}{
		"blocks": blocks,
	})
}
