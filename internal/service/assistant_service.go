package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-report-service/internal/config"
	apperrors "github.com/spec-kit/incident-report-service/pkg/util"
)

// assistantUnconfiguredReply is returned verbatim when no API key is set.
// The endpoint stays up in degraded mode instead of erroring.
const assistantUnconfiguredReply = "I apologize, but I'm not properly configured at the moment. " +
	"Please contact the administrator to set up the AI service."

// assistantContext prefixes every prompt so replies stay on topic.
const assistantContext = "You are the support assistant for an anonymous incident reporting " +
	"service. Help visitors submit reports, track them by track number, and understand report " +
	"statuses. Keep responses concise and informative."

// AssistantService answers free-form help questions through a hosted
// generative model.
type AssistantService struct {
	cfg    config.AssistantConfig
	client *http.Client
	logger *zap.Logger
}

// NewAssistantService constructs the service. The HTTP client carries no
// timeout of its own; every call is bounded per request.
func NewAssistantService(cfg config.AssistantConfig, logger *zap.Logger) *AssistantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssistantService{
		cfg:    cfg,
		client: &http.Client{},
		logger: logger,
	}
}

// Configured reports whether an API key is present.
func (s *AssistantService) Configured() bool {
	return strings.TrimSpace(s.cfg.APIKey) != ""
}

type assistantGenerateRequest struct {
	Contents         []assistantContent `json:"contents"`
	GenerationConfig assistantGenConfig `json:"generationConfig"`
}

type assistantContent struct {
	Parts []assistantPart `json:"parts"`
}

type assistantPart struct {
	Text string `json:"text"`
}

type assistantGenConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
}

type assistantGenerateResponse struct {
	Candidates []struct {
		Content assistantContent `json:"content"`
	} `json:"candidates"`
}

// Reply sends one user message to the model and returns its answer. Without
// an API key it returns a fixed not-configured reply rather than an error, so
// the widget keeps rendering something useful.
func (s *AssistantService) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperrors.NewValidationError("message is required", nil)
	}

	if !s.Configured() {
		s.logger.Warn("assistant called without an API key; replying in degraded mode")
		return assistantUnconfiguredReply, nil
	}

	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prompt := fmt.Sprintf("%s\n\nUser: %s\n\nAssistant:", assistantContext, message)
	payload := assistantGenerateRequest{
		Contents: []assistantContent{{Parts: []assistantPart{{Text: prompt}}}},
		GenerationConfig: assistantGenConfig{
			Temperature:     0.7,
			MaxOutputTokens: 200,
			TopK:            40,
			TopP:            0.8,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.Model, url.QueryEscape(s.cfg.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("assistant model call failed", zap.Error(err))
		return "", apperrors.MapError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("assistant model returned non-OK status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return "", apperrors.NewInternalError(fmt.Errorf("model returned status %d", resp.StatusCode))
	}

	var parsed assistantGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", apperrors.NewInternalError(err)
	}
	text := firstCandidateText(parsed)
	if text == "" {
		return "", apperrors.NewInternalError(fmt.Errorf("model returned no candidates"))
	}
	return text, nil
}

func firstCandidateText(resp assistantGenerateResponse) string {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if trimmed := strings.TrimSpace(part.Text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
