// -----------------------------------------------------------------------
// Package llm is the single gateway for model calls: Claude completions,
// Gemini embeddings, retry, rate limiting, and usage accounting
// -----------------------------------------------------------------------

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/ternarybob/colligo/internal/common"
	"github.com/ternarybob/colligo/internal/interfaces"
	"github.com/ternarybob/colligo/internal/models"
)

// ErrMalformedResponse indicates the model returned something that could
// not be parsed as a JSON object. Malformed responses are not retried.
var ErrMalformedResponse = errors.New("malformed model response")

// Service implements interfaces.Gateway over the Anthropic API for
// completions and the Gemini API for embeddings.
type Service struct {
	config  *common.Config
	logger  arbor.ILogger
	claude  anthropic.Client
	gemini  *genai.Client
	retry   *RetrySchedule
	limiter *rate.Limiter
	timeout time.Duration

	mu    sync.Mutex
	usage models.Usage
}

var _ interfaces.Gateway = (*Service)(nil)

// NewService creates the model gateway.
//
// Parameters:
//   - ctx: Context for client initialization
//   - config: Application configuration with API keys and retry settings
//   - logger: Structured logger for gateway operations
//
// Returns:
//   - *Service: Initialized gateway ready for use
//   - error: nil on success, error with details on failure
func NewService(ctx context.Context, config *common.Config, logger arbor.ILogger) (*Service, error) {
	if config.Claude.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set COLLIGO_ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	timeout, err := time.ParseDuration(config.Claude.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", config.Claude.Timeout, err)
	}

	interval, err := time.ParseDuration(config.Claude.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate_limit duration '%s': %w", config.Claude.RateLimit, err)
	}

	schedule, err := NewRetrySchedule(config.Retry)
	if err != nil {
		return nil, err
	}

	service := &Service{
		config:  config,
		logger:  logger,
		retry:   schedule,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		timeout: timeout,
		claude: anthropic.NewClient(
			option.WithAPIKey(config.Claude.APIKey),
		),
	}

	if config.Gemini.APIKey != "" {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  config.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize genai client: %w", err)
		}
		service.gemini = client
	}

	logger.Debug().
		Str("model", config.Claude.Model).
		Str("embed_model", config.Gemini.EmbedModel).
		Dur("timeout", timeout).
		Int("max_retries", schedule.MaxRetries).
		Msg("Model gateway initialized")

	return service, nil
}

// Complete generates a text completion with retry and rate limiting.
// Zero request values fall back to the configured defaults.
func (s *Service) Complete(ctx context.Context, req interfaces.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.Claude.MaxTokens
	}
	temp := req.Temperature
	if temp <= 0 {
		temp = s.config.Claude.Temperature
	}
	model := req.Model
	if model == "" {
		model = s.config.Claude.Model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(float64(temp)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	var resp *anthropic.Message
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter wait failed: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resp, apiErr = s.claude.Messages.New(callCtx, params)
		cancel()

		if apiErr == nil {
			break
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.Backoff(attempt)
		s.logger.Warn().
			Err(apiErr).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Bool("rate_limited", IsRateLimitError(apiErr)).
			Msg("Completion failed, retrying")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return "", fmt.Errorf("completion failed after %d attempts: %w", s.retry.MaxRetries+1, apiErr)
	}

	s.recordCompletionUsage(resp, model)

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("no text content in model response")
	}

	return text.String(), nil
}

// CompleteJSON generates a completion and parses it as a JSON object.
// Markdown code fences around the payload are stripped first. A payload
// that still fails to parse returns ErrMalformedResponse without retry.
func (s *Service) CompleteJSON(ctx context.Context, req interfaces.CompletionRequest) (map[string]any, error) {
	response, err := s.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseJSONObject(response)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("response", truncate(response, 500)).
			Msg("Model returned unparseable JSON")
		return nil, err
	}

	return parsed, nil
}

// Embed generates embeddings for the texts, preserving input order.
// Requests are batched per the configured batch size.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.gemini == nil {
		return nil, fmt.Errorf("Google API key is required for embeddings (set COLLIGO_GOOGLE_API_KEY or gemini.api_key in config)")
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	batchSize := s.config.Gemini.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	outputDim := int32(s.config.Gemini.EmbedDimension)
	embedConfig := &genai.EmbedContentConfig{
		OutputDimensionality: &outputDim,
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedBatch(ctx, texts[start:end], embedConfig)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d failed: %w", start/batchSize, err)
		}
		embeddings = append(embeddings, batch...)
	}

	s.logger.Debug().
		Int("text_count", len(texts)).
		Int("dimension", s.config.Gemini.EmbedDimension).
		Msg("Generated embeddings")

	return embeddings, nil
}

// embedBatch embeds a single batch with retry.
func (s *Service) embedBatch(ctx context.Context, texts []string, config *genai.EmbedContentConfig) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	var result *genai.EmbedContentResponse
	var apiErr error

	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		result, apiErr = s.gemini.Models.EmbedContent(callCtx, s.config.Gemini.EmbedModel, contents, config)
		cancel()

		if apiErr == nil {
			break
		}
		if attempt == s.retry.MaxRetries {
			break
		}

		backoff := s.retry.Backoff(attempt)
		s.logger.Warn().
			Err(apiErr).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Embedding call failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if apiErr != nil {
		return nil, fmt.Errorf("embedding failed after %d attempts: %w", s.retry.MaxRetries+1, apiErr)
	}

	if result == nil || len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	embeddings := make([][]float32, 0, len(texts))
	for _, item := range result.Embeddings {
		if len(item.Values) == 0 {
			return nil, fmt.Errorf("empty embedding returned from API")
		}
		embeddings = append(embeddings, item.Values)
	}

	s.mu.Lock()
	s.usage.Requests++
	s.mu.Unlock()

	return embeddings, nil
}

// Usage returns a snapshot of accumulated usage counters.
func (s *Service) Usage() models.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// ResetUsage zeroes the accumulated usage counters.
func (s *Service) ResetUsage() {
	s.mu.Lock()
	s.usage = models.Usage{}
	s.mu.Unlock()

	s.logger.Debug().Msg("Usage counters reset")
}

func (s *Service) recordCompletionUsage(resp *anthropic.Message, model string) {
	promptTokens := resp.Usage.InputTokens
	completionTokens := resp.Usage.OutputTokens
	cost := estimateCost(model, promptTokens, completionTokens)

	s.mu.Lock()
	s.usage.PromptTokens += promptTokens
	s.usage.CompletionTokens += completionTokens
	s.usage.TotalTokens += promptTokens + completionTokens
	s.usage.Requests++
	s.usage.CostUSD += cost
	s.mu.Unlock()

	s.logger.Debug().
		Int64("prompt_tokens", promptTokens).
		Int64("completion_tokens", completionTokens).
		Str("cost", fmt.Sprintf("$%.4f", cost)).
		Msg("Completion usage recorded")
}

// ParseJSONObject parses model output as a JSON object, tolerating
// markdown code fences around the payload.
func ParseJSONObject(response string) (map[string]any, error) {
	cleaned := StripCodeFences(response)

	var parsed map[string]any
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return parsed, nil
}

// StripCodeFences removes a wrapping markdown code fence (``` or
// ```json) from the response, if present.
func StripCodeFences(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	// Drop the opening fence line (``` or ```json) and a trailing fence.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
