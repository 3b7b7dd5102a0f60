package prelabel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/lajavaness/annotto-sub000/internal/importer"
	"github.com/lajavaness/annotto-sub000/internal/models"
)

// Client wraps the Gemini API client to suggest candidate labels for an
// item against a project's taxonomy.
type Client struct {
	client     *genai.Client
	model      *genai.GenerativeModel
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
}

// Config for the prelabel client.
type Config struct {
	APIKey     string
	ModelName  string
	MaxRetries int
	RetryDelay time.Duration
}

// NewClient creates a new prelabel client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.ModelName == "" {
		cfg.ModelName = "gemini-2.0-flash-exp"
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}
	model.ResponseMIMEType = "application/json"
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.2),
		TopP:            genai.Ptr[float32](0.9),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](1000),
	}

	logger.Info("Prelabel client initialized",
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		client:     client,
		model:      model,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
	}, nil
}

// Close closes the underlying Gemini client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Suggest asks the model for candidate annotations for one item, in the
// external wire shape so the suggestions flow through the same
// translation and reconciliation path as imported predictions.
func (c *Client) Suggest(ctx context.Context, text string, tasks []*models.Task) (*importer.WireAnnotations, error) {
	prompt := buildPrompt(text, tasks)

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying prelabel request",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.maxRetries))
			time.Sleep(c.retryDelay)
		}

		resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			lastErr = err
			continue
		}

		suggestion, err := parseSuggestion(resp)
		if err != nil {
			lastErr = err
			continue
		}
		return suggestion, nil
	}
	return nil, fmt.Errorf("prelabel failed after %d attempts: %w", c.maxRetries, lastErr)
}

func parseSuggestion(resp *genai.GenerateContentResponse) (*importer.WireAnnotations, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty model response")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			raw.WriteString(string(text))
		}
	}

	cleaned := strings.TrimSpace(raw.String())
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	suggestion := &importer.WireAnnotations{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(cleaned)), suggestion); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return suggestion, nil
}
