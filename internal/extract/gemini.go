package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	appLog "journeycal/internal/log"
)

var (
	ErrMissingAPIKey = errors.New("Gemini API key is required for AI event parsing. Please configure GEMINI_API_KEY in your environment.")
	ErrInvalidAPIKey = errors.New("Invalid Gemini API key format. API keys should start with 'AIza' and be about 39 characters long.")
)

// Client generates text for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiConfig configures GeminiClient.
type GeminiConfig struct {
	Endpoint   string
	Model      string
	APIKey     string
	HTTPClient *http.Client

	// FailureThreshold consecutive failures open the breaker for
	// OpenTimeout. Zero values use 3 and 30s.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// GeminiClient calls the generateContent endpoint behind a circuit breaker.
type GeminiClient struct {
	cfg     GeminiConfig
	breaker *gobreaker.CircuitBreaker[string]
}

func NewGeminiClient(cfg GeminiConfig) *GeminiClient {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	threshold := cfg.FailureThreshold
	settings := gobreaker.Settings{
		Name:    "gemini",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			appLog.Info("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &GeminiClient{cfg: cfg, breaker: gobreaker.NewCircuitBreaker[string](settings)}
}

// checkKey mirrors the key shape Google issues.
func checkKey(key string) error {
	if key == "" {
		return ErrMissingAPIKey
	}
	if !strings.HasPrefix(key, "AIza") || len(key) < 35 {
		return ErrInvalidAPIKey
	}
	return nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate returns the first candidate's text.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := checkKey(c.cfg.APIKey); err != nil {
		return "", err
	}
	return c.breaker.Execute(func() (string, error) {
		return c.generate(ctx, prompt)
	})
}

func (c *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     0.1,
			TopK:            1,
			TopP:            1,
			MaxOutputTokens: 2048,
		},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.cfg.Endpoint, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	started := time.Now()
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	appLog.Debug("gemini response", "status", resp.StatusCode, "elapsed", time.Since(started).String())

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Gemini API error: %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("decode Gemini response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("Invalid response from Gemini API")
	}
	return gr.Candidates[0].Content.Parts[0].Text, nil
}
