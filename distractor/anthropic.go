// Package distractor generates plausible-but-false answers for the voting
// pool. Generation failures are absorbed: after a bounded retry budget the
// generator falls back to category-keyed stock answers instead of erroring,
// so a room never stalls on the model being down.
package distractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nicksaban20/Fibbage/game"
	"github.com/nicksaban20/Fibbage/textutil"
)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-haiku-4-5"

	maxRetries = 3
	baseDelay  = 500 * time.Millisecond
)

var leadInPattern = regexp.MustCompile(`(?i)^(the answer is|i would say|how about|maybe|perhaps|fake answer:?)[:\s]*`)

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client implements game.DistractorGenerator against the Anthropic Messages
// API. An empty API key turns it into a fallback-only generator.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, apiKey, model string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		http:    &http.Client{Timeout: 8 * time.Second},
		log:     log,
	}
}

// Generate returns one fake answer for the question. It retries with
// exponential backoff and degrades to a stock answer rather than returning an
// error; the error return exists for the interface and for mocks.
func (c *Client) Generate(ctx context.Context, q game.Question) (string, error) {
	if c.apiKey == "" {
		return Fallback(q), nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		text, err := c.generateOnce(ctx, q)
		if err == nil {
			if usable(text, q) {
				return text, nil
			}
			lastErr = fmt.Errorf("distractor: unusable generation %q", text)
		} else {
			lastErr = err
		}
		c.log.Warn().Err(lastErr).Int("attempt", attempt).Str("question", q.ID).Msg("distractor generation attempt failed")

		if attempt < maxRetries {
			select {
			case <-time.After(baseDelay << (attempt - 1)):
			case <-ctx.Done():
				return Fallback(q), nil
			}
		}
	}

	c.log.Warn().Err(lastErr).Str("question", q.ID).Msg("distractor generation exhausted retries, using fallback")
	return Fallback(q), nil
}

func (c *Client) generateOnce(ctx context.Context, q game.Question) (string, error) {
	prompt := fmt.Sprintf(`You are playing a bluff trivia game. Generate ONE believable fake answer.

QUESTION: %q
CATEGORY: %s
REAL ANSWER (do NOT use this): %q

Rules:
- Sounds plausible but is WRONG
- Match the style and length of the real answer
- NO quotes, NO explanation, just the answer`,
		q.Text, q.Category, q.CorrectAnswer)

	body, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: 100,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("distractor: api status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var decoded messageResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("distractor: decoding response: %w", err)
	}
	for _, block := range decoded.Content {
		if block.Type == "text" {
			return cleanAnswer(block.Text), nil
		}
	}
	return "", fmt.Errorf("distractor: no text block in response")
}

// cleanAnswer strips quoting and lead-in phrasing the model sometimes adds.
func cleanAnswer(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, `"'`)
	text = leadInPattern.ReplaceAllString(text, "")
	if r := []rune(text); len(r) > game.MaxAnswerLength {
		text = string(r[:game.MaxAnswerLength])
	}
	return strings.TrimSpace(text)
}

// usable rejects degenerate generations: empty, "unknown", or anything that
// canonicalizes to the truth.
func usable(text string, q game.Question) bool {
	if len(text) < 2 {
		return false
	}
	key := textutil.Canonicalize(text)
	if key == "unknown" {
		return false
	}
	return key != textutil.Canonicalize(q.CorrectAnswer)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
