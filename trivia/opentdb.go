// Package trivia sources fill-in-the-blank questions from the Open Trivia
// Database. Batches are fetched lazily and served one at a time; callers fall
// back to their own curated list when the source comes up empty.
package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nicksaban20/Fibbage/game"
	"github.com/nicksaban20/Fibbage/textutil"
)

const DefaultBaseURL = "https://opentdb.com/api.php"

const (
	batchSize   = 20
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// NOT/EXCEPT questions don't work as fill-in-the-blank bluff material.
var badQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)which of these.+not`),
	regexp.MustCompile(`(?i)which of the following.+not`),
	regexp.MustCompile(`(?i)which.+is not`),
	regexp.MustCompile(`(?i)which.+isn't`),
	regexp.MustCompile(`(?i)which.+are not`),
	regexp.MustCompile(`(?i)which.+except`),
	regexp.MustCompile(`(?i)all of the following except`),
	regexp.MustCompile(`(?i)none of the above`),
	regexp.MustCompile(`(?i)all of the above`),
}

type opentdbQuestion struct {
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	Question      string `json:"question"`
	CorrectAnswer string `json:"correct_answer"`
}

type opentdbResponse struct {
	ResponseCode int               `json:"response_code"`
	Results      []opentdbQuestion `json:"results"`
}

// Source implements game.QuestionSource over the Open Trivia DB API. It is
// stateless apart from the shared HTTP client, so one instance serves every
// room.
type Source struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

func NewSource(baseURL string, log zerolog.Logger) *Source {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Source{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Next fetches a batch mixing medium and hard questions and returns the first
// usable one not already seen this game. A nil question (no error) means the
// API answered but everything was filtered out.
func (s *Source) Next(ctx context.Context, previousTopics []string) (*game.Question, error) {
	used := make(map[string]struct{}, len(previousTopics))
	for _, t := range previousTopics {
		used[textutil.Canonicalize(t)] = struct{}{}
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		batch, err := s.fetchBatch(ctx)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Int("attempt", attempt).Msg("opentdb fetch failed")
			select {
			case <-time.After(baseDelay << (attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}
		for _, q := range batch {
			if _, seen := used[textutil.Canonicalize(q.Text)]; seen {
				continue
			}
			return &q, nil
		}
		return nil, nil
	}
	return nil, lastErr
}

func (s *Source) fetchBatch(ctx context.Context) ([]game.Question, error) {
	hard := batchSize / 2
	medium := batchSize - hard

	questions := make([]game.Question, 0, batchSize)
	for _, part := range []struct {
		difficulty string
		count      int
	}{{"hard", hard}, {"medium", medium}} {
		batch, err := s.fetchDifficulty(ctx, part.difficulty, part.count)
		if err != nil {
			return nil, err
		}
		questions = append(questions, batch...)
	}
	return questions, nil
}

func (s *Source) fetchDifficulty(ctx context.Context, difficulty string, count int) ([]game.Question, error) {
	url := fmt.Sprintf("%s?amount=%d&difficulty=%s&type=multiple", s.baseURL, count, difficulty)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentdb: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var decoded opentdbResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("opentdb: decoding response: %w", err)
	}
	if decoded.ResponseCode != 0 {
		return nil, fmt.Errorf("opentdb: response code %d", decoded.ResponseCode)
	}

	questions := make([]game.Question, 0, len(decoded.Results))
	for _, raw := range decoded.Results {
		text := html.UnescapeString(raw.Question)
		if isBadQuestion(text) {
			s.log.Debug().Str("question", text).Msg("filtered unusable question")
			continue
		}
		questions = append(questions, game.Question{
			ID:            uuid.NewString(),
			Text:          text,
			CorrectAnswer: html.UnescapeString(raw.CorrectAnswer),
			Category:      html.UnescapeString(raw.Category),
			Difficulty:    raw.Difficulty,
			Source:        "opentdb",
		})
	}
	return questions, nil
}

func isBadQuestion(text string) bool {
	for _, p := range badQuestionPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
