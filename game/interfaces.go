package game

import (
	"context"
	"time"
)

// NetworkSession abstracts one client connection so rooms never touch the
// websocket library directly.
type NetworkSession interface {
	Write(data []byte) error
	Read() ([]byte, error)
	Ping() error
	Close(reason string)
}

// QuestionSource supplies the next trivia question. A nil question (or an
// error) makes the coordinator substitute from the static curated list; a
// round always gets a question.
type QuestionSource interface {
	Next(ctx context.Context, previousTopics []string) (*Question, error)
}

// DistractorGenerator produces one plausible-but-false answer for a question.
// Implementations retry internally with backoff; the coordinator additionally
// deduplicates results and substitutes a generic fallback on total failure.
type DistractorGenerator interface {
	Generate(ctx context.Context, q Question) (string, error)
}

type ValidationResult struct {
	Valid  bool
	Reason string
}

// AnswerValidator rejects submissions too close to the truth. On error the
// coordinator fails open so a validator outage never blocks play.
type AnswerValidator interface {
	Check(ctx context.Context, text string, q Question) (ValidationResult, error)
}

// UniqueCodeGenerator hands out room codes and reclaims them when a room dies.
type UniqueCodeGenerator interface {
	Generate() string
	Dispose(code string)
}

// PeriodicTickerChannelCreator lets tests inject tick channels.
type PeriodicTickerChannelCreator interface {
	Create(d time.Duration) <-chan time.Time
}
