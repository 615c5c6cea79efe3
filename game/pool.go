package game

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nicksaban20/Fibbage/textutil"
)

// genericDistractors backstops a round where every generation attempt failed
// or collided with the pool. The pool is never short an AI lie.
var genericDistractors = []string{"Mystery", "Unknown", "Nobody knows", "Lost to history"}

// buildAnswerPool assembles the voting pool for one round: merged player
// answers, deduplicated AI distractors and the truth exactly once, shuffled
// with a uniform permutation so position carries no information.
func buildAnswerPool(ctx context.Context, players []*Player, q Question, gen DistractorGenerator, aiCount int, rng *rand.Rand, log zerolog.Logger) []*Answer {
	truthKey := textutil.Canonicalize(q.CorrectAnswer)

	pool := make([]*Answer, 0, len(players)+aiCount+1)
	seen := map[string]*Answer{truthKey: nil}

	// Merge player submissions by canonical key; the first submitter's text
	// defines the displayed casing. Submissions matching the truth were
	// already rejected at submit time, but are dropped again here.
	for _, p := range players {
		if p.IsHost || !p.HasSubmittedAnswer || p.CurrentAnswer == "" {
			continue
		}
		key := textutil.Canonicalize(p.CurrentAnswer)
		if key == truthKey {
			log.Debug().Str("player", p.Name).Msg("dropping submission equal to correct answer")
			continue
		}
		if merged, ok := seen[key]; ok && merged != nil {
			merged.AuthorIDs = append(merged.AuthorIDs, p.ID)
			continue
		}
		a := &Answer{
			ID:        uuid.NewString(),
			Text:      textutil.Display(p.CurrentAnswer),
			AuthorIDs: []string{p.ID},
			Votes:     []string{},
		}
		seen[key] = a
		pool = append(pool, a)
	}

	// Distractor calls run in parallel with fixed fan-out so slow generations
	// bound latency instead of stacking.
	for _, text := range generateDistractors(ctx, gen, q, aiCount, log) {
		key := textutil.Canonicalize(text)
		if _, dup := seen[key]; dup {
			log.Debug().Str("text", text).Msg("discarding duplicate distractor")
			continue
		}
		a := &Answer{
			ID:    uuid.NewString(),
			Text:  textutil.Display(text),
			IsAI:  true,
			Votes: []string{},
		}
		seen[key] = a
		pool = append(pool, a)
	}

	if aiCount > 0 && !hasAI(pool) {
		for _, fb := range genericDistractors {
			key := textutil.Canonicalize(fb)
			if _, dup := seen[key]; dup {
				continue
			}
			log.Warn().Str("text", fb).Msg("all distractor generations failed, using generic fallback")
			pool = append(pool, &Answer{ID: uuid.NewString(), Text: fb, IsAI: true, Votes: []string{}})
			break
		}
	}

	pool = append(pool, &Answer{
		ID:        uuid.NewString(),
		Text:      textutil.Display(q.CorrectAnswer),
		IsCorrect: true,
		Votes:     []string{},
	})

	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

func generateDistractors(ctx context.Context, gen DistractorGenerator, q Question, count int, log zerolog.Logger) []string {
	if count <= 0 {
		return nil
	}

	results := make(chan string, count)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			text, err := gen.Generate(ctx, q)
			if err != nil {
				log.Warn().Err(err).Str("question", q.ID).Msg("distractor generation failed")
				return
			}
			if text != "" {
				results <- text
			}
		}()
	}
	wg.Wait()
	close(results)

	out := make([]string, 0, count)
	for text := range results {
		out = append(out, text)
	}
	return out
}

func hasAI(pool []*Answer) bool {
	for _, a := range pool {
		if a.IsAI {
			return true
		}
	}
	return false
}
