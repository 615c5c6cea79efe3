package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackQuestionPrefersUnused(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(11))

	// Mark every curated question used except one.
	used := make([]string, 0, len(curatedQuestions)-1)
	for _, q := range curatedQuestions[1:] {
		used = append(used, q.Text)
	}

	for i := 0; i < 10; i++ {
		q := fallbackQuestion(used, rng)
		require.NotNil(t, q)
		assert.Equal(t, curatedQuestions[0].ID, q.ID)
	}
}

func TestFallbackQuestionWhenAllUsed(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(11))

	used := make([]string, 0, len(curatedQuestions))
	for _, q := range curatedQuestions {
		used = append(used, q.Text)
	}

	q := fallbackQuestion(used, rng)
	require.NotNil(t, q, "a round always gets a question")
	assert.Equal(t, "static", q.Source)
}

func TestFallbackQuestionReturnsCopy(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(11))

	q := fallbackQuestion(nil, rng)
	require.NotNil(t, q)
	q.Text = "mutated"

	for _, c := range curatedQuestions {
		assert.NotEqual(t, "mutated", c.Text)
	}
}
