package distractor

import (
	"math/rand"
	"strings"

	"github.com/nicksaban20/Fibbage/game"
)

// Stock answers keyed by category fragment, for when the model is
// unavailable. Deliberately generic so they read as plausible lies for most
// questions in the category.
var fallbacks = map[string][]string{
	"science":       {"Quantum fluctuation", "Molecular resonance", "Thermal dynamics", "Photosynthesis"},
	"history":       {"King George III", "The Romans", "Ancient Egypt", "The Ming Dynasty"},
	"geography":     {"The Amazon", "Mount Kilimanjaro", "The Sahara", "Greenland"},
	"entertainment": {"Steven Spielberg", "The Beatles", "Hollywood", "MGM Studios"},
	"sports":        {"The Olympics", "Jesse Owens", "Babe Ruth", "The World Cup"},
	"art":           {"Leonardo da Vinci", "The Renaissance", "Impressionism", "Van Gogh"},
}

var defaultFallbacks = []string{"Unknown origin", "Ancient times", "Scientists disagree", "Lost to history"}

// Fallback picks a stock answer matching the question's category.
func Fallback(q game.Question) string {
	category := strings.ToLower(q.Category)
	for fragment, options := range fallbacks {
		if strings.Contains(category, fragment) {
			return options[rand.Intn(len(options))]
		}
	}
	return defaultFallbacks[rand.Intn(len(defaultFallbacks))]
}
