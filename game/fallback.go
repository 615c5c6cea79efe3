package game

import (
	"math/rand"

	"github.com/nicksaban20/Fibbage/textutil"
)

// curatedQuestions is the static substitute pool used whenever the question
// source returns nothing. A round must always get a question.
var curatedQuestions = []Question{
	{ID: "fallback-1", Text: "What was the original name for the butterfly?", CorrectAnswer: "Flutterby", Category: "Nature", Difficulty: "medium", Source: "static"},
	{ID: "fallback-2", Text: "What color were carrots before the 17th century?", CorrectAnswer: "Purple", Category: "History", Difficulty: "medium", Source: "static"},
	{ID: "fallback-3", Text: "Owning 55,000 of them, Ted Turner has the world's largest private collection of _____.", CorrectAnswer: "Bison", Category: "Celebrity", Difficulty: "medium", Source: "static"},
	{ID: "fallback-4", Text: "The electric chair was invented by a professional _____ named Alfred Southwick.", CorrectAnswer: "Dentist", Category: "History", Difficulty: "hard", Source: "static"},
	{ID: "fallback-5", Text: "A study published in the journal Anthrozoo reported that cows produce 5% more milk when they are given _____.", CorrectAnswer: "Names", Category: "Science", Difficulty: "medium", Source: "static"},
	{ID: "fallback-6", Text: "People in Damariscotta, Maine hold an annual race where they use _____ as boats.", CorrectAnswer: "Pumpkins", Category: "Culture", Difficulty: "hard", Source: "static"},
	{ID: "fallback-7", Text: "As a young student in Buenos Aires, Pope Francis worked as a _____.", CorrectAnswer: "Bouncer", Category: "History", Difficulty: "hard", Source: "static"},
	{ID: "fallback-8", Text: "The original name for the search engine that became Google was _____.", CorrectAnswer: "Backrub", Category: "Technology", Difficulty: "medium", Source: "static"},
	{ID: "fallback-9", Text: "On November 12, 1970, George Thornton, a highway engineer in Oregon, had the unusual job of blowing up a _____.", CorrectAnswer: "Dead Whale", Category: "History", Difficulty: "medium", Source: "static"},
	{ID: "fallback-10", Text: "Leo Granit Kraft is a world champion in an unusual sport that combines boxing and _____.", CorrectAnswer: "Chess", Category: "Sports", Difficulty: "hard", Source: "static"},
}

// fallbackQuestion prefers a curated question whose text hasn't been used
// this game; when all have been, it reuses an arbitrary one.
func fallbackQuestion(usedTopics []string, rng *rand.Rand) *Question {
	used := make(map[string]struct{}, len(usedTopics))
	for _, t := range usedTopics {
		used[textutil.Canonicalize(t)] = struct{}{}
	}

	fresh := make([]Question, 0, len(curatedQuestions))
	for _, q := range curatedQuestions {
		if _, seen := used[textutil.Canonicalize(q.Text)]; !seen {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		fresh = curatedQuestions
	}
	q := fresh[rng.Intn(len(fresh))]
	return &q
}
