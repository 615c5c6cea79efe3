package game

import (
	"fmt"
	"strings"
)

// scoreRound computes each non-host player's round delta, accumulates it into
// their score and returns the per-player breakdown. Fool points for a merged
// answer are split evenly among its authors, floored; the remainder goes to
// nobody.
func scoreRound(players []*Player, answers []*Answer) []RoundScore {
	scores := make([]RoundScore, 0, len(players))

	for _, p := range players {
		if p.IsHost {
			continue
		}

		points := 0
		var reasons []string

		if voted := answerByID(answers, p.VotedFor); voted != nil && voted.IsCorrect {
			points += ScoreCorrectGuess
			reasons = append(reasons, "Found the truth!")
		}

		if authored := answerByAuthor(answers, p.ID); authored != nil {
			fooled := len(authored.Votes)
			if fooled > 0 {
				authorCount := len(authored.AuthorIDs)
				points += fooled * ScoreFoolPlayer / authorCount
				reason := fmt.Sprintf("Fooled %d player%s!", fooled, plural(fooled))
				if authorCount > 1 {
					reason = fmt.Sprintf("%s (split %d ways)", reason, authorCount)
				}
				reasons = append(reasons, reason)
			}
		}

		p.Score += points
		reason := strings.Join(reasons, " ")
		if reason == "" {
			reason = "No points this round"
		}
		scores = append(scores, RoundScore{PlayerID: p.ID, PointsEarned: points, Reason: reason})
	}

	return scores
}

func answerByID(answers []*Answer, id string) *Answer {
	if id == "" {
		return nil
	}
	for _, a := range answers {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func answerByAuthor(answers []*Answer, playerID string) *Answer {
	for _, a := range answers {
		if a.HasAuthor(playerID) {
			return a
		}
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
