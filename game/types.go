package game

// Phase names a state in the per-room state machine. The wire values are
// what clients render against, so they never change.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseLoading   Phase = "loading"
	PhaseQuestion  Phase = "question"
	PhaseAnswering Phase = "answering"
	PhaseVoting    Phase = "voting"
	PhaseResults   Phase = "results"
	PhaseGameOver  Phase = "game-over"
)

const (
	// MaxSeats is the cap on non-host players per room.
	MaxSeats = 8

	MaxNameLength   = 20
	MaxAnswerLength = 100

	// QuestionDisplaySeconds is the fixed pause showing the question before
	// answering opens.
	QuestionDisplaySeconds = 3

	ScoreCorrectGuess = 1000
	ScoreFoolPlayer   = 1000
)

// Config is set by the host at start-game. Out-of-range values are clamped,
// never rejected.
type Config struct {
	TotalRounds       int `json:"totalRounds"`
	AnswerTimeSeconds int `json:"answerTimeSeconds"`
	VotingTimeSeconds int `json:"votingTimeSeconds"`
	AIAnswerCount     int `json:"aiAnswerCount"`
}

func DefaultConfig() Config {
	return Config{
		TotalRounds:       5,
		AnswerTimeSeconds: 60,
		VotingTimeSeconds: 45,
		AIAnswerCount:     1,
	}
}

// Clamped returns the config forced into legal bounds.
func (c Config) Clamped() Config {
	return Config{
		TotalRounds:       clamp(c.TotalRounds, 1, 15),
		AnswerTimeSeconds: clamp(c.AnswerTimeSeconds, 15, 180),
		VotingTimeSeconds: clamp(c.VotingTimeSeconds, 15, 120),
		AIAnswerCount:     clamp(c.AIAnswerCount, 0, 5),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Question is immutable once assigned to a round.
type Question struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	CorrectAnswer string `json:"correctAnswer"`
	Category      string `json:"category"`
	Difficulty    string `json:"difficulty"`
	Source        string `json:"source,omitempty"`
}

// Player is a logical identity, independent of the transient connection it is
// currently bound to. It survives disconnects and is removed only by leave or
// kick.
type Player struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Score              int    `json:"score"`
	IsHost             bool   `json:"isHost"`
	HasSubmittedAnswer bool   `json:"hasSubmittedAnswer"`
	HasVoted           bool   `json:"hasVoted"`
	CurrentAnswer      string `json:"currentAnswer,omitempty"`
	VotedFor           string `json:"votedFor,omitempty"`
	IsOnline           bool   `json:"isOnline"`

	session NetworkSession
}

func (p *Player) resetRound() {
	p.HasSubmittedAnswer = false
	p.HasVoted = false
	p.CurrentAnswer = ""
	p.VotedFor = ""
}

// Answer is one revealed entry in the voting pool. AuthorIDs is empty for the
// truth and for AI distractors, and holds every player who submitted the same
// canonical text otherwise.
type Answer struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	AuthorIDs []string `json:"playerIds"`
	IsCorrect bool     `json:"isCorrect"`
	IsAI      bool     `json:"isAI"`
	Votes     []string `json:"votes"`
}

func (a *Answer) HasAuthor(playerID string) bool {
	for _, id := range a.AuthorIDs {
		if id == playerID {
			return true
		}
	}
	return false
}

type PlayerAnswer struct {
	PlayerID string `json:"playerId"`
	Answer   string `json:"answer"`
}

type PlayerVote struct {
	PlayerID string `json:"playerId"`
	AnswerID string `json:"votedForAnswerId"`
}

type RoundScore struct {
	PlayerID     string `json:"playerId"`
	PointsEarned int    `json:"pointsEarned"`
	Reason       string `json:"reason"`
}

// RoundResult is the immutable archival record of a completed round, the only
// thing exposed for recap display.
type RoundResult struct {
	Round         int            `json:"round"`
	Question      Question       `json:"question"`
	CorrectAnswer string         `json:"correctAnswer"`
	AIAnswers     []string       `json:"aiAnswers"`
	PlayerAnswers []PlayerAnswer `json:"playerAnswers"`
	Votes         []PlayerVote   `json:"votes"`
	Scores        []RoundScore   `json:"scores"`
}

// GameState is the single source of truth for one room, owned exclusively by
// its coordinator goroutine.
type GameState struct {
	Phase           Phase         `json:"phase"`
	RoomCode        string        `json:"roomCode"`
	Players         []*Player     `json:"players"`
	Config          Config        `json:"config"`
	CurrentRound    int           `json:"currentRound"`
	CurrentQuestion *Question     `json:"currentQuestion"`
	Answers         []*Answer     `json:"answers"`
	TimeRemaining   int           `json:"timeRemaining"`
	RoundResults    []RoundResult `json:"roundResults"`
}

func newGameState(roomCode string) GameState {
	return GameState{
		Phase:    PhaseLobby,
		RoomCode: roomCode,
		Config:   DefaultConfig(),
	}
}
