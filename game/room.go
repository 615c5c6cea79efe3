package game

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	questionFetchTimeout = 15 * time.Second
	distractorTimeout    = 10 * time.Second
	validateTimeout      = 5 * time.Second
)

// Lobby is the room's view of its parent: the only thing a room ever asks of
// it is to be removed once empty.
type Lobby interface {
	RemoveRoom(code string)
}

type commandEnvelope struct {
	msg  ClientMessage
	from NetworkSession
}

// Room drives one game through its phases. All state mutation happens
// sequentially inside GameLoop, so nothing here is locked: commands,
// attaches, disconnects and ticks are messages into the actor.
type Room struct {
	code string
	log  zerolog.Logger

	state GameState
	reg   playerRegistry
	timer phaseTimer

	questions   QuestionSource
	distractors DistractorGenerator
	validator   AnswerValidator
	parent      Lobby

	// injectable for tests
	now func() time.Time
	rng *rand.Rand

	// answersResolved/votesResolved make the phase-ending transitions
	// idempotent against the timer-vs-early-completion race.
	answersResolved bool
	votesResolved   bool

	usedTopics []string
	prefetched chan *Question

	inbox    chan commandEnvelope
	attaches chan NetworkSession
	closed   chan NetworkSession
	ticks    chan time.Time
	pings    chan struct{}
	done     chan struct{}
}

func NewRoom(code string, questions QuestionSource, distractors DistractorGenerator, validator AnswerValidator, log zerolog.Logger) *Room {
	return &Room{
		code:        code,
		log:         log.With().Str("room", code).Logger(),
		state:       newGameState(code),
		reg:         newPlayerRegistry(MaxSeats),
		questions:   questions,
		distractors: distractors,
		validator:   validator,
		now:         time.Now,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		prefetched:  make(chan *Question, 1),
		inbox:       make(chan commandEnvelope, 256),
		attaches:    make(chan NetworkSession, 16),
		closed:      make(chan NetworkSession, 64),
		ticks:       make(chan time.Time, 24),
		pings:       make(chan struct{}, 4),
		done:        make(chan struct{}),
	}
}

func (r *Room) Code() string { return r.code }

func (r *Room) SetParentLobby(l Lobby) { r.parent = l }

// GameLoop is the actor. Run it in its own goroutine; everything else talks
// to the room through channels.
func (r *Room) GameLoop() {
	defer func() {
		for _, p := range r.reg.Players() {
			if p.session != nil {
				p.session.Close("room-closed")
			}
		}
	}()
	for {
		select {
		case env := <-r.inbox:
			r.dispatch(env)
		case s := <-r.attaches:
			r.handleAttach(s)
		case s := <-r.closed:
			r.handleSessionClosed(s)
		case now := <-r.ticks:
			r.handleTick(now)
		case <-r.pings:
			r.handlePing()
		case <-r.done:
			return
		}
	}
}

// CloseAndRelease stops the actor; the actor goroutine closes any live
// connections on its way out, so session state is only ever touched from one
// goroutine. Called by the lobby when the room is removed.
func (r *Room) CloseAndRelease() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
}

// Tick is called from the lobby's shared ticker. Dropping a tick when the
// actor is behind is fine; remaining time is derived from the deadline, not
// from tick counting.
func (r *Room) Tick(now time.Time) {
	select {
	case r.ticks <- now:
	default:
	}
}

func (r *Room) PingPlayers() {
	select {
	case r.pings <- struct{}{}:
	default:
	}
}

// Attach registers a freshly upgraded connection: it immediately receives the
// current state snapshot, then identifies itself with a join command.
func (r *Room) Attach(ctx context.Context, s NetworkSession) {
	select {
	case r.attaches <- s:
	case <-r.done:
		s.Close("room-closed")
	case <-ctx.Done():
		s.Close("attach-cancelled")
	}
}

// ReadPump decodes inbound frames into room commands. Run one per
// connection; it exits when the transport drops, which the room treats as a
// soft disconnect.
func (r *Room) ReadPump(s NetworkSession) {
	limiter := rate.NewLimiter(rate.Limit(5), 10)

	for {
		data, err := s.Read()
		if err != nil {
			select {
			case r.closed <- s:
			case <-r.done:
			}
			return
		}
		if !limiter.Allow() {
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.log.Debug().Err(err).Msg("dropping malformed client message")
			continue
		}

		select {
		case r.inbox <- commandEnvelope{msg: msg, from: s}:
		case <-r.done:
			return
		}
	}
}

func (r *Room) dispatch(env commandEnvelope) {
	if env.msg.Type == MsgJoin {
		r.handleJoin(env.from, env.msg.Name, env.msg.IsHost)
		return
	}

	sender := r.reg.bySession(env.from)
	if sender == nil {
		r.sendErrorTo(env.from, "Player not found")
		return
	}

	switch env.msg.Type {
	case MsgStartGame:
		r.handleStartGame(sender, env.msg.Config)
	case MsgSubmitAnswer:
		r.handleSubmitAnswer(sender, env.msg.Answer)
	case MsgSubmitVote:
		r.handleSubmitVote(sender, env.msg.AnswerID)
	case MsgNextRound:
		r.handleNextRound(sender)
	case MsgPlayAgain:
		r.handlePlayAgain(sender)
	case MsgLeave:
		r.handleLeave(sender)
	case MsgKickPlayer:
		r.handleKick(sender, env.msg.PlayerID)
	case MsgSkipTimer:
		r.handleSkipTimer(sender)
	default:
		r.sendErrorTo(env.from, "Unknown command")
	}
}

// --- connection lifecycle ---

func (r *Room) handleAttach(s NetworkSession) {
	r.sendStateTo(s)
}

func (r *Room) handleSessionClosed(s NetworkSession) {
	p := r.reg.markOffline(s)
	if p == nil {
		// A connection that never joined. If it was the only reason this
		// room existed, release the room.
		if len(r.reg.Players()) == 0 && r.parent != nil {
			r.parent.RemoveRoom(r.code)
		}
		return
	}
	r.log.Info().Str("player", p.Name).Msg("player disconnected, keeping seat for reconnect")
	r.broadcastDebug(fmt.Sprintf("%s disconnected", p.Name))
	r.broadcastState()
}

func (r *Room) handlePing() {
	for _, p := range r.reg.Players() {
		if p.session == nil {
			continue
		}
		if err := p.session.Ping(); err != nil {
			r.log.Debug().Str("player", p.Name).Err(err).Msg("ping failed")
		}
	}
}

func (r *Room) handleTick(now time.Time) {
	if !r.timer.armed {
		return
	}
	remaining, fired := r.timer.Tick(now)
	if fired {
		// The expiry callback already transitioned and broadcast.
		return
	}
	r.state.TimeRemaining = remaining
	r.broadcastTimeUpdate(remaining)
}

// --- commands ---

func (r *Room) handleJoin(s NetworkSession, name string, isHost bool) {
	p, outcome, stolen, err := r.reg.resolveJoin(s, name, isHost, r.state.Phase)
	if err != nil {
		r.sendErrorTo(s, joinErrorMessage(err))
		s.Close(err.Error())
		return
	}
	r.state.Players = r.reg.Players()

	if stolen != nil {
		stolen.Close("session-stolen")
	}

	switch outcome {
	case joinCreated:
		r.log.Info().Str("player", p.Name).Bool("host", p.IsHost).Msg("player joined")
		r.broadcast(marshalPlayerJoined(p))
	case joinReconnected:
		r.log.Info().Str("player", p.Name).Msg("player reconnected")
		r.broadcastDebug(fmt.Sprintf("%s reconnected", p.Name))
	case joinStolen:
		r.log.Info().Str("player", p.Name).Msg("session stolen by new connection")
	case joinRejoined:
		// idempotent re-join over the same connection
	}

	r.broadcastState()
}

func (r *Room) handleStartGame(sender *Player, cfg *Config) {
	if !sender.IsHost {
		r.sendError(sender, "Only the host can start the game")
		return
	}
	if r.state.Phase != PhaseLobby {
		r.sendError(sender, "Game already in progress")
		return
	}
	if r.reg.seatCount() < 2 {
		r.sendError(sender, "Need at least 2 players to start")
		return
	}

	if cfg != nil {
		r.state.Config = cfg.Clamped()
	} else {
		r.state.Config = DefaultConfig()
	}
	r.log.Info().Interface("config", r.state.Config).Msg("game starting")
	r.startRound()
}

func (r *Room) handleSubmitAnswer(sender *Player, text string) {
	if r.state.Phase != PhaseAnswering {
		r.sendError(sender, "Not in answering phase")
		return
	}
	if sender.IsHost {
		r.sendError(sender, "The host screen doesn't play")
		return
	}
	if sender.HasSubmittedAnswer {
		r.sendError(sender, "Already submitted an answer")
		return
	}
	text = trimAnswer(text)
	if text == "" {
		r.sendError(sender, "Answer can't be empty")
		return
	}

	if q := r.state.CurrentQuestion; q != nil {
		ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
		res, err := r.validator.Check(ctx, text, *q)
		cancel()
		switch {
		case err != nil:
			// Fail open: a validator outage never blocks play.
			r.log.Warn().Err(err).Msg("answer validation failed, accepting answer")
		case !res.Valid:
			r.sendError(sender, res.Reason)
			return
		}
	}

	sender.CurrentAnswer = text
	sender.HasSubmittedAnswer = true
	r.broadcastState()

	r.maybeCompleteAnswering()
}

func (r *Room) handleSubmitVote(sender *Player, answerID string) {
	if r.state.Phase != PhaseVoting {
		r.sendError(sender, "Not in voting phase")
		return
	}
	if sender.IsHost {
		r.sendError(sender, "The host screen doesn't play")
		return
	}
	if sender.HasVoted {
		r.sendError(sender, "Already voted")
		return
	}
	answer := answerByID(r.state.Answers, answerID)
	if answer == nil {
		r.sendError(sender, "Answer not found")
		return
	}
	if answer.HasAuthor(sender.ID) {
		r.sendError(sender, "Cannot vote for your own answer")
		return
	}

	sender.HasVoted = true
	sender.VotedFor = answerID
	answer.Votes = append(answer.Votes, sender.ID)
	r.broadcastState()

	r.maybeCompleteVoting()
}

func (r *Room) handleNextRound(sender *Player) {
	if !sender.IsHost {
		r.sendError(sender, "Only the host can advance rounds")
		return
	}
	if r.state.Phase != PhaseResults {
		r.sendError(sender, "Not in results phase")
		return
	}
	if r.state.CurrentRound >= r.state.Config.TotalRounds {
		r.endGame()
		return
	}
	r.startRound()
}

func (r *Room) handlePlayAgain(sender *Player) {
	if !sender.IsHost {
		r.sendError(sender, "Only the host can restart the game")
		return
	}
	if r.state.Phase != PhaseGameOver {
		r.sendError(sender, "Game isn't over")
		return
	}

	r.timer.Stop()
	players := r.reg.Players()
	for _, p := range players {
		p.Score = 0
		p.resetRound()
	}
	r.state = newGameState(r.code)
	r.state.Players = players
	r.answersResolved = false
	r.votesResolved = false
	r.usedTopics = nil
	select {
	case <-r.prefetched:
	default:
	}

	r.log.Info().Msg("game reset to lobby")
	r.broadcastState()
}

func (r *Room) handleLeave(sender *Player) {
	r.log.Info().Str("player", sender.Name).Msg("player left")
	r.removePlayer(sender)
}

func (r *Room) handleKick(sender *Player, targetID string) {
	if !sender.IsHost {
		r.sendError(sender, "Only the host can kick players")
		return
	}
	target := r.reg.byID(targetID)
	if target == nil {
		r.sendError(sender, "Player not found")
		return
	}
	r.log.Info().Str("player", target.Name).Msg("player kicked")
	session := target.session
	r.removePlayer(target)
	if session != nil {
		session.Close("kicked-by-host")
	}
}

// handleSkipTimer is the host's escape hatch for stalled rounds. It takes the
// exact completion path a natural expiry would.
func (r *Room) handleSkipTimer(sender *Player) {
	if !sender.IsHost {
		r.sendError(sender, "Only the host can skip the timer")
		return
	}
	switch r.state.Phase {
	case PhaseAnswering:
		r.timer.Stop()
		r.endAnswering()
	case PhaseVoting:
		r.timer.Stop()
		r.endVoting()
	default:
		r.sendError(sender, "Nothing to skip right now")
	}
}

// --- phase machine ---

func (r *Room) startRound() {
	r.state.CurrentRound++
	r.state.Answers = nil
	r.answersResolved = false
	r.votesResolved = false
	for _, p := range r.reg.Players() {
		p.resetRound()
	}

	q := r.takePrefetched()
	if q == nil {
		r.setPhase(PhaseLoading)
		r.state.TimeRemaining = 0
		r.broadcastState()
		q = r.fetchQuestion()
	}

	r.state.CurrentQuestion = q
	r.usedTopics = append(r.usedTopics, q.Text)
	r.setPhase(PhaseQuestion)
	r.state.TimeRemaining = QuestionDisplaySeconds
	r.timer.Arm(r.now(), QuestionDisplaySeconds*time.Second, r.beginAnswering)
	r.broadcastState()

	if r.state.CurrentRound < r.state.Config.TotalRounds {
		r.prefetchNext()
	}
}

func (r *Room) beginAnswering() {
	if r.state.Phase != PhaseQuestion {
		return
	}
	r.setPhase(PhaseAnswering)
	r.state.TimeRemaining = r.state.Config.AnswerTimeSeconds
	r.timer.Arm(r.now(), time.Duration(r.state.Config.AnswerTimeSeconds)*time.Second, r.endAnswering)
	r.broadcastState()
}

// endAnswering closes the round's answer collection, assembles the voting
// pool and opens voting. Both the timer and the all-answered check funnel
// here, so it must be a no-op when the phase was already resolved.
func (r *Room) endAnswering() {
	if r.state.Phase != PhaseAnswering || r.answersResolved {
		return
	}
	r.answersResolved = true
	r.timer.Stop()

	q := r.state.CurrentQuestion
	if q == nil {
		r.log.Error().Msg("answering ended without a question")
		r.endGame()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), distractorTimeout)
	r.state.Answers = buildAnswerPool(ctx, r.reg.Players(), *q, r.distractors, r.state.Config.AIAnswerCount, r.rng, r.log)
	cancel()

	r.setPhase(PhaseVoting)
	r.state.TimeRemaining = r.state.Config.VotingTimeSeconds
	r.timer.Arm(r.now(), time.Duration(r.state.Config.VotingTimeSeconds)*time.Second, r.endVoting)
	r.broadcastState()
}

// endVoting scores the round exactly once and archives the RoundResult.
func (r *Room) endVoting() {
	if r.state.Phase != PhaseVoting || r.votesResolved {
		return
	}
	r.votesResolved = true
	r.timer.Stop()

	players := r.reg.Players()
	scores := scoreRound(players, r.state.Answers)
	r.state.RoundResults = append(r.state.RoundResults, r.buildRoundResult(scores))

	r.setPhase(PhaseResults)
	r.state.TimeRemaining = 0
	r.broadcastState()
}

func (r *Room) endGame() {
	r.timer.Stop()
	r.setPhase(PhaseGameOver)
	r.state.TimeRemaining = 0
	r.broadcastState()
}

func (r *Room) setPhase(phase Phase) {
	r.log.Debug().Str("from", string(r.state.Phase)).Str("to", string(phase)).Msg("phase transition")
	r.state.Phase = phase
}

// The round advances as soon as every known non-host player has responded,
// online or not; a disconnected player must not create a race to finish.
// skip-timer is the host override for a genuinely stalled round.
func (r *Room) maybeCompleteAnswering() {
	if r.state.Phase != PhaseAnswering || !r.allResponded(func(p *Player) bool { return p.HasSubmittedAnswer }) {
		return
	}
	r.timer.Stop()
	r.endAnswering()
}

func (r *Room) maybeCompleteVoting() {
	if r.state.Phase != PhaseVoting || !r.allResponded(func(p *Player) bool { return p.HasVoted }) {
		return
	}
	r.timer.Stop()
	r.endVoting()
}

func (r *Room) allResponded(responded func(*Player) bool) bool {
	eligible := 0
	for _, p := range r.reg.Players() {
		if p.IsHost {
			continue
		}
		eligible++
		if !responded(p) {
			return false
		}
	}
	return eligible > 0
}

func (r *Room) removePlayer(target *Player) {
	r.reg.remove(target)
	r.state.Players = r.reg.Players()
	r.broadcast(marshalPlayerLeft(target.ID))

	if len(r.reg.Players()) == 0 {
		r.log.Info().Msg("room empty, releasing")
		if r.parent != nil {
			r.parent.RemoveRoom(r.code)
		}
		return
	}

	// A removed player must not keep blocking the round.
	r.maybeCompleteAnswering()
	r.maybeCompleteVoting()
	r.broadcastState()
}

// --- questions ---

func (r *Room) fetchQuestion() *Question {
	ctx, cancel := context.WithTimeout(context.Background(), questionFetchTimeout)
	defer cancel()

	q, err := r.questions.Next(ctx, r.usedTopics)
	if err != nil {
		r.log.Warn().Err(err).Msg("question source failed, using curated fallback")
		r.broadcastDebug("question source unavailable, using a curated question")
		return fallbackQuestion(r.usedTopics, r.rng)
	}
	if q == nil {
		return fallbackQuestion(r.usedTopics, r.rng)
	}
	return q
}

// prefetchNext fetches the following round's question in the background so
// the next loading phase can usually be skipped. A failed prefetch just
// degrades back to a synchronous fetch.
func (r *Room) prefetchNext() {
	topics := make([]string, len(r.usedTopics))
	copy(topics, r.usedTopics)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), questionFetchTimeout)
		defer cancel()
		q, err := r.questions.Next(ctx, topics)
		if err != nil || q == nil {
			return
		}
		select {
		case r.prefetched <- q:
		default:
		}
	}()
}

func (r *Room) takePrefetched() *Question {
	select {
	case q := <-r.prefetched:
		return q
	default:
		return nil
	}
}

// --- outbound ---

func (r *Room) buildRoundResult(scores []RoundScore) RoundResult {
	res := RoundResult{
		Round:         r.state.CurrentRound,
		Question:      *r.state.CurrentQuestion,
		CorrectAnswer: r.state.CurrentQuestion.CorrectAnswer,
		Scores:        scores,
	}
	for _, a := range r.state.Answers {
		if a.IsAI {
			res.AIAnswers = append(res.AIAnswers, a.Text)
		}
	}
	for _, p := range r.reg.Players() {
		if p.CurrentAnswer != "" {
			res.PlayerAnswers = append(res.PlayerAnswers, PlayerAnswer{PlayerID: p.ID, Answer: p.CurrentAnswer})
		}
		if p.VotedFor != "" {
			res.Votes = append(res.Votes, PlayerVote{PlayerID: p.ID, AnswerID: p.VotedFor})
		}
	}
	return res
}

func (r *Room) broadcastState() {
	r.broadcast(marshalStateUpdate(&r.state))
}

func (r *Room) broadcastTimeUpdate(remaining int) {
	r.broadcast(marshalTimeUpdate(remaining))
}

func (r *Room) broadcastDebug(message string) {
	r.broadcast(marshalDebugLog(message))
}

func (r *Room) broadcast(data []byte, err error) {
	if err != nil {
		r.log.Error().Err(err).Msg("failed to marshal broadcast")
		return
	}
	for _, p := range r.reg.Players() {
		if p.session == nil {
			continue
		}
		if werr := p.session.Write(data); werr != nil {
			r.log.Debug().Str("player", p.Name).Err(werr).Msg("broadcast write failed")
		}
	}
}

func (r *Room) sendStateTo(s NetworkSession) {
	data, err := marshalStateUpdate(&r.state)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to marshal state snapshot")
		return
	}
	if werr := s.Write(data); werr != nil {
		r.log.Debug().Err(werr).Msg("snapshot write failed")
	}
}

func (r *Room) sendError(p *Player, message string) {
	if p.session == nil {
		return
	}
	r.sendErrorTo(p.session, message)
}

func (r *Room) sendErrorTo(s NetworkSession, message string) {
	data, err := marshalError(message)
	if err != nil {
		r.log.Error().Err(err).Msg("failed to marshal error")
		return
	}
	if werr := s.Write(data); werr != nil {
		r.log.Debug().Err(werr).Msg("error write failed")
	}
}

func joinErrorMessage(err error) string {
	switch err {
	case ErrRoomFull:
		return fmt.Sprintf("Room is full (max %d players)", MaxSeats)
	case ErrGameInProgress:
		return "Game already in progress"
	case ErrNameTaken:
		return "Name already taken"
	case ErrNameRequired:
		return "Name is required"
	case ErrNoHost:
		return "Room has no host yet"
	default:
		return "Unable to join"
	}
}

func trimAnswer(text string) string {
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > MaxAnswerLength {
		text = string(r[:MaxAnswerLength])
	}
	return text
}
