// The flow coordinator: an authoritative state machine sequencing a room
// through LOBBY → INTRODUCTION → sections of quiz rounds and mini-games →
// VICTORY. It owns per-round submission bookkeeping and the room's single
// auto-advance timer, delegates to the mini-game engines while one is live,
// and emits every outbound message through a Sink. It never touches sockets.
//
// All methods must be called from the room's own goroutine; scheduler
// callbacks are handed back to that goroutine by the caller's Scheduler
// implementation.
package flow

import (
	"errors"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/questparty/internal/connect4"
	"github.com/Seednode/questparty/internal/memory"
	"github.com/Seednode/questparty/internal/questions"
	"github.com/Seednode/questparty/internal/schedule"
	"github.com/Seednode/questparty/internal/snake"
	"github.com/Seednode/questparty/internal/validate"
)

// State is the room's current flow position. Exactly one is active per room.
type State string

const (
	StateLobby            State = "LOBBY"
	StateIntroduction     State = "INTRODUCTION"
	StateSectionIntro     State = "SECTION_INTRO"
	StateChallengeActive  State = "CHALLENGE_ACTIVE"
	StateChallengeResults State = "CHALLENGE_RESULTS"
	StateSectionComplete  State = "SECTION_COMPLETE"
	StateMapTransition    State = "MAP_TRANSITION"
	StateVictory          State = "VICTORY"
	StateGameComplete     State = "GAME_COMPLETE"
)

var (
	ErrAlreadyStarted   = errors.New("flow: game already started")
	ErrNoPlayers        = errors.New("flow: no players to start with")
	ErrNotInChallenge   = errors.New("flow: no challenge is active")
	ErrWrongChallenge   = errors.New("flow: action does not match the active challenge")
	ErrUnknownPlayer    = errors.New("flow: unknown player")
	ErrAlreadySubmitted = errors.New("flow: player already submitted this round")
)

// Player is a roster entry. Age is immutable for the session and drives
// question tiering.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// Sink receives every outbound message the coordinator produces.
type Sink interface {
	Broadcast(msg any)
}

// Durations collects every fixed interval the state machine uses.
type Durations struct {
	Intro        time.Duration
	SectionIntro time.Duration
	Challenge    time.Duration
	Results      time.Duration
	Celebration  time.Duration
	Transition   time.Duration
	// EarlyAdvanceGrace delays the all-submitted advance slightly so the
	// last submission is visible on screen before results.
	EarlyAdvanceGrace time.Duration

	SnakeTick    time.Duration
	TurnTimeout  time.Duration
	MemoryReveal time.Duration
	// MiniGameCap bounds how long a turn-based mini-game round can run
	// before the round is force-graded; a stalled game can never wedge the
	// flow.
	MiniGameCap time.Duration
}

// DefaultDurations matches the pacing the coordinator screen is built for.
func DefaultDurations() Durations {
	return Durations{
		Intro:             8 * time.Second,
		SectionIntro:      5 * time.Second,
		Challenge:         30 * time.Second,
		Results:           8 * time.Second,
		Celebration:       6 * time.Second,
		Transition:        4 * time.Second,
		EarlyAdvanceGrace: 1500 * time.Millisecond,
		SnakeTick:         150 * time.Millisecond,
		TurnTimeout:       15 * time.Second,
		MemoryReveal:      1500 * time.Millisecond,
		MiniGameCap:       3 * time.Minute,
	}
}

// Config tunes one coordinator instance.
type Config struct {
	Durations Durations
	Snake     snake.Config
	// Seed fixes the PRNG for reproducible games; 0 seeds from the clock.
	Seed int64
}

// Coordinator drives one room. Not safe for concurrent use; see the package
// comment.
type Coordinator struct {
	cfg   Config
	sched schedule.Scheduler
	sink  Sink
	log   zerolog.Logger
	rng   *rand.Rand

	state             State
	players           []Player
	round             int
	section           int
	completedSections int
	scores            map[string]int

	submissions map[string]validate.Submission
	submitOrder int

	challengeKind  questions.Kind
	questionByTier map[questions.Tier]questions.Question
	playerTiers    map[string]questions.Tier

	// sectionResults is keyed by round-in-section index, the explicit
	// grouping key for star computation.
	sectionResults [][]validate.Result
	pendingResults []validate.Result

	snakeGame    *snake.Game
	connect4Game *connect4.Match
	memoryGame   *memory.Game

	// cancelTimer is the single-slot auto-advance timer; arming a new one
	// always cancels the previous first.
	cancelTimer  schedule.CancelFunc
	cancelTick   schedule.CancelFunc
	cancelTurn   schedule.CancelFunc
	cancelReveal schedule.CancelFunc
}

// New builds a coordinator in LOBBY.
func New(cfg Config, sched schedule.Scheduler, sink Sink, log zerolog.Logger) *Coordinator {
	seed := cfg.Seed
	if seed == 0 {
		seed = sched.Now().UnixNano()
	}
	if cfg.Snake.Width == 0 {
		cfg.Snake = snake.DefaultConfig()
	}
	return &Coordinator{
		cfg:            cfg,
		sched:          sched,
		sink:           sink,
		log:            log,
		rng:            rand.New(rand.NewSource(seed)),
		state:          StateLobby,
		scores:         make(map[string]int),
		submissions:    make(map[string]validate.Submission),
		sectionResults: make([][]validate.Result, questions.RoundsPerSect),
	}
}

// Start begins the game for the given roster and broadcasts the initial
// state. Counters reset to zero and the introduction timer is armed.
func (c *Coordinator) Start(players []Player) error {
	if c.state != StateLobby {
		return ErrAlreadyStarted
	}
	if len(players) == 0 {
		return ErrNoPlayers
	}

	c.players = append([]Player(nil), players...)
	c.round = 0
	c.section = 0
	c.completedSections = 0
	c.scores = make(map[string]int, len(players))
	c.playerTiers = make(map[string]questions.Tier, len(players))
	for _, p := range players {
		c.scores[p.ID] = 0
		c.playerTiers[p.ID] = questions.TierForAge(p.Age)
	}

	c.log.Info().Int("players", len(players)).Msg("game started")
	c.transitionTo(StateIntroduction, nil)
	return nil
}

// Info is a read-only snapshot of the flow position.
type Info struct {
	State             State   `json:"state"`
	Round             int     `json:"round"`
	Section           int     `json:"section"`
	CompletedSections int     `json:"completedSections"`
	Progress          float64 `json:"progress"`
}

// GameInfo snapshots the current flow position. Progress is the share of
// rounds fully played, in percent.
func (c *Coordinator) GameInfo() Info {
	completed := c.round
	if completed > 0 && (c.state == StateChallengeActive) {
		completed--
	}
	return Info{
		State:             c.state,
		Round:             c.round,
		Section:           c.section,
		CompletedSections: c.completedSections,
		Progress:          float64(completed) / float64(questions.TotalRounds) * 100,
	}
}

// State returns the current flow state.
func (c *Coordinator) State() State {
	return c.state
}

// Scores returns the live score table.
func (c *Coordinator) Scores() map[string]int {
	out := make(map[string]int, len(c.scores))
	for id, s := range c.scores {
		out[id] = s
	}
	return out
}

// transitionTo sets the state, broadcasts it, then runs state-entry handling.
// Only handleAutoAdvance may re-enter this from within entry handling.
func (c *Coordinator) transitionTo(state State, extra map[string]any) {
	c.state = state
	c.sink.Broadcast(StateUpdate{
		Type:              MsgGameStateUpdate,
		State:             state,
		Round:             c.round,
		Section:           c.section,
		CompletedSections: c.completedSections,
		Extra:             extra,
	})

	switch state {
	case StateIntroduction:
		c.armTimer(c.cfg.Durations.Intro, StateIntroduction)
	case StateSectionIntro:
		c.armTimer(c.cfg.Durations.SectionIntro, StateSectionIntro)
	case StateChallengeActive:
		c.enterChallenge()
	case StateChallengeResults:
		c.enterResults()
	case StateSectionComplete:
		c.enterSectionComplete()
	case StateMapTransition:
		c.armTimer(c.cfg.Durations.Transition, StateMapTransition)
	case StateVictory:
		c.enterVictory()
	case StateGameComplete:
		c.cancelAll()
	}
}

// armTimer replaces the single-slot auto-advance timer. The expected state is
// re-checked when the timer fires so a stale timer can never advance a room
// that has already moved on.
func (c *Coordinator) armTimer(d time.Duration, from State) {
	if c.cancelTimer != nil {
		c.cancelTimer()
	}
	c.cancelTimer = c.sched.After(d, func() {
		c.handleAutoAdvance(from)
	})
}

// handleAutoAdvance runs when the auto-advance timer fires. Firing in an
// unexpected state is logged and dropped, never fatal.
func (c *Coordinator) handleAutoAdvance(from State) {
	if c.state != from {
		c.log.Warn().
			Str("expected", string(from)).
			Str("actual", string(c.state)).
			Msg("stale auto-advance dropped")
		return
	}
	c.advanceFrom(from)
}

// advanceFrom applies the state table's "auto-advance after" column.
func (c *Coordinator) advanceFrom(state State) {
	switch state {
	case StateIntroduction, StateMapTransition:
		c.nextRound()
	case StateSectionIntro:
		c.transitionTo(StateChallengeActive, nil)
	case StateChallengeActive:
		c.transitionTo(StateChallengeResults, nil)
	case StateChallengeResults:
		if questions.LastInSection(c.round) {
			c.transitionTo(StateSectionComplete, nil)
		} else {
			c.nextRound()
		}
	case StateSectionComplete:
		if c.round >= questions.TotalRounds {
			c.transitionTo(StateVictory, nil)
		} else {
			c.transitionTo(StateMapTransition, nil)
		}
	default:
		c.log.Warn().Str("state", string(state)).Msg("no advance rule for state")
	}
}

// nextRound increments the round counter and routes to the next state:
// VICTORY past the final round, SECTION_INTRO on a section boundary, or
// straight into the next challenge.
func (c *Coordinator) nextRound() {
	c.round++
	if c.round > questions.TotalRounds {
		c.transitionTo(StateVictory, nil)
		return
	}
	c.section = questions.SectionFor(c.round)
	if questions.FirstInSection(c.round) {
		c.transitionTo(StateSectionIntro, map[string]any{"section": c.section})
	} else {
		c.transitionTo(StateChallengeActive, nil)
	}
}

func (c *Coordinator) enterVictory() {
	c.cancelAll()
	c.sink.Broadcast(Scoreboard{
		Type:       MsgScoreboard,
		Scores:     c.Scores(),
		Placements: scorePlacements(c.scores),
		Final:      true,
	})
}

// Reset returns the room to LOBBY after VICTORY (the play-again path),
// clearing scores and cancelling anything outstanding.
func (c *Coordinator) Reset() {
	c.cancelAll()
	c.state = StateLobby
	c.round = 0
	c.section = 0
	c.completedSections = 0
	c.scores = make(map[string]int)
	c.submissions = make(map[string]validate.Submission)
	c.sectionResults = make([][]validate.Result, questions.RoundsPerSect)
	c.pendingResults = nil
	c.snakeGame = nil
	c.connect4Game = nil
	c.memoryGame = nil
	c.sink.Broadcast(StateUpdate{Type: MsgGameStateUpdate, State: StateLobby})
}

// Shutdown cancels every outstanding timer and tick loop. It must be called
// when the room is destroyed so no stale timer can mutate a dead room.
func (c *Coordinator) Shutdown() {
	c.cancelAll()
	c.state = StateGameComplete
}

func (c *Coordinator) cancelAll() {
	for _, cancel := range []schedule.CancelFunc{
		c.cancelTimer, c.cancelTick, c.cancelTurn, c.cancelReveal,
	} {
		if cancel != nil {
			cancel()
		}
	}
	c.cancelTimer = nil
	c.cancelTick = nil
	c.cancelTurn = nil
	c.cancelReveal = nil
}

// RemovePlayer drops a disconnected player from the roster, the expected
// submitter set, and any live mini-game, then re-checks whether the round is
// now fully submitted so a dropout cannot wedge it.
func (c *Coordinator) RemovePlayer(playerID string) {
	for i, p := range c.players {
		if p.ID == playerID {
			c.players = append(c.players[:i], c.players[i+1:]...)
			break
		}
	}
	delete(c.playerTiers, playerID)
	delete(c.scores, playerID)
	delete(c.submissions, playerID)

	if c.snakeGame != nil {
		c.snakeGame.RemovePlayer(playerID)
	}
	if c.connect4Game != nil {
		c.connect4Game.RemovePlayer(playerID)
		c.broadcastConnect4()
	}
	if c.memoryGame != nil {
		c.memoryGame.RemovePlayer(playerID)
		c.broadcastMemory()
	}

	if c.state == StateChallengeActive && !c.challengeKind.IsMiniGame() &&
		len(c.players) > 0 && c.allSubmitted() {
		c.TriggerEarlyAdvance()
	}
}

func (c *Coordinator) playerIDs() []string {
	ids := make([]string, 0, len(c.players))
	for _, p := range c.players {
		ids = append(ids, p.ID)
	}
	return ids
}

// scorePlacements ranks a score table descending; ties share a placement and
// leave gaps in the numbering.
func scorePlacements(scores map[string]int) map[string]int {
	type entry struct {
		id    string
		score int
	}
	entries := make([]entry, 0, len(scores))
	for id, score := range scores {
		entries = append(entries, entry{id, score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].id < entries[j].id
	})
	placements := make(map[string]int, len(entries))
	for i, e := range entries {
		if i > 0 && e.score == entries[i-1].score {
			placements[e.id] = placements[entries[i-1].id]
		} else {
			placements[e.id] = i + 1
		}
	}
	return placements
}
