package flow

import (
	"time"

	"github.com/Seednode/questparty/internal/connect4"
	"github.com/Seednode/questparty/internal/memory"
	"github.com/Seednode/questparty/internal/questions"
	"github.com/Seednode/questparty/internal/schedule"
	"github.com/Seednode/questparty/internal/snake"
	"github.com/Seednode/questparty/internal/validate"
)

// startMiniGame hands the round to the scheduled engine. The single-slot
// state timer doubles as a hard cap: snake ends on its own clock just under
// it, the turn-based games normally finish on completion, and a wedged game
// is force-graded when the cap fires.
func (c *Coordinator) startMiniGame(kind questions.Kind) {
	limit := c.cfg.Durations.MiniGameCap
	if kind == questions.KindSnake {
		limit = c.cfg.Snake.GameDuration + 2*time.Second
	}
	c.armTimer(limit, StateChallengeActive)

	switch kind {
	case questions.KindSnake:
		c.startSnake()
	case questions.KindConnect4:
		c.startConnect4()
	case questions.KindMemory:
		c.startMemory()
	}
}

// stopEngines tears down any live mini-game state and its timers. Safe to
// call when nothing is running.
func (c *Coordinator) stopEngines() {
	for _, cancel := range []*schedule.CancelFunc{&c.cancelTick, &c.cancelTurn, &c.cancelReveal} {
		if *cancel != nil {
			(*cancel)()
			*cancel = nil
		}
	}
	c.snakeGame = nil
	c.connect4Game = nil
	c.memoryGame = nil
}

// finishMiniGame maps engine placements onto podium points, stores them as
// the round's results, and moves to CHALLENGE_RESULTS. Everyone who played
// counts as correct for section-star purposes.
func (c *Coordinator) finishMiniGame(placements map[string]int) {
	results := make([]validate.Result, 0, len(c.players))
	for _, p := range c.players {
		placement := placements[p.ID]
		results = append(results, validate.Result{
			PlayerID:  p.ID,
			Correct:   placement > 0,
			Placement: placement,
			Points:    validate.Points(placement > 0, placement),
		})
	}
	c.pendingResults = results
	c.transitionTo(StateChallengeResults, nil)
}

// --- snake ---

func (c *Coordinator) startSnake() {
	cfg := c.cfg.Snake
	c.snakeGame = snake.New(cfg, c.rng, c.playerIDs(), c.sched.Now())
	c.sink.Broadcast(SnakeStart{
		Type:  MsgSnakeGameStart,
		State: c.snakeGame.State(c.sched.Now()),
	})
	if c.cancelTick != nil {
		c.cancelTick()
	}
	c.cancelTick = c.sched.Every(c.cfg.Durations.SnakeTick, c.onSnakeTick)
}

func (c *Coordinator) onSnakeTick() {
	if c.snakeGame == nil || c.state != StateChallengeActive {
		c.log.Warn().Msg("stale snake tick dropped")
		return
	}

	now := c.sched.Now()
	events := c.snakeGame.Tick(now)

	if c.snakeGame.Over() {
		c.cancelTick()
		c.cancelTick = nil

		placements := c.snakeGame.Placements()
		c.sink.Broadcast(SnakeEnd{
			Type:       MsgSnakeGameEnd,
			Scores:     c.snakeGame.Scores(),
			Placements: placements,
		})
		c.snakeGame = nil
		c.finishMiniGame(placements)
		return
	}

	c.sink.Broadcast(SnakeTick{
		Type:   MsgSnakeGameTick,
		State:  c.snakeGame.State(now),
		Events: events,
	})
}

// HandleSnakeDirection queues a player's direction change for the next tick.
func (c *Coordinator) HandleSnakeDirection(playerID string, dir string) error {
	if c.snakeGame == nil {
		return ErrWrongChallenge
	}
	return c.snakeGame.QueueDirection(playerID, snake.Direction(dir))
}

// --- connect-4 ---

func (c *Coordinator) startConnect4() {
	c.connect4Game = connect4.NewMatch(c.playerIDs())
	c.broadcastConnect4()
	c.armTurnTimer()
}

func (c *Coordinator) broadcastConnect4() {
	current, team := c.connect4Game.CurrentPlayer()
	c.sink.Broadcast(Connect4Update{
		Type:          MsgConnect4Update,
		Match:         c.connect4Game.Snapshot(),
		CurrentPlayer: current,
		CurrentTeam:   team,
		Scores:        c.Scores(),
	})
}

// HandleConnect4Move applies a player's column drop. Rejected moves leave
// the board untouched; the caller reports the error to that player alone.
func (c *Coordinator) HandleConnect4Move(playerID string, col int) error {
	if c.connect4Game == nil {
		return ErrWrongChallenge
	}
	if err := c.connect4Game.Play(playerID, col); err != nil {
		return err
	}
	c.afterConnect4Move()
	return nil
}

func (c *Coordinator) afterConnect4Move() {
	c.broadcastConnect4()
	if !c.connect4Game.Over() {
		c.armTurnTimer()
		return
	}

	if c.cancelTurn != nil {
		c.cancelTurn()
		c.cancelTurn = nil
	}

	// Winners take first place, losers third; a draw splits the difference.
	placements := make(map[string]int, len(c.players))
	winners := make(map[string]bool)
	for _, id := range c.connect4Game.WinnerRoster() {
		winners[id] = true
	}
	for _, p := range c.players {
		switch {
		case c.connect4Game.Draw:
			placements[p.ID] = 2
		case winners[p.ID]:
			placements[p.ID] = 1
		default:
			placements[p.ID] = 3
		}
	}
	c.connect4Game = nil
	c.finishMiniGame(placements)
}

// --- memory match ---

func (c *Coordinator) startMemory() {
	c.memoryGame = memory.New(c.rng, c.playerIDs())
	c.broadcastMemory()
	c.armTurnTimer()
}

func (c *Coordinator) broadcastMemory() {
	if c.memoryGame == nil {
		return
	}
	c.sink.Broadcast(MemoryUpdate{
		Type:          MsgMemoryUpdate,
		Game:          memoryView(c.memoryGame),
		CurrentPlayer: c.memoryGame.CurrentPlayer(),
	})
}

// HandleMemoryMove moves the current player's cursor.
func (c *Coordinator) HandleMemoryMove(playerID string, dir string) error {
	if c.memoryGame == nil {
		return ErrWrongChallenge
	}
	if err := c.memoryGame.MoveCursor(playerID, memory.Direction(dir)); err != nil {
		return err
	}
	c.broadcastMemory()
	return nil
}

// HandleMemorySelect flips the card under the cursor and resolves the
// outcome: a match keeps the turn, a mismatch reveals for a fixed window
// before the turn passes, completion ends the round.
func (c *Coordinator) HandleMemorySelect(playerID string) error {
	if c.memoryGame == nil {
		return ErrWrongChallenge
	}
	out, err := c.memoryGame.Select(playerID)
	if err != nil {
		return err
	}
	c.broadcastMemory()

	switch {
	case out.GameOver:
		c.finishMemory()
	case out.Mismatch:
		// Pause the turn clock during the reveal window.
		if c.cancelTurn != nil {
			c.cancelTurn()
			c.cancelTurn = nil
		}
		if c.cancelReveal != nil {
			c.cancelReveal()
		}
		c.cancelReveal = c.sched.After(c.cfg.Durations.MemoryReveal, c.onMemoryReveal)
	case out.Matched:
		c.armTurnTimer()
	}
	return nil
}

func (c *Coordinator) onMemoryReveal() {
	if c.memoryGame == nil {
		return
	}
	c.cancelReveal = nil
	c.memoryGame.ResolveReveal()
	c.broadcastMemory()
	c.armTurnTimer()
}

func (c *Coordinator) finishMemory() {
	if c.cancelTurn != nil {
		c.cancelTurn()
		c.cancelTurn = nil
	}
	placements := c.memoryGame.Placements()
	c.memoryGame = nil
	c.finishMiniGame(placements)
}

// --- shared turn timer ---

// armTurnTimer replaces the single turn-timeout slot shared by the
// turn-based mini-games.
func (c *Coordinator) armTurnTimer() {
	if c.cancelTurn != nil {
		c.cancelTurn()
	}
	c.cancelTurn = c.sched.After(c.cfg.Durations.TurnTimeout, c.onTurnTimeout)
}

// onTurnTimeout forces the stalled turn forward: connect-4 auto-plays a
// random valid column, memory-match passes the turn as a non-match.
func (c *Coordinator) onTurnTimeout() {
	if c.state != StateChallengeActive {
		c.log.Warn().Msg("stale turn timeout dropped")
		return
	}

	switch {
	case c.connect4Game != nil:
		cols := connect4.ValidColumns(c.connect4Game.Board)
		current, _ := c.connect4Game.CurrentPlayer()
		if len(cols) == 0 || current == "" {
			return
		}
		if err := c.connect4Game.Play(current, cols[c.rng.Intn(len(cols))]); err != nil {
			c.log.Warn().Err(err).Msg("timeout auto-move rejected")
			return
		}
		c.afterConnect4Move()
	case c.memoryGame != nil:
		c.memoryGame.ForceAdvance()
		c.broadcastMemory()
		c.armTurnTimer()
	}
}
