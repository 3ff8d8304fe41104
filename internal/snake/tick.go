package snake

import (
	"sort"
	"time"
)

// EventType enumerates the discrete events a tick can produce. The engine
// returns them for the caller to relay; it never broadcasts itself.
type EventType string

const (
	EventDeath       EventType = "death"
	EventRespawn     EventType = "respawn"
	EventFoodEaten   EventType = "food-eaten"
	EventFoodSpawned EventType = "food-spawned"
	EventGameEnd     EventType = "game-end"
)

// Event is one discrete outcome of a tick.
type Event struct {
	Type     EventType `json:"type"`
	PlayerID string    `json:"playerId,omitempty"`
	Food     *Food     `json:"food,omitempty"`
	Points   int       `json:"points,omitempty"`
}

// snapshot is a snake's state frozen at the start of a tick. All collision
// checks run against snapshots so outcomes cannot depend on processing order.
type snapshot struct {
	body       []Position
	invincible bool
	moving     bool
	newHead    Position
}

// Tick advances the arena one step. In order: end the game once the duration
// has elapsed, spawn due replacement food, revive due respawns, commit queued
// directions and freeze every mover's intended position, then resolve all
// collisions against the frozen state before mutating anyone.
func (g *Game) Tick(now time.Time) []Event {
	if g.over {
		return nil
	}
	if now.Sub(g.startedAt) >= g.cfg.GameDuration {
		g.over = true
		return []Event{{Type: EventGameEnd}}
	}

	var events []Event

	// Replacement food whose delay has elapsed arrives between ticks.
	remaining := g.pending[:0]
	for _, p := range g.pending {
		if now.Before(p.spawnAt) {
			remaining = append(remaining, p)
			continue
		}
		f := g.spawnFood(p.typ)
		events = append(events, Event{Type: EventFoodSpawned, Food: &f})
	}
	g.pending = remaining

	// Phase 1: respawns, invincibility expiry, direction commit, and the
	// frozen pre-move snapshot of every snake.
	snapshots := make(map[string]*snapshot, len(g.Snakes))
	for _, s := range g.Snakes {
		if !s.Alive {
			if !s.respawnAt.IsZero() && !now.Before(s.respawnAt) {
				g.respawn(s, now)
				events = append(events, Event{Type: EventRespawn, PlayerID: s.PlayerID})
				snapshots[s.PlayerID] = &snapshot{
					body:       clonePositions(s.Body),
					invincible: s.Invincible,
				}
			}
			continue
		}

		if s.Invincible && !now.Before(s.invincibleUntil) {
			s.Invincible = false
		}
		s.Direction = s.queuedDirection

		dx, dy := s.Direction.delta()
		head := s.head()
		snapshots[s.PlayerID] = &snapshot{
			body:       clonePositions(s.Body),
			invincible: s.Invincible,
			moving:     true,
			newHead:    Position{X: head.X + dx, Y: head.Y + dy},
		}
	}

	// Phase 2: decide deaths purely from snapshots.
	dead := make(map[string]bool)
	for _, s := range g.Snakes {
		snap := snapshots[s.PlayerID]
		if snap == nil || !snap.moving {
			continue
		}
		if g.collides(s.PlayerID, snap, snapshots) {
			dead[s.PlayerID] = true
		}
	}

	// Phase 3: apply deaths and advance survivors.
	for _, s := range g.Snakes {
		snap := snapshots[s.PlayerID]
		if snap == nil || !snap.moving {
			continue
		}
		if dead[s.PlayerID] {
			g.kill(s, now)
			events = append(events, Event{Type: EventDeath, PlayerID: s.PlayerID})
			continue
		}

		s.Body = append([]Position{snap.newHead}, s.Body...)
		if f, ok := g.foodAt(snap.newHead); ok {
			points := g.cfg.RegularPoints
			if f.Type == FoodBonus {
				points = g.cfg.BonusPoints
				// Bonus food grows an extra segment.
				s.Body = append(s.Body, s.Body[len(s.Body)-1])
			}
			s.Score += points
			g.removeFood(f.ID)
			g.pending = append(g.pending, pendingFood{
				spawnAt: now.Add(g.cfg.FoodRespawnDelay),
				typ:     g.rollFoodType(),
			})
			eaten := f
			events = append(events, Event{
				Type:     EventFoodEaten,
				PlayerID: s.PlayerID,
				Food:     &eaten,
				Points:   points,
			})
		} else {
			s.Body = s.Body[:len(s.Body)-1]
		}
	}

	return events
}

// collides decides whether a mover dies this tick, using only frozen state.
func (g *Game) collides(playerID string, snap *snapshot, all map[string]*snapshot) bool {
	head := snap.newHead

	// Walls kill regardless of invincibility.
	if head.X < 0 || head.X >= g.cfg.Width || head.Y < 0 || head.Y >= g.cfg.Height {
		return true
	}

	if snap.invincible {
		return false
	}

	// Self-collision, excluding the tail cell being vacated this tick.
	for i := 0; i < len(snap.body)-1; i++ {
		if snap.body[i] == head {
			return true
		}
	}

	for otherID, other := range all {
		if otherID == playerID {
			continue
		}
		// Mutual head-on: both intended heads share a cell, both movers die.
		if other.moving && other.newHead == head {
			return true
		}
		// Body segments and un-advanced heads kill the mover alone.
		for _, p := range other.body {
			if p == head {
				return true
			}
		}
	}
	return false
}

// kill applies the death penalty, truncates the body by half (never below
// the minimum), and arms the respawn timer.
func (g *Game) kill(s *Snake, now time.Time) {
	s.Alive = false
	s.Invincible = false
	s.Score -= g.cfg.DeathPenalty
	if s.Score < 0 {
		s.Score = 0
	}

	keep := len(s.Body) / 2
	if keep < g.cfg.MinLength {
		keep = g.cfg.MinLength
	}
	if keep < len(s.Body) {
		s.Body = s.Body[:keep]
	}
	s.respawnAt = now.Add(g.cfg.RespawnDelay)
}

// respawn revives a snake at a safe cell with a fresh body and a grace window.
// The head is clamped so the body fits on the board and the heading points
// into open space.
func (g *Game) respawn(s *Snake, now time.Time) {
	head := g.freeCell()
	dir := Right
	if head.X >= g.cfg.Width/2 {
		dir = Left
	}
	if dir == Right && head.X < g.cfg.InitialLength-1 {
		head.X = g.cfg.InitialLength - 1
	}
	if dir == Left && head.X > g.cfg.Width-g.cfg.InitialLength {
		head.X = g.cfg.Width - g.cfg.InitialLength
	}
	dx, _ := dir.delta()

	body := make([]Position, 0, g.cfg.InitialLength)
	for seg := 0; seg < g.cfg.InitialLength; seg++ {
		body = append(body, Position{X: head.X - dx*seg, Y: head.Y})
	}

	s.Body = body
	s.Direction = dir
	s.queuedDirection = dir
	s.Alive = true
	s.Invincible = true
	s.invincibleUntil = now.Add(g.cfg.Invincibility)
	s.respawnAt = time.Time{}
}

func (g *Game) rollFoodType() FoodType {
	if g.rng.Float64() < g.cfg.BonusChance {
		return FoodBonus
	}
	return FoodRegular
}

func clonePositions(src []Position) []Position {
	dst := make([]Position, len(src))
	copy(dst, src)
	return dst
}

// State is the broadcast snapshot sent to clients each tick.
type State struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Snakes      []Snake `json:"snakes"`
	Food        []Food  `json:"food"`
	RemainingMs int64   `json:"remainingMs"`
}

// State captures the current arena for broadcast.
func (g *Game) State(now time.Time) State {
	snakes := make([]Snake, 0, len(g.Snakes))
	for _, s := range g.Snakes {
		c := *s
		c.Body = clonePositions(s.Body)
		snakes = append(snakes, c)
	}
	remaining := g.cfg.GameDuration - now.Sub(g.startedAt)
	if remaining < 0 {
		remaining = 0
	}
	return State{
		Width:       g.cfg.Width,
		Height:      g.cfg.Height,
		Snakes:      snakes,
		Food:        append([]Food(nil), g.Food...),
		RemainingMs: remaining.Milliseconds(),
	}
}

// Scores returns the current score per player.
func (g *Game) Scores() map[string]int {
	scores := make(map[string]int, len(g.Snakes))
	for _, s := range g.Snakes {
		scores[s.PlayerID] = s.Score
	}
	return scores
}

// Placements ranks players by score descending; equal scores share a rank
// and leave gaps.
func (g *Game) Placements() map[string]int {
	type entry struct {
		id    string
		score int
	}
	entries := make([]entry, 0, len(g.Snakes))
	for _, s := range g.Snakes {
		entries = append(entries, entry{s.PlayerID, s.Score})
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
