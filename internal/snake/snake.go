// Shared-arena snake: N player snakes on one board, advanced by a fixed-rate
// tick. The engine never touches the network or real clocks; the caller feeds
// it the current time on every Tick and relays the returned events.
package snake

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Direction is a snake heading.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

func (d Direction) delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	case Right:
		return 1, 0
	}
	return 0, 0
}

func (d Direction) opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	}
	return ""
}

var (
	ErrUnknownDirection = errors.New("snake: unknown direction")
	ErrUnknownPlayer    = errors.New("snake: unknown player")
	ErrReversal         = errors.New("snake: cannot reverse into yourself")
)

// Position is one board cell.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// FoodType distinguishes regular food from the rarer bonus food.
type FoodType string

const (
	FoodRegular FoodType = "regular"
	FoodBonus   FoodType = "bonus"
)

// Food is an edible cell. IDs let clients animate a specific item away.
type Food struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Type     FoodType `json:"type"`
}

// Config tunes one snake arena.
type Config struct {
	Width  int
	Height int

	GameDuration     time.Duration
	RespawnDelay     time.Duration
	Invincibility    time.Duration
	FoodRespawnDelay time.Duration

	InitialLength int
	MinLength     int
	DeathPenalty  int

	RegularPoints    int
	BonusPoints      int
	BonusChance      float64
	InitialFood      int
	PlacementRetries int
}

// DefaultConfig is the standard arena used by the flow coordinator.
func DefaultConfig() Config {
	return Config{
		Width:            20,
		Height:           20,
		GameDuration:     45 * time.Second,
		RespawnDelay:     3 * time.Second,
		Invincibility:    3 * time.Second,
		FoodRespawnDelay: time.Second,
		InitialLength:    3,
		MinLength:        3,
		DeathPenalty:     5,
		RegularPoints:    10,
		BonusPoints:      25,
		BonusChance:      0.2,
		InitialFood:      4,
		PlacementRetries: 50,
	}
}

// Snake is one player's agent. Body[0] is the head.
type Snake struct {
	PlayerID   string     `json:"playerId"`
	Body       []Position `json:"body"`
	Direction  Direction  `json:"direction"`
	Alive      bool       `json:"alive"`
	Invincible bool       `json:"invincible"`
	Score      int        `json:"score"`

	// queuedDirection is committed at the next tick; buffering for exactly
	// one tick closes the intra-tick reversal exploit.
	queuedDirection Direction
	invincibleUntil time.Time
	respawnAt       time.Time
}

func (s *Snake) head() Position {
	return s.Body[0]
}

type pendingFood struct {
	spawnAt time.Time
	typ     FoodType
}

// Game is one running snake arena, owned by a single room goroutine.
type Game struct {
	cfg       Config
	rng       *rand.Rand
	startedAt time.Time
	over      bool

	Snakes []*Snake
	Food   []Food

	pending []pendingFood
	byID    map[string]*Snake
}

// New spawns one snake per player at spaced rows plus the initial food.
func New(cfg Config, rng *rand.Rand, playerIDs []string, now time.Time) *Game {
	g := &Game{
		cfg:       cfg,
		rng:       rng,
		startedAt: now,
		byID:      make(map[string]*Snake, len(playerIDs)),
	}

	for i, id := range playerIDs {
		y := cfg.Height * (i + 1) / (len(playerIDs) + 1)
		dir := Right
		if i%2 == 1 {
			dir = Left
		}
		s := &Snake{
			PlayerID:        id,
			Direction:       dir,
			queuedDirection: dir,
			Alive:           true,
		}
		// Body extends away from the heading so the first ticks are safe.
		dx, _ := dir.delta()
		head := Position{X: cfg.Width / 2, Y: y}
		for seg := 0; seg < cfg.InitialLength; seg++ {
			s.Body = append(s.Body, Position{X: head.X - dx*seg, Y: head.Y})
		}
		g.Snakes = append(g.Snakes, s)
		g.byID[id] = s
	}

	for i := 0; i < cfg.InitialFood; i++ {
		typ := FoodRegular
		if i == cfg.InitialFood-1 {
			typ = FoodBonus
		}
		g.spawnFood(typ)
	}

	return g
}

// Over reports whether the game-end event has fired.
func (g *Game) Over() bool {
	return g.over
}

// QueueDirection buffers a direction change for the player's next tick.
// Reversing straight into your own neck is rejected.
func (g *Game) QueueDirection(playerID string, dir Direction) error {
	switch dir {
	case Up, Down, Left, Right:
	default:
		return ErrUnknownDirection
	}
	s, ok := g.byID[playerID]
	if !ok {
		return ErrUnknownPlayer
	}
	if !s.Alive {
		return nil
	}
	if dir == s.Direction.opposite() {
		return ErrReversal
	}
	s.queuedDirection = dir
	return nil
}

// RemovePlayer drops a disconnected player's snake from the arena.
func (g *Game) RemovePlayer(playerID string) {
	s, ok := g.byID[playerID]
	if !ok {
		return
	}
	delete(g.byID, playerID)
	for i, candidate := range g.Snakes {
		if candidate == s {
			g.Snakes = append(g.Snakes[:i], g.Snakes[i+1:]...)
			break
		}
	}
}

func (g *Game) occupied() map[Position]bool {
	cells := make(map[Position]bool)
	for _, s := range g.Snakes {
		if !s.Alive {
			continue
		}
		for _, p := range s.Body {
			cells[p] = true
		}
	}
	for _, f := range g.Food {
		cells[f.Position] = true
	}
	return cells
}

// freeCell samples random cells a bounded number of times and falls back to
// the board center. Extreme crowding can therefore place on an occupied cell,
// which is acceptable degraded behavior.
func (g *Game) freeCell() Position {
	taken := g.occupied()
	for i := 0; i < g.cfg.PlacementRetries; i++ {
		p := Position{X: g.rng.Intn(g.cfg.Width), Y: g.rng.Intn(g.cfg.Height)}
		if !taken[p] {
			return p
		}
	}
	return Position{X: g.cfg.Width / 2, Y: g.cfg.Height / 2}
}

func (g *Game) spawnFood(typ FoodType) Food {
	f := Food{
		ID:       uuid.NewString(),
		Position: g.freeCell(),
		Type:     typ,
	}
	g.Food = append(g.Food, f)
	return f
}

func (g *Game) foodAt(p Position) (Food, bool) {
	for _, f := range g.Food {
		if f.Position == p {
			return f, true
		}
	}
	return Food{}, false
}

func (g *Game) removeFood(id string) {
	for i, f := range g.Food {
		if f.ID == id {
			g.Food = append(g.Food[:i], g.Food[i+1:]...)
			return
		}
	}
}
