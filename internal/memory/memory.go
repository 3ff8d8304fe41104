// Memory-match: a turn-based card matching game over a fixed 4×4 grid.
// The engine is a pure state machine; reveal windows and turn timeouts are
// driven by the caller, which owns the clock.
package memory

import (
	"errors"
	"math/rand"
	"sort"
)

const (
	GridWidth  = 4
	GridHeight = 4
	Pairs      = GridWidth * GridHeight / 2

	// MatchPoints is awarded per matched pair.
	MatchPoints = 15
)

var (
	ErrNotYourTurn    = errors.New("memory: not your turn")
	ErrRevealPending  = errors.New("memory: waiting for mismatch reveal")
	ErrCardUnplayable = errors.New("memory: card already face-up")
	ErrGameOver       = errors.New("memory: game is over")
	ErrBadDirection   = errors.New("memory: unknown direction")
)

// Card is one grid cell. Image is the pair identity; matched cards never
// unflip.
type Card struct {
	Image   int  `json:"image"`
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// Direction moves the shared cursor.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

// Game holds one memory round. Owned by a single room goroutine.
type Game struct {
	Cards     []Card         `json:"cards"`
	TurnOrder []string       `json:"turnOrder"`
	CursorX   int            `json:"cursorX"`
	CursorY   int            `json:"cursorY"`
	Selected  []int          `json:"selected"`
	Scores    map[string]int `json:"scores"`

	turnIndex     int
	matchedPairs  int
	revealPending bool
}

// New deals a shuffled grid and a shuffled turn order.
func New(rng *rand.Rand, playerIDs []string) *Game {
	cards := make([]Card, 0, Pairs*2)
	for image := 0; image < Pairs; image++ {
		cards = append(cards, Card{Image: image}, Card{Image: image})
	}
	// Fisher-Yates.
	for i := len(cards) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		cards[i], cards[j] = cards[j], cards[i]
	}

	order := make([]string, len(playerIDs))
	copy(order, playerIDs)
	rng.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	scores := make(map[string]int, len(order))
	for _, id := range order {
		scores[id] = 0
	}

	return &Game{
		Cards:     cards,
		TurnOrder: order,
		Scores:    scores,
	}
}

// CurrentPlayer returns whose turn it is, or "" once the game is over.
func (g *Game) CurrentPlayer() string {
	if g.Over() || len(g.TurnOrder) == 0 {
		return ""
	}
	return g.TurnOrder[g.turnIndex]
}

// Over reports whether every pair has been matched.
func (g *Game) Over() bool {
	return g.matchedPairs == Pairs
}

// RevealPending reports whether a mismatch is face-up awaiting ResolveReveal.
func (g *Game) RevealPending() bool {
	return g.revealPending
}

// MoveCursor moves the cursor one cell, bounded to the grid (no wraparound).
func (g *Game) MoveCursor(playerID string, dir Direction) error {
	if g.Over() {
		return ErrGameOver
	}
	if playerID != g.CurrentPlayer() {
		return ErrNotYourTurn
	}
	if g.revealPending {
		return ErrRevealPending
	}
	switch dir {
	case Up:
		if g.CursorY > 0 {
			g.CursorY--
		}
	case Down:
		if g.CursorY < GridHeight-1 {
			g.CursorY++
		}
	case Left:
		if g.CursorX > 0 {
			g.CursorX--
		}
	case Right:
		if g.CursorX < GridWidth-1 {
			g.CursorX++
		}
	default:
		return ErrBadDirection
	}
	return nil
}

// Outcome describes what a selection did, so the caller can arm the reveal
// timer or finish the round.
type Outcome struct {
	Index    int
	Matched  bool
	Mismatch bool
	GameOver bool
}

// Select flips the card under the cursor. The first selection of a turn flips
// one card; the second evaluates a match. A match scores and keeps the turn;
// a mismatch leaves both cards visible until ResolveReveal.
func (g *Game) Select(playerID string) (Outcome, error) {
	if g.Over() {
		return Outcome{}, ErrGameOver
	}
	if playerID != g.CurrentPlayer() {
		return Outcome{}, ErrNotYourTurn
	}
	if g.revealPending {
		return Outcome{}, ErrRevealPending
	}

	index := g.CursorY*GridWidth + g.CursorX
	card := &g.Cards[index]
	if card.Flipped || card.Matched {
		return Outcome{}, ErrCardUnplayable
	}

	card.Flipped = true
	g.Selected = append(g.Selected, index)
	out := Outcome{Index: index}

	if len(g.Selected) < 2 {
		return out, nil
	}

	first, second := &g.Cards[g.Selected[0]], &g.Cards[g.Selected[1]]
	if first.Image == second.Image {
		first.Matched = true
		second.Matched = true
		g.matchedPairs++
		g.Scores[playerID] += MatchPoints
		g.Selected = g.Selected[:0]
		out.Matched = true
		out.GameOver = g.Over()
		return out, nil
	}

	// Leave both visible; caller arms the reveal window then calls
	// ResolveReveal.
	g.revealPending = true
	out.Mismatch = true
	return out, nil
}

// ResolveReveal flips a mismatched pair back face-down and passes the turn.
func (g *Game) ResolveReveal() {
	if !g.revealPending {
		return
	}
	for _, index := range g.Selected {
		if !g.Cards[index].Matched {
			g.Cards[index].Flipped = false
		}
	}
	g.Selected = g.Selected[:0]
	g.revealPending = false
	g.advanceTurn()
}

// ForceAdvance handles a turn timeout: any face-up unmatched cards flip back
// and the turn passes, exactly as a mismatch would.
func (g *Game) ForceAdvance() {
	if g.Over() {
		return
	}
	for _, index := range g.Selected {
		if !g.Cards[index].Matched {
			g.Cards[index].Flipped = false
		}
	}
	g.Selected = g.Selected[:0]
	g.revealPending = false
	g.advanceTurn()
}

func (g *Game) advanceTurn() {
	if len(g.TurnOrder) == 0 {
		return
	}
	g.turnIndex = (g.turnIndex + 1) % len(g.TurnOrder)
}

// RemovePlayer drops a disconnected player from the turn order. If it was
// their turn, play passes to the next player in order.
func (g *Game) RemovePlayer(playerID string) {
	for i, id := range g.TurnOrder {
		if id != playerID {
			continue
		}
		g.TurnOrder = append(g.TurnOrder[:i], g.TurnOrder[i+1:]...)
		if len(g.TurnOrder) == 0 {
			g.turnIndex = 0
			return
		}
		if g.turnIndex > i {
			g.turnIndex--
		}
		g.turnIndex %= len(g.TurnOrder)
		return
	}
}

// Placements ranks players by score descending. Equal scores share a
// placement number and leave gaps (30,30,10 → 1,1,3).
func (g *Game) Placements() map[string]int {
	type entry struct {
		id    string
		score int
	}
	entries := make([]entry, 0, len(g.Scores))
	for id, score := range g.Scores {
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
