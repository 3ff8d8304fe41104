package memory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGame(t *testing.T, players ...string) *Game {
	t.Helper()
	g := New(rand.New(rand.NewSource(5)), players)
	require.Len(t, g.Cards, Pairs*2)
	require.Len(t, g.TurnOrder, len(players))
	return g
}

// moveTo walks the cursor to the card index, which is always reachable
// without wraparound.
func moveTo(t *testing.T, g *Game, index int) {
	t.Helper()
	x, y := index%GridWidth, index/GridWidth
	player := g.CurrentPlayer()
	for g.CursorX > x {
		require.NoError(t, g.MoveCursor(player, Left))
	}
	for g.CursorX < x {
		require.NoError(t, g.MoveCursor(player, Right))
	}
	for g.CursorY > y {
		require.NoError(t, g.MoveCursor(player, Up))
	}
	for g.CursorY < y {
		require.NoError(t, g.MoveCursor(player, Down))
	}
}

// findPair returns the indices of two cards sharing an image, skipping
// matched cards.
func findPair(g *Game) (int, int) {
	for i := range g.Cards {
		if g.Cards[i].Matched {
			continue
		}
		for j := i + 1; j < len(g.Cards); j++ {
			if !g.Cards[j].Matched && g.Cards[i].Image == g.Cards[j].Image {
				return i, j
			}
		}
	}
	return -1, -1
}

// findMismatch returns two unmatched card indices with different images.
func findMismatch(g *Game) (int, int) {
	for i := range g.Cards {
		if g.Cards[i].Matched {
			continue
		}
		for j := i + 1; j < len(g.Cards); j++ {
			if !g.Cards[j].Matched && g.Cards[i].Image != g.Cards[j].Image {
				return i, j
			}
		}
	}
	return -1, -1
}

func selectAt(t *testing.T, g *Game, index int) Outcome {
	t.Helper()
	moveTo(t, g, index)
	out, err := g.Select(g.CurrentPlayer())
	require.NoError(t, err)
	return out
}

func TestNewDealsPairs(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a", "b", "c")

	counts := make(map[int]int)
	for _, c := range g.Cards {
		counts[c.Image]++
		assert.False(t, c.Flipped)
		assert.False(t, c.Matched)
	}
	assert.Len(t, counts, Pairs)
	for image, n := range counts {
		assert.Equal(t, 2, n, "image %d", image)
	}

	assert.ElementsMatch(t, []string{"a", "b", "c"}, g.TurnOrder)
}

func TestCursorBoundsNoWraparound(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a")
	player := g.CurrentPlayer()

	for i := 0; i < GridWidth+2; i++ {
		require.NoError(t, g.MoveCursor(player, Left))
	}
	assert.Zero(t, g.CursorX)

	for i := 0; i < GridHeight+2; i++ {
		require.NoError(t, g.MoveCursor(player, Down))
	}
	assert.Equal(t, GridHeight-1, g.CursorY)

	assert.ErrorIs(t, g.MoveCursor(player, Direction("diagonal")), ErrBadDirection)
	assert.ErrorIs(t, g.MoveCursor("stranger", Up), ErrNotYourTurn)
}

func TestMatchKeepsTurnAndScores(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a", "b")
	player := g.CurrentPlayer()
	i, j := findPair(g)

	out := selectAt(t, g, i)
	assert.False(t, out.Matched)
	assert.True(t, g.Cards[i].Flipped)

	out = selectAt(t, g, j)
	assert.True(t, out.Matched)
	assert.True(t, g.Cards[i].Matched)
	assert.True(t, g.Cards[j].Matched)
	assert.Equal(t, MatchPoints, g.Scores[player])
	assert.Equal(t, player, g.CurrentPlayer(), "a match keeps the turn")
}

func TestMismatchRevealsThenPassesTurn(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a", "b")
	first := g.CurrentPlayer()
	i, j := findMismatch(g)

	selectAt(t, g, i)
	out := selectAt(t, g, j)
	assert.True(t, out.Mismatch)
	assert.True(t, g.RevealPending())

	// Both stay visible during the reveal window, and input is rejected.
	assert.True(t, g.Cards[i].Flipped)
	assert.True(t, g.Cards[j].Flipped)
	_, err := g.Select(first)
	assert.ErrorIs(t, err, ErrRevealPending)
	assert.ErrorIs(t, g.MoveCursor(first, Up), ErrRevealPending)

	g.ResolveReveal()
	assert.False(t, g.Cards[i].Flipped)
	assert.False(t, g.Cards[j].Flipped)
	assert.NotEqual(t, first, g.CurrentPlayer())
}

func TestSelectRejectsFaceUpCard(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a")
	selectAt(t, g, 0)
	moveTo(t, g, 0)
	_, err := g.Select(g.CurrentPlayer())
	assert.ErrorIs(t, err, ErrCardUnplayable)
}

func TestForceAdvanceFlipsBackAndPasses(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a", "b")
	first := g.CurrentPlayer()
	i, _ := findMismatch(g)

	selectAt(t, g, i)
	g.ForceAdvance()

	assert.False(t, g.Cards[i].Flipped)
	assert.Empty(t, g.Selected)
	assert.NotEqual(t, first, g.CurrentPlayer())
}

func TestPlayThroughToEnd(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a", "b")
	for !g.Over() {
		i, j := findPair(g)
		require.GreaterOrEqual(t, i, 0)
		selectAt(t, g, i)
		out := selectAt(t, g, j)
		require.True(t, out.Matched)
	}

	assert.True(t, g.Over())
	assert.Empty(t, g.CurrentPlayer())
	_, err := g.Select("a")
	assert.ErrorIs(t, err, ErrGameOver)

	total := 0
	for _, s := range g.Scores {
		total += s
	}
	assert.Equal(t, Pairs*MatchPoints, total)
}

func TestPlacementsShareRanksWithGaps(t *testing.T) {
	t.Parallel()

	g := &Game{Scores: map[string]int{"a": 30, "b": 30, "c": 10}}
	placements := g.Placements()

	assert.Equal(t, 1, placements["a"])
	assert.Equal(t, 1, placements["b"])
	assert.Equal(t, 3, placements["c"])
}

func TestRemovePlayer(t *testing.T) {
	t.Parallel()

	g := newTestGame(t, "a", "b", "c")
	current := g.CurrentPlayer()

	g.RemovePlayer(current)
	assert.Len(t, g.TurnOrder, 2)
	assert.NotEqual(t, current, g.CurrentPlayer())
	assert.NotEmpty(t, g.CurrentPlayer())
}
