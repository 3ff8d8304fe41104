package snake

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Unix(1000, 0)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 12
	cfg.Height = 12
	cfg.InitialFood = 0
	return cfg
}

// bareGame builds an arena without the spawn layout so tests can place
// snakes exactly.
func bareGame(cfg Config) *Game {
	return &Game{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(1)),
		startedAt: t0,
		byID:      make(map[string]*Snake),
	}
}

func addSnake(g *Game, id string, dir Direction, body ...Position) *Snake {
	s := &Snake{
		PlayerID:        id,
		Body:            body,
		Direction:       dir,
		queuedDirection: dir,
		Alive:           true,
	}
	g.Snakes = append(g.Snakes, s)
	g.byID[id] = s
	return s
}

func eventsOfType(events []Event, typ EventType) []Event {
	var out []Event
	for _, e := range events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func TestNewSpawnsSpacedSnakes(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	g := New(cfg, rand.New(rand.NewSource(2)), []string{"a", "b", "c"}, t0)

	require.Len(t, g.Snakes, 3)
	seenRows := make(map[int]bool)
	for _, s := range g.Snakes {
		assert.Len(t, s.Body, cfg.InitialLength)
		assert.True(t, s.Alive)
		assert.False(t, seenRows[s.head().Y], "snakes must not share a row")
		seenRows[s.head().Y] = true
	}
	assert.Len(t, g.Food, cfg.InitialFood)
}

func TestTickMovesSnakeForward(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	s := addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})

	events := g.Tick(t0.Add(time.Second))
	assert.Empty(t, eventsOfType(events, EventDeath))
	assert.Equal(t, Position{6, 5}, s.head())
	assert.Len(t, s.Body, 3, "no food means net-zero length")
}

func TestQueuedDirectionCommitsNextTick(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	s := addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})

	require.NoError(t, g.QueueDirection("a", Up))
	require.NoError(t, g.QueueDirection("a", Down), "queue may be rewritten before the tick")

	g.Tick(t0.Add(time.Second))
	assert.Equal(t, Down, s.Direction)
	assert.Equal(t, Position{5, 6}, s.head())
}

func TestQueueDirectionRejectsReversal(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})

	assert.ErrorIs(t, g.QueueDirection("a", Left), ErrReversal)
	assert.ErrorIs(t, g.QueueDirection("a", Direction("sideways")), ErrUnknownDirection)
	assert.ErrorIs(t, g.QueueDirection("ghost", Up), ErrUnknownPlayer)
}

func TestWallCollisionKills(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	s := addSnake(g, "a", Right, Position{11, 5}, Position{10, 5}, Position{9, 5})
	s.Score = 20

	events := g.Tick(t0.Add(time.Second))

	deaths := eventsOfType(events, EventDeath)
	require.Len(t, deaths, 1)
	assert.Equal(t, "a", deaths[0].PlayerID)
	assert.False(t, s.Alive)
	assert.Equal(t, 15, s.Score, "death applies the score penalty")
	assert.False(t, s.respawnAt.IsZero())
}

func TestMutualHeadOnKillsBoth(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	a := addSnake(g, "a", Right, Position{4, 5}, Position{3, 5}, Position{2, 5})
	b := addSnake(g, "b", Left, Position{6, 5}, Position{7, 5}, Position{8, 5})

	events := g.Tick(t0.Add(time.Second))

	deaths := eventsOfType(events, EventDeath)
	assert.Len(t, deaths, 2)
	assert.False(t, a.Alive)
	assert.False(t, b.Alive)
}

func TestBodyCollisionKillsOnlyMover(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	mover := addSnake(g, "mover", Right, Position{4, 5}, Position{3, 5}, Position{2, 5})
	// Vertical snake whose body crosses the mover's path at (5,5); it moves
	// away upward but its snapshotted body still occupies the cell.
	blocker := addSnake(g, "blocker", Up, Position{5, 4}, Position{5, 5}, Position{5, 6})

	events := g.Tick(t0.Add(time.Second))

	deaths := eventsOfType(events, EventDeath)
	require.Len(t, deaths, 1)
	assert.Equal(t, "mover", deaths[0].PlayerID)
	assert.False(t, mover.Alive)
	assert.True(t, blocker.Alive)
}

func TestInvincibleSnakeIgnoresCollisions(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	tank := addSnake(g, "tank", Right, Position{4, 5}, Position{3, 5}, Position{2, 5})
	tank.Invincible = true
	tank.invincibleUntil = t0.Add(time.Minute)
	victim := addSnake(g, "victim", Up, Position{5, 4}, Position{5, 5}, Position{5, 6})

	events := g.Tick(t0.Add(time.Second))

	assert.Empty(t, eventsOfType(events, EventDeath), "invincible mover survives")
	assert.True(t, tank.Alive)
	assert.True(t, victim.Alive)
	assert.Equal(t, Position{5, 5}, tank.head())
}

func TestSelfCollisionExcludesVacatedTail(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	// A 2x2 loop: head chases its own tail cell, which is vacated this tick.
	s := addSnake(g, "a", Down,
		Position{5, 5}, Position{6, 5}, Position{6, 6}, Position{5, 6})

	events := g.Tick(t0.Add(time.Second))
	assert.Empty(t, eventsOfType(events, EventDeath))
	assert.True(t, s.Alive)
}

func TestSelfCollisionKills(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	// Long enough that turning into the body hits a non-tail segment.
	s := addSnake(g, "a", Up,
		Position{5, 5}, Position{6, 5}, Position{7, 5}, Position{7, 6}, Position{6, 6}, Position{5, 6})
	require.NoError(t, g.QueueDirection("a", Right))

	events := g.Tick(t0.Add(time.Second))
	require.Len(t, eventsOfType(events, EventDeath), 1)
	assert.False(t, s.Alive)
}

func TestDeathTruncatesBodyWithFloor(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	g := bareGame(cfg)
	body := make([]Position, 0, 8)
	for i := 0; i < 8; i++ {
		body = append(body, Position{11 - 7 + i, 5})
	}
	s := addSnake(g, "a", Left, body...)
	s.Body[0] = Position{0, 5} // head at the wall
	s.queuedDirection = Left

	g.Tick(t0.Add(time.Second))
	require.False(t, s.Alive)
	assert.Len(t, s.Body, 4, "half of 8")

	// A short snake never truncates below the minimum.
	g2 := bareGame(cfg)
	short := addSnake(g2, "b", Left, Position{0, 3}, Position{1, 3}, Position{2, 3})
	g2.Tick(t0.Add(time.Second))
	require.False(t, short.Alive)
	assert.Len(t, short.Body, cfg.MinLength)
}

func TestRespawnGrantsInvincibilityThenExpires(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	g := bareGame(cfg)
	s := addSnake(g, "a", Right, Position{11, 5}, Position{10, 5}, Position{9, 5})

	g.Tick(t0.Add(time.Second))
	require.False(t, s.Alive)

	// Before the respawn delay elapses nothing happens.
	g.Tick(t0.Add(time.Second + cfg.RespawnDelay/2))
	assert.False(t, s.Alive)

	events := g.Tick(t0.Add(time.Second + cfg.RespawnDelay))
	respawns := eventsOfType(events, EventRespawn)
	require.Len(t, respawns, 1)
	assert.True(t, s.Alive)
	assert.True(t, s.Invincible)
	assert.Len(t, s.Body, cfg.InitialLength)

	// Invincibility expires after its window.
	g.Tick(t0.Add(time.Second + cfg.RespawnDelay + cfg.Invincibility + time.Second))
	assert.False(t, s.Invincible)
}

func TestFoodLifecycle(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.BonusChance = 0 // deterministic replacement type
	g := bareGame(cfg)
	s := addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})
	g.Food = []Food{{ID: "f1", Position: Position{6, 5}, Type: FoodRegular}}

	events := g.Tick(t0.Add(time.Second))

	eaten := eventsOfType(events, EventFoodEaten)
	require.Len(t, eaten, 1)
	assert.Equal(t, cfg.RegularPoints, eaten[0].Points)
	assert.Equal(t, cfg.RegularPoints, s.Score)
	assert.Len(t, s.Body, 4, "regular food grows one segment")
	assert.Empty(t, g.Food, "eaten food is removed")

	// Replacement not yet due on the next tick.
	events = g.Tick(t0.Add(time.Second + cfg.FoodRespawnDelay/2))
	assert.Empty(t, eventsOfType(events, EventFoodSpawned))

	events = g.Tick(t0.Add(time.Second + cfg.FoodRespawnDelay + time.Second))
	spawned := eventsOfType(events, EventFoodSpawned)
	require.Len(t, spawned, 1)
	assert.Len(t, g.Food, 1)
}

func TestBonusFoodGrowsExtraSegment(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	g := bareGame(cfg)
	s := addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})
	g.Food = []Food{{ID: "f1", Position: Position{6, 5}, Type: FoodBonus}}

	g.Tick(t0.Add(time.Second))

	assert.Equal(t, cfg.BonusPoints, s.Score)
	assert.Len(t, s.Body, 5, "bonus food grows two segments")
}

func TestGameEndsAfterDuration(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	g := bareGame(cfg)
	addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})

	events := g.Tick(t0.Add(cfg.GameDuration))
	ends := eventsOfType(events, EventGameEnd)
	require.Len(t, ends, 1)
	assert.True(t, g.Over())

	assert.Empty(t, g.Tick(t0.Add(cfg.GameDuration+time.Second)), "finished games ignore ticks")
}

func TestPlacementsShareRanksWithGaps(t *testing.T) {
	t.Parallel()

	g := bareGame(testConfig())
	addSnake(g, "a", Right, Position{1, 1}).Score = 30
	addSnake(g, "b", Right, Position{1, 3}).Score = 30
	addSnake(g, "c", Right, Position{1, 5}).Score = 10

	placements := g.Placements()
	assert.Equal(t, 1, placements["a"])
	assert.Equal(t, 1, placements["b"])
	assert.Equal(t, 3, placements["c"])
}

func TestFreeCellAvoidsOccupied(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	g := bareGame(cfg)
	addSnake(g, "a", Right, Position{5, 5}, Position{4, 5}, Position{3, 5})

	taken := g.occupied()
	for i := 0; i < 100; i++ {
		p := g.freeCell()
		assert.False(t, taken[p])
	}
}
