package flow

import (
	"github.com/Seednode/questparty/internal/connect4"
	"github.com/Seednode/questparty/internal/memory"
	"github.com/Seednode/questparty/internal/questions"
	"github.com/Seednode/questparty/internal/snake"
	"github.com/Seednode/questparty/internal/validate"
)

// Outbound message types. Every server→client message is a JSON object with
// a "type" discriminator the transport layer dispatches on.
const (
	MsgGameStateUpdate  = "game-state-update"
	MsgChallengeStarted = "challenge-started"
	MsgAnswerSubmitted  = "answer-submitted"
	MsgChallengeResults = "challenge-results"
	MsgSectionStars     = "section-stars"
	MsgScoreboard       = "scoreboard"
	MsgSnakeGameStart   = "snake-game-start"
	MsgSnakeGameTick    = "snake-game-tick"
	MsgSnakeGameEnd     = "snake-game-end"
	MsgConnect4Update   = "connect4-update"
	MsgMemoryUpdate     = "memory-update"
)

// StateUpdate announces every flow transition to the room.
type StateUpdate struct {
	Type              string         `json:"type"`
	State             State          `json:"state"`
	Round             int            `json:"round"`
	Section           int            `json:"section"`
	CompletedSections int            `json:"completedSections"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// QuestionView is the client-visible part of a question; the answer key
// stays server-side.
type QuestionView struct {
	Kind    questions.Kind `json:"kind"`
	Tier    questions.Tier `json:"tier"`
	Prompt  string         `json:"prompt"`
	Choices []string       `json:"choices,omitempty"`
}

// ChallengeStarted opens a quiz round. Questions are keyed by player id,
// each already matched to that player's tier.
type ChallengeStarted struct {
	Type       string                  `json:"type"`
	Kind       questions.Kind          `json:"kind"`
	Round      int                     `json:"round"`
	Section    int                     `json:"section"`
	DurationMs int64                   `json:"durationMs"`
	Questions  map[string]QuestionView `json:"questions"`
}

// AnswerSubmitted tells the room a player has answered (not what).
type AnswerSubmitted struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
}

// ChallengeResults carries the graded round plus the updated score table.
type ChallengeResults struct {
	Type    string            `json:"type"`
	Round   int               `json:"round"`
	Results []validate.Result `json:"results"`
	Scores  map[string]int    `json:"scores"`
}

// SectionStarsMsg reports the stars earned for the finished section.
type SectionStarsMsg struct {
	Type    string         `json:"type"`
	Section int            `json:"section"`
	Stars   int            `json:"stars"`
	Passed  bool           `json:"passed"`
	Scores  map[string]int `json:"scores"`
}

// Scoreboard is broadcast after grading and, with Final set, at VICTORY.
type Scoreboard struct {
	Type       string         `json:"type"`
	Scores     map[string]int `json:"scores"`
	Placements map[string]int `json:"placements"`
	Final      bool           `json:"final,omitempty"`
}

// SnakeStart opens a snake round with the initial arena.
type SnakeStart struct {
	Type  string      `json:"type"`
	State snake.State `json:"gameState"`
}

// SnakeTick is the per-tick arena snapshot plus the tick's discrete events.
type SnakeTick struct {
	Type   string        `json:"type"`
	State  snake.State   `json:"gameState"`
	Events []snake.Event `json:"events,omitempty"`
}

// SnakeEnd closes a snake round with final scores and placements.
type SnakeEnd struct {
	Type       string         `json:"type"`
	Scores     map[string]int `json:"finalScores"`
	Placements map[string]int `json:"placements"`
}

// Connect4Update is a full connect-4 snapshot after every accepted move.
// Messages sit in per-client queues until their write pumps drain them, so
// the payload must be a copy, never a reference into the live match.
type Connect4Update struct {
	Type          string              `json:"type"`
	Match         connect4.MatchState `json:"match"`
	CurrentPlayer string              `json:"currentPlayer,omitempty"`
	CurrentTeam   connect4.Team       `json:"currentTeam,omitempty"`
	Scores        map[string]int      `json:"scores"`
}

// MemoryCardView hides face-down card identities from clients.
type MemoryCardView struct {
	Image   int  `json:"image"` // -1 while face-down
	Flipped bool `json:"flipped"`
	Matched bool `json:"matched"`
}

// MemoryView is the client-visible memory-match state.
type MemoryView struct {
	Cards     []MemoryCardView `json:"cards"`
	TurnOrder []string         `json:"turnOrder"`
	CursorX   int              `json:"cursorX"`
	CursorY   int              `json:"cursorY"`
	Scores    map[string]int   `json:"scores"`
}

// MemoryUpdate is broadcast after every accepted memory-match action.
type MemoryUpdate struct {
	Type          string     `json:"type"`
	Game          MemoryView `json:"game"`
	CurrentPlayer string     `json:"currentPlayer,omitempty"`
}

func memoryView(g *memory.Game) MemoryView {
	cards := make([]MemoryCardView, len(g.Cards))
	for i, card := range g.Cards {
		view := MemoryCardView{Image: -1, Flipped: card.Flipped, Matched: card.Matched}
		if card.Flipped || card.Matched {
			view.Image = card.Image
		}
		cards[i] = view
	}
	scores := make(map[string]int, len(g.Scores))
	for id, s := range g.Scores {
		scores[id] = s
	}
	return MemoryView{
		Cards:     cards,
		TurnOrder: append([]string(nil), g.TurnOrder...),
		CursorX:   g.CursorX,
		CursorY:   g.CursorY,
		Scores:    scores,
	}
}
