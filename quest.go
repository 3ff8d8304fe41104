// Room transport for the quest game.
//
// Each room runs a single goroutine that owns all game state: client
// registration, inbound player messages, and scheduler callbacks are all
// funneled onto that goroutine through channels, so the flow coordinator
// never needs locks. The first websocket connection to a room becomes the
// coordinator (the shared screen); phones join afterwards with a name and
// age.

package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Seednode/questparty/internal/flow"
	"github.com/Seednode/questparty/internal/schedule"
	"github.com/Seednode/questparty/internal/snake"
)

// clientMessage is the envelope for everything phones and the screen send.
type clientMessage struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`        // join-game
	Age         int    `json:"age,omitempty"`         // join-game
	Answer      any    `json:"answer,omitempty"`      // submit-answer
	TimeSpentMs int64  `json:"timeSpentMs,omitempty"` // submit-answer
	Direction   string `json:"direction,omitempty"`   // snake-direction / memory-move
	Column      *int   `json:"column,omitempty"`      // connect4-move
}

// RosterEntry is the public view of one joined player.
type RosterEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Age      int    `json:"age"`
}

type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

type GameCreatedMessage struct {
	Type     string `json:"type"` // "game-created"
	RoomCode string `json:"roomCode"`
	JoinURL  string `json:"joinUrl"`
}

type JoinedGameMessage struct {
	Type     string        `json:"type"` // "joined-game"
	PlayerID string        `json:"playerId"`
	Name     string        `json:"name"`
	Age      int           `json:"age"`
	Players  []RosterEntry `json:"players"`
}

type PlayerJoinedMessage struct {
	Type    string        `json:"type"` // "player-joined"
	Player  RosterEntry   `json:"player"`
	Players []RosterEntry `json:"players"`
}

type PlayerLeftMessage struct {
	Type     string        `json:"type"` // "player-left"
	PlayerID string        `json:"playerId"`
	Players  []RosterEntry `json:"players"`
}

type GameStartedMessage struct {
	Type    string        `json:"type"` // "game-started"
	Players []RosterEntry `json:"players"`
}

type GameEndedMessage struct {
	Type    string `json:"type"` // "game-ended"
	Message string `json:"message"`
}

type Client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
}

type inboundMessage struct {
	client *Client
	msg    clientMessage
}

// Room is one isolated session: a coordinator screen plus joined phones.
type Room struct {
	code string
	cfg  *Config
	log  zerolog.Logger

	register chan *Client
	unreg    chan *Client
	inbound  chan inboundMessage
	tasks    chan func()

	done      chan struct{}
	closeOnce sync.Once
	onClose   func()

	// Everything below is owned by the run goroutine.
	clients       map[*Client]bool
	roster        []flow.Player
	coordinatorID string
	coord         *flow.Coordinator
	sched         schedule.Scheduler

	mu         sync.RWMutex
	createdAt  time.Time
	lastActive time.Time
}

func newRoom(cfg *Config, code string, onClose func()) *Room {
	now := time.Now()
	r := &Room{
		code:       code,
		cfg:        cfg,
		log:        cfg.log.With().Str("room", code).Logger(),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		inbound:    make(chan inboundMessage),
		tasks:      make(chan func(), 16),
		done:       make(chan struct{}),
		onClose:    onClose,
		clients:    make(map[*Client]bool),
		createdAt:  now,
		lastActive: now,
	}
	r.sched = &roomScheduler{room: r}

	durations := flow.DefaultDurations()
	durations.Intro = cfg.introDuration
	durations.Challenge = cfg.challengeDuration
	durations.Results = cfg.resultsDuration
	durations.SnakeTick = cfg.snakeTick
	durations.TurnTimeout = cfg.turnTimeout

	snakeCfg := snake.DefaultConfig()
	snakeCfg.GameDuration = cfg.snakeDuration

	r.coord = flow.New(flow.Config{
		Durations: durations,
		Snake:     snakeCfg,
	}, r.sched, roomSink{room: r}, r.log)

	go r.run()
	return r
}

// roomScheduler wraps wall-clock timers so their callbacks land on the room
// goroutine instead of a timer goroutine.
type roomScheduler struct {
	wall schedule.Wall
	room *Room
}

func (s *roomScheduler) Now() time.Time {
	return s.wall.Now()
}

func (s *roomScheduler) After(d time.Duration, fn func()) schedule.CancelFunc {
	return s.wall.After(d, func() { s.room.post(fn) })
}

func (s *roomScheduler) Every(d time.Duration, fn func()) schedule.CancelFunc {
	return s.wall.Every(d, func() { s.room.post(fn) })
}

// roomSink delivers coordinator broadcasts to every connected client. The
// coordinator only runs on the room goroutine, so this can touch the client
// map directly.
type roomSink struct {
	room *Room
}

func (s roomSink) Broadcast(msg any) {
	s.room.broadcast(msg)
}

// post hands a callback to the room goroutine, dropping it if the room has
// been torn down.
func (r *Room) post(fn func()) {
	select {
	case r.tasks <- fn:
	case <-r.done:
	}
}

func (r *Room) run() {
	for {
		select {
		case c := <-r.register:
			r.handleRegister(c)
		case c := <-r.unreg:
			r.handleUnregister(c)
		case m := <-r.inbound:
			r.handleMessage(m)
		case fn := <-r.tasks:
			fn()
		case <-r.done:
			r.coord.Shutdown()
			for c := range r.clients {
				close(c.send)
				if c.conn != nil {
					_ = c.conn.Close()
				}
				delete(r.clients, c)
			}
			return
		}
	}
}

// close tears the room down. Safe to call from any goroutine and more than
// once; cleanup happens on the room goroutine.
func (r *Room) close() {
	r.closeOnce.Do(func() {
		close(r.done)
		if r.onClose != nil {
			r.onClose()
		}
	})
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = time.Now()
	r.mu.Unlock()
}

func (r *Room) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

func (r *Room) broadcast(msg any) {
	for client := range r.clients {
		select {
		case client.send <- msg:
		default:
			delete(r.clients, client)
			close(client.send)
		}
	}
}

func (r *Room) sendTo(c *Client, msg any) {
	// A broadcast may already have dropped this client and closed its send
	// channel; its read pump can still deliver messages after that, so
	// replying to a non-member would send on a closed channel.
	if !r.clients[c] {
		return
	}
	select {
	case c.send <- msg:
	default:
		delete(r.clients, c)
		close(c.send)
	}
}

func (r *Room) sendError(c *Client, text string) {
	r.sendTo(c, ErrorMessage{Type: "error", Message: text})
}

func (r *Room) rosterEntries() []RosterEntry {
	entries := make([]RosterEntry, 0, len(r.roster))
	for _, p := range r.roster {
		entries = append(entries, RosterEntry{PlayerID: p.ID, Name: p.Name, Age: p.Age})
	}
	return entries
}

func (r *Room) rosterIndex(playerID string) int {
	for i, p := range r.roster {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) handleRegister(c *Client) {
	r.touch()
	r.clients[c] = true

	// First connection owns the room: it is the shared screen everyone
	// else watches, and the only one allowed to start the game.
	if r.coordinatorID == "" {
		r.coordinatorID = c.playerID
		r.sendTo(c, GameCreatedMessage{
			Type:     "game-created",
			RoomCode: r.code,
			JoinURL:  "/quest/" + r.code,
		})
	}

	// Catch the client up on where the room is.
	info := r.coord.GameInfo()
	r.sendTo(c, flow.StateUpdate{
		Type:              flow.MsgGameStateUpdate,
		State:             info.State,
		Round:             info.Round,
		Section:           info.Section,
		CompletedSections: info.CompletedSections,
	})

	// A phone reconnecting within the grace window picks its seat back up.
	if i := r.rosterIndex(c.playerID); i >= 0 {
		p := r.roster[i]
		r.sendTo(c, JoinedGameMessage{
			Type:     "joined-game",
			PlayerID: p.ID,
			Name:     p.Name,
			Age:      p.Age,
			Players:  r.rosterEntries(),
		})
	}
}

func (r *Room) handleUnregister(c *Client) {
	r.touch()

	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}

	// The screen leaving ends the session for everyone.
	if c.playerID == r.coordinatorID {
		r.log.Info().Msg("coordinator left, ending room")
		r.broadcast(GameEndedMessage{Type: "game-ended", Message: "The host has ended the game."})
		r.close()
		return
	}

	// Players get a grace window to reconnect before their seat is freed.
	if r.rosterIndex(c.playerID) >= 0 {
		playerID := c.playerID
		r.sched.After(r.cfg.playerTimeout, func() { r.removeIfAbsent(playerID) })
	}
}

// removeIfAbsent drops a player whose grace window expired without a
// reconnect, and lets the coordinator re-check the round.
func (r *Room) removeIfAbsent(playerID string) {
	for client := range r.clients {
		if client.playerID == playerID {
			return
		}
	}

	i := r.rosterIndex(playerID)
	if i < 0 {
		return
	}
	name := r.roster[i].Name
	r.roster = append(r.roster[:i], r.roster[i+1:]...)
	r.coord.RemovePlayer(playerID)

	r.log.Info().Str("player", name).Msg("player removed after disconnect")
	r.broadcast(PlayerLeftMessage{
		Type:     "player-left",
		PlayerID: playerID,
		Players:  r.rosterEntries(),
	})
}

func (r *Room) handleMessage(m inboundMessage) {
	r.touch()
	c := m.client

	switch m.msg.Type {
	case "create-game":
		// The room already exists by the time a socket is open; answer with
		// its coordinates so explicit creators get the same reply.
		r.sendTo(c, GameCreatedMessage{
			Type:     "game-created",
			RoomCode: r.code,
			JoinURL:  "/quest/" + r.code,
		})

	case "join-game":
		r.handleJoin(c, m.msg)

	case "start-game":
		r.handleStart(c)

	case "submit-answer":
		if _, err := r.coord.RecordSubmission(c.playerID, m.msg.Answer, m.msg.TimeSpentMs); err != nil {
			r.sendError(c, err.Error())
		}

	case "snake-direction":
		if err := r.coord.HandleSnakeDirection(c.playerID, m.msg.Direction); err != nil {
			r.sendError(c, err.Error())
		}

	case "connect4-move":
		if m.msg.Column == nil {
			r.sendError(c, "missing column")
			return
		}
		if err := r.coord.HandleConnect4Move(c.playerID, *m.msg.Column); err != nil {
			r.sendError(c, err.Error())
		}

	case "memory-move":
		if err := r.coord.HandleMemoryMove(c.playerID, m.msg.Direction); err != nil {
			r.sendError(c, err.Error())
		}

	case "memory-select":
		if err := r.coord.HandleMemorySelect(c.playerID); err != nil {
			r.sendError(c, err.Error())
		}

	case "play-again":
		r.handlePlayAgain(c)

	default:
		// ignore unknown types
	}
}

func (r *Room) handleJoin(c *Client, msg clientMessage) {
	if msg.Name == "" || msg.Age <= 0 || c.playerID == "" {
		r.sendError(c, "a name and age are required to join")
		return
	}
	if c.playerID == r.coordinatorID {
		r.sendError(c, "the host screen cannot join as a player")
		return
	}
	if r.coord.State() != flow.StateLobby {
		r.sendError(c, "the game is already in progress")
		return
	}

	existing := r.rosterIndex(c.playerID)

	if existing < 0 && len(r.roster) >= r.cfg.maxPlayers {
		r.sendError(c, "the room is full")
		return
	}

	for _, p := range r.roster {
		if p.ID != c.playerID && p.Name == msg.Name {
			r.sendError(c, "that name is already taken, please choose another")
			return
		}
	}

	age := msg.Age
	if age < minPlayerAge {
		age = minPlayerAge
	} else if age > maxPlayerAge {
		age = maxPlayerAge
	}

	player := flow.Player{ID: c.playerID, Name: msg.Name, Age: age}
	if existing >= 0 {
		r.roster[existing] = player
	} else {
		r.roster = append(r.roster, player)
		r.log.Info().Str("player", msg.Name).Int("age", age).Msg("player joined")
	}

	r.sendTo(c, JoinedGameMessage{
		Type:     "joined-game",
		PlayerID: player.ID,
		Name:     player.Name,
		Age:      player.Age,
		Players:  r.rosterEntries(),
	})
	r.broadcast(PlayerJoinedMessage{
		Type:    "player-joined",
		Player:  RosterEntry{PlayerID: player.ID, Name: player.Name, Age: player.Age},
		Players: r.rosterEntries(),
	})
}

func (r *Room) handleStart(c *Client) {
	if c.playerID != r.coordinatorID {
		r.sendError(c, "only the host can start the game")
		return
	}
	if len(r.roster) == 0 {
		r.sendError(c, "at least one player must join first")
		return
	}

	r.broadcast(GameStartedMessage{Type: "game-started", Players: r.rosterEntries()})
	if err := r.coord.Start(r.roster); err != nil {
		r.sendError(c, err.Error())
	}
}

func (r *Room) handlePlayAgain(c *Client) {
	if c.playerID != r.coordinatorID {
		r.sendError(c, "only the host can restart the game")
		return
	}
	if r.coord.State() != flow.StateVictory {
		r.sendError(c, "the game is still running")
		return
	}

	// Reset broadcasts the LOBBY state itself; the roster stays seated for
	// the next run.
	r.coord.Reset()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "questparty_id"

// Ages outside this range are clamped rather than rejected; question tiering
// only needs a plausible value.
const (
	minPlayerAge = 4
	maxPlayerAge = 99
)

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

func (c *Client) readPump(r *Room) {
	defer func() {
		select {
		case r.unreg <- c:
		case <-r.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case r.inbound <- inboundMessage{client: c, msg: msg}:
		case <-r.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
