package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/questparty/internal/flow"
)

// fakeClient builds a client with no socket; handlers only ever touch the
// send channel, the conn is owned by the pumps.
func fakeClient(playerID string) *Client {
	return &Client{
		send:     make(chan any, 64),
		playerID: playerID,
	}
}

func startTestRoom(t *testing.T, cfg *Config) *Room {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	room := newRoom(cfg, "TESTQP", nil)
	t.Cleanup(room.close)
	return room
}

func recv(t *testing.T, c *Client) any {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a message")
		return nil
	}
}

// recvType drains until a message of the wanted type arrives.
func recvType(t *testing.T, c *Client, wantType string) any {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := recv(t, c)
		if messageType(msg) == wantType {
			return msg
		}
	}
	t.Fatalf("never received %q", wantType)
	return nil
}

func messageType(msg any) string {
	switch m := msg.(type) {
	case GameCreatedMessage:
		return m.Type
	case JoinedGameMessage:
		return m.Type
	case PlayerJoinedMessage:
		return m.Type
	case PlayerLeftMessage:
		return m.Type
	case GameStartedMessage:
		return m.Type
	case GameEndedMessage:
		return m.Type
	case ErrorMessage:
		return m.Type
	case flow.StateUpdate:
		return m.Type
	default:
		return ""
	}
}

func sendMsg(t *testing.T, room *Room, c *Client, msg clientMessage) {
	t.Helper()
	select {
	case room.inbound <- inboundMessage{client: c, msg: msg}:
	case <-time.After(2 * time.Second):
		t.Fatal("room stopped accepting messages")
	}
}

func registerClient(t *testing.T, room *Room, c *Client) {
	t.Helper()
	select {
	case room.register <- c:
	case <-time.After(2 * time.Second):
		t.Fatal("room stopped accepting registrations")
	}
}

func TestFirstConnectionBecomesCoordinator(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	registerClient(t, room, host)

	created, ok := recv(t, host).(GameCreatedMessage)
	require.True(t, ok, "first message to the host must be game-created")
	assert.Equal(t, "TESTQP", created.RoomCode)
	assert.Equal(t, "/quest/TESTQP", created.JoinURL)

	state, ok := recv(t, host).(flow.StateUpdate)
	require.True(t, ok, "host is caught up on room state")
	assert.Equal(t, flow.StateLobby, state.State)

	// Later connections do not get the game-created message.
	phone := fakeClient("phone-id")
	registerClient(t, room, phone)
	_, isState := recv(t, phone).(flow.StateUpdate)
	assert.True(t, isState)
}

func TestJoinAndRosterBroadcasts(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	alice := fakeClient("alice-id")
	bob := fakeClient("bob-id")
	registerClient(t, room, host)
	registerClient(t, room, alice)
	registerClient(t, room, bob)

	sendMsg(t, room, alice, clientMessage{Type: "join-game", Name: "Alice", Age: 9})

	joined := recvType(t, alice, "joined-game").(JoinedGameMessage)
	assert.Equal(t, "alice-id", joined.PlayerID)
	assert.Equal(t, "Alice", joined.Name)
	require.Len(t, joined.Players, 1)

	announced := recvType(t, host, "player-joined").(PlayerJoinedMessage)
	assert.Equal(t, "Alice", announced.Player.Name)

	// A second player with the same name is bounced, alone.
	sendMsg(t, room, bob, clientMessage{Type: "join-game", Name: "Alice", Age: 11})
	errMsg := recvType(t, bob, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "name is already taken")

	sendMsg(t, room, bob, clientMessage{Type: "join-game", Name: "Bob", Age: 11})
	joinedBob := recvType(t, bob, "joined-game").(JoinedGameMessage)
	assert.Len(t, joinedBob.Players, 2)
}

func TestJoinValidation(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	registerClient(t, room, host)

	// The host screen is not a player.
	sendMsg(t, room, host, clientMessage{Type: "join-game", Name: "Hosty", Age: 30})
	errMsg := recvType(t, host, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "host screen")

	// Missing age.
	phone := fakeClient("phone-id")
	registerClient(t, room, phone)
	sendMsg(t, room, phone, clientMessage{Type: "join-game", Name: "Kid"})
	errMsg = recvType(t, phone, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "name and age")

	// Out-of-range ages are clamped, not rejected.
	sendMsg(t, room, phone, clientMessage{Type: "join-game", Name: "Granny", Age: 150})
	joined := recvType(t, phone, "joined-game").(JoinedGameMessage)
	require.Len(t, joined.Players, 1)
	assert.Equal(t, maxPlayerAge, joined.Players[0].Age)

	toddler := fakeClient("toddler-id")
	registerClient(t, room, toddler)
	sendMsg(t, room, toddler, clientMessage{Type: "join-game", Name: "Tiny", Age: 2})
	joined = recvType(t, toddler, "joined-game").(JoinedGameMessage)
	require.Len(t, joined.Players, 2)
	for _, p := range joined.Players {
		if p.PlayerID == "toddler-id" {
			assert.Equal(t, minPlayerAge, p.Age)
		}
	}
}

func TestRoomFull(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.maxPlayers = 1
	room := startTestRoom(t, cfg)

	host := fakeClient("host-id")
	first := fakeClient("p1")
	second := fakeClient("p2")
	registerClient(t, room, host)
	registerClient(t, room, first)
	registerClient(t, room, second)

	sendMsg(t, room, first, clientMessage{Type: "join-game", Name: "One", Age: 8})
	recvType(t, first, "joined-game")

	sendMsg(t, room, second, clientMessage{Type: "join-game", Name: "Two", Age: 8})
	errMsg := recvType(t, second, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "full")
}

func TestOnlyHostStartsAndJoinsLockAfterStart(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	alice := fakeClient("alice-id")
	late := fakeClient("late-id")
	registerClient(t, room, host)
	registerClient(t, room, alice)
	registerClient(t, room, late)

	sendMsg(t, room, alice, clientMessage{Type: "join-game", Name: "Alice", Age: 9})
	recvType(t, alice, "joined-game")

	// A player cannot start the game.
	sendMsg(t, room, alice, clientMessage{Type: "start-game"})
	errMsg := recvType(t, alice, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "only the host")

	sendMsg(t, room, host, clientMessage{Type: "start-game"})
	recvType(t, host, "game-started")
	started := recvType(t, host, "game-state-update").(flow.StateUpdate)
	assert.Equal(t, flow.StateIntroduction, started.State)

	// The door shuts once the game is running.
	sendMsg(t, room, late, clientMessage{Type: "join-game", Name: "Late", Age: 10})
	errMsg = recvType(t, late, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "already in progress")
}

func TestStartNeedsPlayers(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	registerClient(t, room, host)

	sendMsg(t, room, host, clientMessage{Type: "start-game"})
	errMsg := recvType(t, host, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "at least one player")
}

func TestCoordinatorLeaveEndsRoom(t *testing.T) {
	t.Parallel()

	closed := make(chan struct{})
	cfg := testConfig()
	room := newRoom(cfg, "TESTQP", func() { close(closed) })

	host := fakeClient("host-id")
	alice := fakeClient("alice-id")
	registerClient(t, room, host)
	registerClient(t, room, alice)

	select {
	case room.unreg <- host:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked")
	}

	ended := recvType(t, alice, "game-ended").(GameEndedMessage)
	assert.Contains(t, ended.Message, "host has ended")

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("room never reported itself closed")
	}
}

func TestDisconnectedPlayerRemovedAfterGrace(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	alice := fakeClient("alice-id")
	registerClient(t, room, host)
	registerClient(t, room, alice)

	sendMsg(t, room, alice, clientMessage{Type: "join-game", Name: "Alice", Age: 9})
	recvType(t, alice, "joined-game")

	select {
	case room.unreg <- alice:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked")
	}

	// Grace window (50ms in the test config) expires with no reconnect.
	left := recvType(t, host, "player-left").(PlayerLeftMessage)
	assert.Equal(t, "alice-id", left.PlayerID)
	assert.Empty(t, left.Players)
}

func TestReconnectWithinGraceKeepsSeat(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.playerTimeout = 500 * time.Millisecond
	room := startTestRoom(t, cfg)
	host := fakeClient("host-id")
	alice := fakeClient("alice-id")
	registerClient(t, room, host)
	registerClient(t, room, alice)

	sendMsg(t, room, alice, clientMessage{Type: "join-game", Name: "Alice", Age: 9})
	recvType(t, alice, "joined-game")

	select {
	case room.unreg <- alice:
	case <-time.After(2 * time.Second):
		t.Fatal("unregister blocked")
	}

	// Same cookie comes straight back.
	alice2 := fakeClient("alice-id")
	registerClient(t, room, alice2)
	rejoined := recvType(t, alice2, "joined-game").(JoinedGameMessage)
	assert.Equal(t, "Alice", rejoined.Name)

	// The grace timer fires but finds the player connected again; the host
	// must not see a player-left.
	time.Sleep(800 * time.Millisecond)
	for {
		select {
		case msg := <-host.send:
			require.NotEqual(t, "player-left", messageType(msg))
		default:
			return
		}
	}
}

func TestSubmitOutsideChallengeReturnsError(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	alice := fakeClient("alice-id")
	registerClient(t, room, host)
	registerClient(t, room, alice)

	sendMsg(t, room, alice, clientMessage{Type: "join-game", Name: "Alice", Age: 9})
	recvType(t, alice, "joined-game")

	sendMsg(t, room, alice, clientMessage{Type: "submit-answer", Answer: float64(4), TimeSpentMs: 500})
	errMsg := recvType(t, alice, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "no challenge")
}

func TestConnect4MoveNeedsColumn(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	registerClient(t, room, host)

	sendMsg(t, room, host, clientMessage{Type: "connect4-move"})
	errMsg := recvType(t, host, "error").(ErrorMessage)
	assert.Contains(t, errMsg.Message, "missing column")
}

func TestDroppedClientMessagesIgnored(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	registerClient(t, room, host)
	recvType(t, host, "game-created")

	// An unbuffered send channel that nobody drains: the catch-up state
	// message at registration overflows it, so the room drops the client and
	// closes the channel immediately.
	stuck := &Client{send: make(chan any), playerID: "stuck-id"}
	registerClient(t, room, stuck)

	// Its read pump can still deliver messages after the drop; replying must
	// not panic the room goroutine.
	sendMsg(t, room, stuck, clientMessage{Type: "submit-answer", Answer: float64(4)})
	sendMsg(t, room, stuck, clientMessage{Type: "create-game"})

	// The room is still alive and serving everyone else.
	sendMsg(t, room, host, clientMessage{Type: "create-game"})
	created := recvType(t, host, "game-created").(GameCreatedMessage)
	assert.Equal(t, "TESTQP", created.RoomCode)
}

func TestCreateGameReplies(t *testing.T) {
	t.Parallel()

	room := startTestRoom(t, nil)
	host := fakeClient("host-id")
	registerClient(t, room, host)
	recvType(t, host, "game-created")

	sendMsg(t, room, host, clientMessage{Type: "create-game"})
	created := recvType(t, host, "game-created").(GameCreatedMessage)
	assert.Equal(t, "TESTQP", created.RoomCode)
}
