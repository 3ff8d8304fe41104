package main

import (
	"crypto/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// roomCodeLength keeps codes short enough to read off a screen and type on a
// phone.
const roomCodeLength = 6

// roomCodeLetters leaves out 0/O/1/I/L so codes survive being read aloud.
const roomCodeLetters = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// RoomManager holds every live room keyed by code, so each /quest/$code is
// its own isolated session.
type RoomManager struct {
	mu          sync.Mutex
	cfg         *Config
	rooms       map[string]*Room
	idleTimeout time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

func newRoomManager(cfg *Config, idleTimeout time.Duration) *RoomManager {
	rm := &RoomManager{
		cfg:         cfg,
		rooms:       make(map[string]*Room),
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// randomRoomCode draws code characters by rejection sampling so every letter
// is equally likely.
func randomRoomCode(n int) string {
	const max = byte(255 - (256 % len(roomCodeLetters)))

	out := make([]byte, 0, n)
	buf := make([]byte, n*2)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("crypto/rand failure: " + err.Error())
		}

		for _, b := range buf {
			if b <= max {
				out = append(out, roomCodeLetters[int(b)%len(roomCodeLetters)])
				if len(out) == n {
					return string(out)
				}
			}
		}
	}

	return string(out)
}

// newRoomCode generates a fresh code, retrying on the (unlikely) collision
// with a live room.
func (rm *RoomManager) newRoomCode() string {
	for {
		code := randomRoomCode(roomCodeLength)

		rm.mu.Lock()
		_, exists := rm.rooms[code]
		rm.mu.Unlock()

		if !exists {
			return code
		}
	}
}

// get returns the room for code, creating it on first use.
func (rm *RoomManager) get(code string) *Room {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if room, ok := rm.rooms[code]; ok {
		return room
	}

	room := newRoom(rm.cfg, code, func() { rm.remove(code) })
	rm.rooms[code] = room
	return room
}

func (rm *RoomManager) remove(code string) {
	rm.mu.Lock()
	delete(rm.rooms, code)
	rm.mu.Unlock()
}

// closeAll tears down every live room, used on server shutdown.
func (rm *RoomManager) closeAll() {
	rm.stopOnce.Do(func() { close(rm.stop) })

	rm.mu.Lock()
	rooms := make([]*Room, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		rooms = append(rooms, room)
	}
	rm.mu.Unlock()

	for _, room := range rooms {
		room.close()
	}
}

// reaperLoop periodically closes rooms that have been idle longer than
// idleTimeout.
func (rm *RoomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-rm.stop:
			return
		case <-ticker.C:
		}

		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		var idle []*Room
		for _, room := range rm.rooms {
			if room.idleSince().Before(cutoff) {
				idle = append(idle, room)
			}
		}
		rm.mu.Unlock()

		for _, room := range idle {
			rm.cfg.log.Info().Str("room", room.code).Msg("reaping idle room")
			room.close()
		}
	}
}

// serveRoomWS upgrades the connection and ties the client to its room's hub.
func serveRoomWS(cfg *Config, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		code := normalizeRoomCode(ps.ByName("room"))
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		room := rm.get(code)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			cfg.log.Error().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 32),
			playerID: playerID,
		}

		select {
		case room.register <- client:
		case <-room.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(room)
	}
}

func normalizeRoomCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// serveRoomQR renders a PNG QR code pointing phones at the room URL.
func serveRoomQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("room")
	if code == "" {
		http.Error(w, "missing room code", http.StatusBadRequest)
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /.../:room/qr; strip the trailing "/qr" to get the join URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

func serveRoomPage(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write([]byte(roomHTML))
	}
}

// redirectNewRoom handles GET /quest by generating a fresh room code and
// redirecting the screen to it.
func redirectNewRoom(cfg *Config, path string, rm *RoomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		code := rm.newRoomCode()
		cfg.log.Info().Str("room", code).Msg("created room")
		http.Redirect(w, r, path+"/"+code, http.StatusTemporaryRedirect)
	}
}

// registerQuestGame sets up routes so that:
//   - $path             → redirects to a new room
//   - $path/:room       → HTML client
//   - $path/:room/ws    → websocket for that room
//   - $path/:room/qr    → PNG QR code for that room's join URL
func registerQuestGame(cfg *Config, path string, mux *httprouter.Router) *RoomManager {
	rm := newRoomManager(cfg, cfg.sessionTimeout)

	mux.GET(cfg.prefix+path, redirectNewRoom(cfg, cfg.prefix+path, rm))

	mux.GET(cfg.prefix+path+"/:room", serveRoomPage(cfg))

	mux.GET(cfg.prefix+path+"/:room/ws", serveRoomWS(cfg, rm))

	mux.GET(cfg.prefix+path+"/:room/qr", serveRoomQR)

	return rm
}
