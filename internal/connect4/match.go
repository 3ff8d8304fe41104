package connect4

// Match is the running state of one connect-4 round. It is owned by a single
// room goroutine; no locking here.
type Match struct {
	Board        Board     `json:"board"`
	Teams        Teams     `json:"teams"`
	MoveCount    int       `json:"moveCount"`
	Winner       Team      `json:"winner,omitempty"`
	WinningCells []CellRef `json:"winningCells,omitempty"`
	Draw         bool      `json:"isDraw"`
}

// NewMatch splits the given players into two teams and starts with red.
func NewMatch(playerIDs []string) *Match {
	return &Match{Teams: AssignTeams(playerIDs)}
}

// Over reports whether the match has concluded.
func (m *Match) Over() bool {
	return m.Winner != TeamNone || m.Draw
}

// CurrentPlayer returns whose move it is, or "" once the match is over.
func (m *Match) CurrentPlayer() (string, Team) {
	if m.Over() {
		return "", TeamNone
	}
	return NextPlayer(m.Teams, m.MoveCount)
}

// Play validates and applies a move by playerID into col. Moves out of turn,
// into full or invalid columns, or after game end are rejected with an error
// and leave the match unchanged.
func (m *Match) Play(playerID string, col int) error {
	if m.Over() {
		return ErrGameOver
	}
	current, team := m.CurrentPlayer()
	if current != playerID {
		return ErrNotYourTurn
	}

	board, row, err := PlacePiece(m.Board, col, team)
	if err != nil {
		return err
	}
	m.Board = board
	m.MoveCount++

	if winner, cells := CheckWin(m.Board, row, col); winner != TeamNone {
		m.Winner = winner
		m.WinningCells = cells
		return nil
	}
	if IsBoardFull(m.Board) {
		m.Draw = true
	}
	return nil
}

// RemovePlayer drops a disconnected player from their team roster. The team
// keeps playing with whoever remains.
func (m *Match) RemovePlayer(playerID string) {
	m.Teams.Red = withoutID(m.Teams.Red, playerID)
	m.Teams.Blue = withoutID(m.Teams.Blue, playerID)
}

func withoutID(roster []string, id string) []string {
	for i, member := range roster {
		if member == id {
			return append(roster[:i], roster[i+1:]...)
		}
	}
	return roster
}

// MatchState is a by-value copy of the match, safe to queue for delivery on
// other goroutines while the live match keeps mutating.
type MatchState struct {
	Board        Board     `json:"board"`
	Teams        Teams     `json:"teams"`
	MoveCount    int       `json:"moveCount"`
	Winner       Team      `json:"winner,omitempty"`
	WinningCells []CellRef `json:"winningCells,omitempty"`
	Draw         bool      `json:"isDraw"`
}

// Snapshot copies the current match state, including the team rosters and
// winning cells, so later moves cannot show through.
func (m *Match) Snapshot() MatchState {
	return MatchState{
		Board: m.Board,
		Teams: Teams{
			Red:  append([]string(nil), m.Teams.Red...),
			Blue: append([]string(nil), m.Teams.Blue...),
		},
		MoveCount:    m.MoveCount,
		Winner:       m.Winner,
		WinningCells: append([]CellRef(nil), m.WinningCells...),
		Draw:         m.Draw,
	}
}

// WinnerRoster returns the player ids on the winning team, or nil on a draw
// or unfinished match.
func (m *Match) WinnerRoster() []string {
	switch m.Winner {
	case TeamRed:
		return m.Teams.Red
	case TeamBlue:
		return m.Teams.Blue
	default:
		return nil
	}
}
