// Connect-4 board logic: pure transition functions over a fixed 6×7 grid,
// plus a thin Match wrapper holding the running game for a room.
package connect4

import "errors"

const (
	Rows = 6
	Cols = 7
)

var (
	ErrInvalidColumn = errors.New("connect4: column out of range")
	ErrColumnFull    = errors.New("connect4: column is full")
	ErrNotYourTurn   = errors.New("connect4: not your turn")
	ErrGameOver      = errors.New("connect4: game is over")
)

// Team is a board cell owner. The zero value means the cell is empty.
type Team string

const (
	TeamNone Team = ""
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

// Board is row-major with row 0 at the top; pieces stack toward Rows-1.
type Board [Rows][Cols]Team

// CellRef addresses one board cell, used to highlight winning runs.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// PlacePiece drops a piece into col and returns the new board plus the row it
// landed in. Cells only ever transition empty→team.
func PlacePiece(b Board, col int, team Team) (Board, int, error) {
	if col < 0 || col >= Cols {
		return b, -1, ErrInvalidColumn
	}
	for row := Rows - 1; row >= 0; row-- {
		if b[row][col] == TeamNone {
			b[row][col] = team
			return b, row, nil
		}
	}
	return b, -1, ErrColumnFull
}

// CheckWin looks outward from the last-placed cell along the four axes and
// returns the winning team plus the implicated cells for a run of 4 or more.
func CheckWin(b Board, row, col int) (Team, []CellRef) {
	team := b[row][col]
	if team == TeamNone {
		return TeamNone, nil
	}

	axes := [4][2]int{{0, 1}, {1, 0}, {1, 1}, {1, -1}}
	for _, axis := range axes {
		cells := []CellRef{{Row: row, Col: col}}
		for _, sign := range []int{1, -1} {
			dr, dc := axis[0]*sign, axis[1]*sign
			r, c := row+dr, col+dc
			for r >= 0 && r < Rows && c >= 0 && c < Cols && b[r][c] == team {
				cells = append(cells, CellRef{Row: r, Col: c})
				r += dr
				c += dc
			}
		}
		if len(cells) >= 4 {
			return team, cells
		}
	}
	return TeamNone, nil
}

// IsBoardFull checks only the top row; columns fill bottom-up so that is
// sufficient.
func IsBoardFull(b Board) bool {
	for col := 0; col < Cols; col++ {
		if b[0][col] == TeamNone {
			return false
		}
	}
	return true
}

// ValidColumns lists columns that can still accept a piece.
func ValidColumns(b Board) []int {
	cols := make([]int, 0, Cols)
	for col := 0; col < Cols; col++ {
		if b[0][col] == TeamNone {
			cols = append(cols, col)
		}
	}
	return cols
}

// Teams holds the two rosters, in join order.
type Teams struct {
	Red  []string `json:"red"`
	Blue []string `json:"blue"`
}

// AssignTeams alternates players between red and blue in roster order.
func AssignTeams(playerIDs []string) Teams {
	var t Teams
	for i, id := range playerIDs {
		if i%2 == 0 {
			t.Red = append(t.Red, id)
		} else {
			t.Blue = append(t.Blue, id)
		}
	}
	return t
}

// NextPlayer alternates team by move parity and round-robins within each team
// by floor(moveCount/2) mod teamSize, so every member gets a turn before any
// repeats regardless of roster imbalance.
func NextPlayer(teams Teams, moveCount int) (string, Team) {
	roster := teams.Red
	team := TeamRed
	if moveCount%2 == 1 {
		roster = teams.Blue
		team = TeamBlue
	}
	if len(roster) == 0 {
		return "", team
	}
	return roster[(moveCount/2)%len(roster)], team
}
