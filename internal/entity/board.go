package entity

// Mark is the symbol a participant plays as.
type Mark string

const (
	MarkEmpty  Mark = ""
	MarkFirst  Mark = "X"
	MarkSecond Mark = "O"
)

// BoardSize is the number of cells on the board.
const BoardSize = 9

// Board is the 3x3 grid, indexed row by row from the top-left corner.
type Board [BoardSize]Mark

// WinCombos lists the 8 triples that win the game: rows, columns and diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// CheckWinner - returns the mark that owns a full triple, or MarkEmpty.
func CheckWinner(board Board) Mark {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != MarkEmpty && a == b && b == c {
			return a
		}
	}

	return MarkEmpty
}

// IsFull - reports whether no empty cell remains.
func IsFull(board Board) bool {
	for _, cell := range board {
		if cell == MarkEmpty {
			return false
		}
	}

	return true
}

// Opponent returns the other playing mark.
func (that Mark) Opponent() Mark {
	if that == MarkFirst {
		return MarkSecond
	}
	return MarkFirst
}
