package apperror

import "errors"

var (
	ErrGameFinished     = errors.New("game is already finished")
	ErrGameIsNotStarted = errors.New("game is not started")
	ErrNotYourTurn      = errors.New("it's not your turn")
	ErrCellOccupied     = errors.New("cell is already occupied")
	ErrInvalidCell      = errors.New("invalid cell index")

	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomFull       = errors.New("room already has two players")
	ErrNotParticipant = errors.New("connection is not seated in this room")
	ErrAlreadySeated  = errors.New("connection is already seated in this room")
	ErrAlreadyInRoom  = errors.New("connection is already seated in another room")
	ErrSelfMatch      = errors.New("identity cannot play against itself")

	ErrNoSession          = errors.New("connection has no active session")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityConflict   = errors.New("identity handle already taken")
	ErrIdentityIDTaken    = errors.New("identity id already taken")
	ErrMatchNotFound      = errors.New("match record not found")
	ErrUnknownOutcome     = errors.New("unknown outcome kind")
	ErrUnknownStoreDriver = errors.New("unknown store driver")
)

// RejectReason maps a move validation error to the short reason sent to clients.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "room-not-found"
	case errors.Is(err, ErrGameIsNotStarted), errors.Is(err, ErrGameFinished):
		return "room-not-in-progress"
	case errors.Is(err, ErrNotParticipant):
		return "not-a-participant"
	case errors.Is(err, ErrInvalidCell):
		return "invalid-position"
	case errors.Is(err, ErrCellOccupied):
		return "cell-occupied"
	case errors.Is(err, ErrNotYourTurn):
		return "not-your-turn"
	default:
		return "invalid-move"
	}
}
