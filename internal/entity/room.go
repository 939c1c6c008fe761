package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type RoomStatus string

const (
	StatusWaiting  RoomStatus = "awaiting-opponent"
	StatusOngoing  RoomStatus = "in-progress"
	StatusFinished RoomStatus = "finished"
)

// DrawOutcome is reported instead of a winner handle when the board fills up.
const DrawOutcome = "draw"

const (
	ReasonLine      = "line"
	ReasonBoardFull = "board-full"
	ReasonForfeit   = "forfeit"
)

// MoveResult tells the caller which terminal branch, if any, a move reached.
type MoveResult int

const (
	MoveContinues MoveResult = iota
	MoveWins
	MoveDraws
)

// Participant is one seat of a room.
type Participant struct {
	ConnectionID string `json:"-"`
	ID           string `json:"id"`
	Handle       string `json:"handle"`
	Mark         Mark   `json:"mark"`
}

// Room is the state of a single match. It is not safe for concurrent use;
// the owner serializes access.
type Room struct {
	ID           string
	Participants []Participant
	Board        Board
	Turn         Mark
	Status       RoomStatus
	Winner       Mark
	FinishReason string
	CreatedAt    time.Time
}

// NewRoom - opens a room with the owner seated as the first mark.
func NewRoom(id string, owner Participant, createdAt time.Time) *Room {
	owner.Mark = MarkFirst

	return &Room{
		ID:           id,
		Participants: []Participant{owner},
		Turn:         MarkFirst,
		Status:       StatusWaiting,
		CreatedAt:    createdAt,
	}
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Room) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Room) ConfirmOngoingState() error {
	switch that.Status {
	case StatusOngoing:
		return nil
	case StatusWaiting:
		return apperror.ErrGameIsNotStarted
	case StatusFinished:
		return apperror.ErrGameFinished
	default:
		return fmt.Errorf("unknown room status: %s", that.Status)
	}
}

// CanSeat - reports why joiner could not take the free seat, if it could not.
// The second seat must belong to another connection and another identity.
func (that *Room) CanSeat(joiner Participant) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if !that.IsWaiting() || len(that.Participants) != 1 {
		return fmt.Errorf("%w: room %s", apperror.ErrRoomFull, that.ID)
	}

	owner := that.Participants[0]

	if owner.ConnectionID == joiner.ConnectionID {
		return apperror.ErrAlreadySeated
	}

	if owner.ID == joiner.ID {
		return fmt.Errorf("%w: %s", apperror.ErrSelfMatch, joiner.Handle)
	}

	return nil
}

// Seat - seats the joiner as the second mark and starts the match.
func (that *Room) Seat(joiner Participant) error {
	if err := that.CanSeat(joiner); err != nil {
		return err
	}

	joiner.Mark = MarkSecond
	that.Participants = append(that.Participants, joiner)
	that.Status = StatusOngoing

	return nil
}

// Participant returns the seat held by connID.
func (that *Room) Participant(connID string) (Participant, bool) {
	for _, p := range that.Participants {
		if p.ConnectionID == connID {
			return p, true
		}
	}
	return Participant{}, false
}

// Opponent returns the seat not held by connID.
func (that *Room) Opponent(connID string) (Participant, bool) {
	if _, ok := that.Participant(connID); !ok {
		return Participant{}, false
	}

	for _, p := range that.Participants {
		if p.ConnectionID != connID {
			return p, true
		}
	}
	return Participant{}, false
}

// Connections lists the connection ids of every seat.
func (that *Room) Connections() []string {
	ids := make([]string, 0, len(that.Participants))
	for _, p := range that.Participants {
		ids = append(ids, p.ConnectionID)
	}
	return ids
}

// MakeTurn - validates and applies a move by connID on cell. A rejected move leaves
// the room untouched.
func (that *Room) MakeTurn(connID string, cell int) (MoveResult, error) {
	if err := that.ConfirmOngoingState(); err != nil {
		return MoveContinues, err
	}

	player, ok := that.Participant(connID)
	if !ok {
		return MoveContinues, apperror.ErrNotParticipant
	}

	if cell < 0 || cell >= BoardSize {
		return MoveContinues, fmt.Errorf("%w: cell %d", apperror.ErrInvalidCell, cell)
	}

	if that.Board[cell] != MarkEmpty {
		return MoveContinues, apperror.ErrCellOccupied
	}

	if player.Mark != that.Turn {
		return MoveContinues, apperror.ErrNotYourTurn
	}

	that.Board[cell] = player.Mark

	if winner := CheckWinner(that.Board); winner != MarkEmpty {
		that.finish(winner, ReasonLine)
		return MoveWins, nil
	}

	if IsFull(that.Board) {
		that.finish(MarkEmpty, ReasonBoardFull)
		return MoveDraws, nil
	}

	that.Turn = that.Turn.Opponent()

	return MoveContinues, nil
}

// Forfeit - ends an ongoing match in favour of the seat connID leaves behind.
func (that *Room) Forfeit(connID string) (Participant, error) {
	if err := that.ConfirmOngoingState(); err != nil {
		return Participant{}, err
	}

	winner, ok := that.Opponent(connID)
	if !ok {
		return Participant{}, apperror.ErrNotParticipant
	}

	that.finish(winner.Mark, ReasonForfeit)

	return winner, nil
}

func (that *Room) finish(winner Mark, reason string) {
	that.Status = StatusFinished
	that.Winner = winner
	that.FinishReason = reason
	that.Turn = MarkEmpty
}

// WinnerParticipant returns the winning seat of a finished room.
func (that *Room) WinnerParticipant() (Participant, bool) {
	if !that.IsFinished() || that.Winner == MarkEmpty {
		return Participant{}, false
	}

	for _, p := range that.Participants {
		if p.Mark == that.Winner {
			return p, true
		}
	}
	return Participant{}, false
}

// Outcome is the winner's handle, or DrawOutcome.
func (that *Room) Outcome() string {
	if winner, ok := that.WinnerParticipant(); ok {
		return winner.Handle
	}
	return DrawOutcome
}

// Clone returns a copy that shares no mutable state with the room.
func (that *Room) Clone() *Room {
	clone := *that
	clone.Participants = append([]Participant(nil), that.Participants...)
	return &clone
}

// Record - builds the immutable history entry for a finished room.
func (that *Room) Record(finishedAt time.Time) *MatchRecord {
	record := &MatchRecord{
		RoomID:     that.ID,
		Outcome:    that.Outcome(),
		Reason:     that.FinishReason,
		Board:      that.Board,
		FinishedAt: finishedAt.UTC(),
	}

	for _, p := range that.Participants {
		record.Participants = append(record.Participants, MatchParticipant{ID: p.ID, Handle: p.Handle, Mark: p.Mark})
	}

	if winner, ok := that.WinnerParticipant(); ok {
		record.WinnerID = winner.ID
	}

	return record
}
