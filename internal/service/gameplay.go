package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type settler interface {
	Settle(ctx context.Context, room *entity.Room)
}

// Gameplay drives rooms that are in progress.
type Gameplay struct {
	logger     *slog.Logger
	directory  *Directory
	fanout     *Fanout
	settlement settler
}

func NewGameplay(logger *slog.Logger, directory *Directory, fanout *Fanout, settlement settler) *Gameplay {
	return &Gameplay{
		logger:     logger.With("component", "gameplay"),
		directory:  directory,
		fanout:     fanout,
		settlement: settlement,
	}
}

// ApplyMove - validates and applies a move. A rejected move is reported to connID
// only and leaves the room unchanged.
func (that *Gameplay) ApplyMove(ctx context.Context, roomID, connID string, position int) error {
	log := that.logger.With("method", "ApplyMove")

	err := that.directory.withRoom(roomID, func(slot *roomSlot) error {
		result, err := slot.room.MakeTurn(connID, position)
		if err != nil {
			return err
		}

		if result == entity.MoveContinues {
			that.fanout.MoveApplied(slot.room)
			return nil
		}

		that.conclude(ctx, slot)

		return nil
	})
	if err != nil {
		log.Debug("move rejected", "room", roomID, "connection", connID, "position", position, "error", err)
		that.fanout.MoveRejected(connID, apperror.RejectReason(err))

		return fmt.Errorf("failed to apply move: %w", err)
	}

	return nil
}

// Forfeit - releases the room connID sits in. A waiting room is dropped without
// settlement; a match in progress is awarded to the remaining seat.
func (that *Gameplay) Forfeit(ctx context.Context, connID string) (string, bool) {
	log := that.logger.With("method", "Forfeit")

	roomID, ok := that.directory.RoomOf(connID)
	if !ok {
		return "", false
	}

	released := false

	err := that.directory.withRoom(roomID, func(slot *roomSlot) error {
		room := slot.room

		switch {
		case room.IsWaiting():
			released = that.directory.dispose(slot)
			log.Info("waiting room abandoned", "room", roomID)
		case room.IsOngoing():
			winner, err := room.Forfeit(connID)
			if err != nil {
				return err
			}

			log.Info("match forfeited", "room", roomID, "winner", winner.Handle)
			that.conclude(ctx, slot)
			released = true
		}

		return nil
	})
	if err != nil {
		log.Debug("nothing to forfeit", "room", roomID, "connection", connID, "error", err)
		return roomID, false
	}

	return roomID, released
}

// conclude announces, settles and disposes a room that has just finished.
// Callers hold the room lock, which makes this run once per room.
func (that *Gameplay) conclude(ctx context.Context, slot *roomSlot) {
	room := slot.room

	that.fanout.MatchEnd(room)
	that.settlement.Settle(ctx, room)
	that.directory.dispose(slot)

	that.logger.Info("match finished", "room", room.ID, "outcome", room.Outcome(), "reason", room.FinishReason)
}
