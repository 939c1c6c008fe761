package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// Matchmaker pairs connections into rooms. Pairing is opportunistic: the oldest
// waiting room that accepts the joiner wins.
type Matchmaker struct {
	logger    *slog.Logger
	registry  *Registry
	directory *Directory
	fanout    *Fanout
	now       func() time.Time
	newID     func() string
}

func NewMatchmaker(logger *slog.Logger, registry *Registry, directory *Directory, fanout *Fanout, now func() time.Time) *Matchmaker {
	return &Matchmaker{
		logger:    logger.With("component", "matchmaker"),
		registry:  registry,
		directory: directory,
		fanout:    fanout,
		now:       now,
		newID:     uuid.NewString,
	}
}

func participantOf(session entity.Session) entity.Participant {
	return entity.Participant{
		ConnectionID: session.ConnectionID,
		ID:           session.Identity.ID,
		Handle:       session.Identity.Handle,
	}
}

// OpenRoom - creates a waiting room owned by connID.
func (that *Matchmaker) OpenRoom(connID string) (string, error) {
	log := that.logger.With("method", "OpenRoom")

	session, ok := that.registry.Get(connID)
	if !ok {
		return "", apperror.ErrNoSession
	}

	room := entity.NewRoom(that.newID(), participantOf(session), that.now())

	slot, err := that.directory.add(room)
	if err != nil {
		return "", fmt.Errorf("failed to open room: %w", err)
	}
	defer slot.mu.Unlock()

	that.fanout.AwaitingOpponent(connID, room.ID)
	that.fanout.SearchingNotice(connID, session.Identity.Handle, room.ID)

	log.Info("room opened", "room", room.ID, "handle", session.Identity.Handle)

	return room.ID, nil
}

// CompleteRoom - seats connID in the free seat of roomID and starts the match.
// A waiting room owned by connID is dropped only once the new seat is taken.
func (that *Matchmaker) CompleteRoom(roomID, connID string) error {
	session, ok := that.registry.Get(connID)
	if !ok {
		return apperror.ErrNoSession
	}

	ownedID, err := that.holdOwnedRoom(connID, roomID)
	if err != nil {
		return err
	}

	err = that.seatJoiner(roomID, participantOf(session), ownedID)

	if ownedID != "" {
		that.releaseOwnedRoom(ownedID, roomID, err == nil)
	}

	return err
}

func (that *Matchmaker) seatJoiner(roomID string, joiner entity.Participant, ownedID string) error {
	log := that.logger.With("method", "CompleteRoom")

	return that.directory.withRoom(roomID, func(slot *roomSlot) error {
		room := slot.room

		if slot.withdrawing {
			return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
		}

		if err := room.CanSeat(joiner); err != nil {
			return err
		}

		if err := that.directory.seat(joiner.ConnectionID, roomID, ownedID); err != nil {
			return err
		}

		if err := room.Seat(joiner); err != nil {
			that.directory.unseat(joiner.ConnectionID, roomID, ownedID)
			return fmt.Errorf("failed to seat joiner: %w", err)
		}

		that.fanout.MatchStart(room)
		that.registry.AnnounceRoster()

		log.Info("match started", "room", roomID, "handle", joiner.Handle)

		return nil
	})
}

// holdOwnedRoom marks the waiting room connID owns as withdrawing and returns
// its id, or "" when connID owns none. Only one room lock is held at a time.
func (that *Matchmaker) holdOwnedRoom(connID, targetID string) (string, error) {
	currentID, ok := that.directory.RoomOf(connID)
	if !ok || currentID == targetID {
		return "", nil
	}

	err := that.directory.withRoom(currentID, func(slot *roomSlot) error {
		if !slot.room.IsWaiting() || slot.withdrawing || slot.room.Participants[0].ConnectionID != connID {
			return fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, currentID)
		}

		slot.withdrawing = true

		return nil
	})
	if errors.Is(err, apperror.ErrRoomNotFound) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return currentID, nil
}

// releaseOwnedRoom disposes the held room once its owner joined elsewhere,
// otherwise it goes back to waiting untouched.
func (that *Matchmaker) releaseOwnedRoom(ownedID, targetID string, joined bool) {
	_ = that.directory.withRoom(ownedID, func(slot *roomSlot) error {
		slot.withdrawing = false

		if joined && that.directory.dispose(slot) {
			that.logger.Info("waiting room withdrawn", "room", ownedID, "joined", targetID)
		}

		return nil
	})
}

// RequestMatch - joins the oldest waiting room, or opens one when none accepts connID.
func (that *Matchmaker) RequestMatch(connID string) (string, error) {
	log := that.logger.With("method", "RequestMatch")

	if _, ok := that.registry.Get(connID); !ok {
		return "", apperror.ErrNoSession
	}

	if roomID, ok := that.directory.RoomOf(connID); ok {
		return "", fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, roomID)
	}

	for _, roomID := range that.directory.Waiting() {
		err := that.CompleteRoom(roomID, connID)
		if err == nil {
			return roomID, nil
		}

		if errors.Is(err, apperror.ErrNoSession) || errors.Is(err, apperror.ErrAlreadyInRoom) {
			return "", err
		}

		log.Debug("skipping candidate room", "room", roomID, "error", err)
	}

	return that.OpenRoom(connID)
}

// ExpirePending - disposes waiting rooms older than ttl and tells their owners.
func (that *Matchmaker) ExpirePending(ttl time.Duration) []string {
	log := that.logger.With("method", "ExpirePending")

	cutoff := that.now().Add(-ttl)

	var expired []string

	for _, roomID := range that.directory.OpenedBefore(cutoff) {
		err := that.directory.withRoom(roomID, func(slot *roomSlot) error {
			if !slot.room.IsWaiting() || slot.withdrawing {
				return nil
			}

			owner := slot.room.Participants[0]
			if that.directory.dispose(slot) {
				that.fanout.MatchExpired(owner.ConnectionID, roomID)
				expired = append(expired, roomID)
			}

			return nil
		})
		if err != nil {
			log.Debug("room vanished before expiry", "room", roomID, "error", err)
		}
	}

	if len(expired) > 0 {
		log.Info("expired waiting rooms", "count", len(expired))
	}

	return expired
}
