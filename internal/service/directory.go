package service

import (
	"fmt"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// roomSlot owns one room. Its mutex serializes every operation on the room;
// disposed is set once, under that mutex, when the room leaves the directory.
// withdrawing is set while the owner tries to join another room; nobody may
// join or expire the room until the owner either leaves it or keeps it.
type roomSlot struct {
	mu          sync.Mutex
	room        *entity.Room
	disposed    bool
	withdrawing bool
	openedAt    time.Time
}

// Directory indexes live rooms. Lock order is slot.mu before Directory.mu; the
// directory lock is never held while acquiring the lock of a published room.
type Directory struct {
	mu      sync.Mutex
	rooms   map[string]*roomSlot
	waiting []string          // awaiting-opponent room ids, oldest first
	seats   map[string]string // connection id -> id of the non-finished room it sits in
}

func NewDirectory() *Directory {
	return &Directory{
		rooms: make(map[string]*roomSlot),
		seats: make(map[string]string),
	}
}

// add registers a freshly opened room and seats its owner. The returned slot is
// already locked so nobody can join before the owner has been told about it.
func (that *Directory) add(room *entity.Room) (*roomSlot, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	owner := room.Participants[0].ConnectionID
	if roomID, ok := that.seats[owner]; ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, roomID)
	}

	slot := &roomSlot{room: room, openedAt: room.CreatedAt}
	slot.mu.Lock()

	that.rooms[room.ID] = slot
	that.waiting = append(that.waiting, room.ID)
	that.seats[owner] = room.ID

	return slot, nil
}

// seat binds connID to roomID and takes the room off the waiting list. A
// connection already bound to a room may only move when that room is from.
// Callers hold the room lock.
func (that *Directory) seat(connID, roomID, from string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if current, ok := that.seats[connID]; ok && (from == "" || current != from) {
		return fmt.Errorf("%w: %s", apperror.ErrAlreadyInRoom, current)
	}

	that.seats[connID] = roomID
	that.waiting = removeID(that.waiting, roomID)

	return nil
}

// unseat reverses seat. Callers hold the room lock.
func (that *Directory) unseat(connID, roomID, from string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.seats[connID] == roomID {
		delete(that.seats, connID)
		if from != "" {
			that.seats[connID] = from
		}
	}
	that.waiting = append([]string{roomID}, removeID(that.waiting, roomID)...)
}

func (that *Directory) slot(roomID string) (*roomSlot, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	slot, ok := that.rooms[roomID]

	return slot, ok
}

// withRoom runs fn while holding the lock of roomID.
func (that *Directory) withRoom(roomID string, fn func(slot *roomSlot) error) error {
	slot, ok := that.slot(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.disposed {
		return fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	return fn(slot)
}

// dispose removes the room of a locked slot. It reports false on the second call.
func (that *Directory) dispose(slot *roomSlot) bool {
	if slot.disposed {
		return false
	}
	slot.disposed = true

	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, slot.room.ID)
	that.waiting = removeID(that.waiting, slot.room.ID)

	for _, connID := range slot.room.Connections() {
		if that.seats[connID] == slot.room.ID {
			delete(that.seats, connID)
		}
	}

	return true
}

// Dispose - removes roomID from the directory. Only the first call for a room returns true.
func (that *Directory) Dispose(roomID string) bool {
	disposed := false

	_ = that.withRoom(roomID, func(slot *roomSlot) error {
		disposed = that.dispose(slot)
		return nil
	})

	return disposed
}

// Lookup returns a snapshot of roomID.
func (that *Directory) Lookup(roomID string) (*entity.Room, bool) {
	var snapshot *entity.Room

	err := that.withRoom(roomID, func(slot *roomSlot) error {
		snapshot = slot.room.Clone()
		return nil
	})
	if err != nil {
		return nil, false
	}

	return snapshot, true
}

// RoomOf returns the id of the non-finished room connID sits in.
func (that *Directory) RoomOf(connID string) (string, bool) {
	that.mu.Lock()
	defer that.mu.Unlock()

	roomID, ok := that.seats[connID]

	return roomID, ok
}

// Waiting lists awaiting-opponent room ids, oldest first. The list may be stale
// by the time a room lock is taken.
func (that *Directory) Waiting() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.waiting...)
}

// OpenedBefore lists waiting rooms created before cutoff.
func (that *Directory) OpenedBefore(cutoff time.Time) []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	var ids []string
	for _, roomID := range that.waiting {
		if slot, ok := that.rooms[roomID]; ok && slot.openedAt.Before(cutoff) {
			ids = append(ids, roomID)
		}
	}

	return ids
}

func (that *Directory) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.rooms)
}

func removeID(ids []string, id string) []string {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
