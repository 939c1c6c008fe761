package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// MemoryStore keeps identities and match history in process memory. It serves
// both repository interfaces and is meant for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	identities map[string]*entity.Identity
	handles    map[string]string
	matches    map[string]*entity.MatchRecord
	history    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		identities: make(map[string]*entity.Identity),
		handles:    make(map[string]string),
		matches:    make(map[string]*entity.MatchRecord),
	}
}

func (that *MemoryStore) Create(_ context.Context, identity *entity.Identity) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.identities[identity.ID]; ok {
		return fmt.Errorf("%w: %s", apperror.ErrIdentityIDTaken, identity.ID)
	}

	if _, ok := that.handles[identity.Handle]; ok {
		return fmt.Errorf("%w: %s", apperror.ErrIdentityConflict, identity.Handle)
	}

	stored := *identity
	that.identities[identity.ID] = &stored
	that.handles[identity.Handle] = identity.ID

	return nil
}

func (that *MemoryStore) GetByHandle(ctx context.Context, handle string) (*entity.Identity, error) {
	that.mu.RLock()
	id, ok := that.handles[handle]
	that.mu.RUnlock()

	if !ok {
		return nil, apperror.ErrIdentityNotFound
	}

	return that.GetByID(ctx, id)
}

func (that *MemoryStore) GetByID(_ context.Context, id string) (*entity.Identity, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	identity, ok := that.identities[id]
	if !ok {
		return nil, apperror.ErrIdentityNotFound
	}

	snapshot := *identity

	return &snapshot, nil
}

func (that *MemoryStore) IncrementOutcome(_ context.Context, id string, kind entity.OutcomeKind) error {
	if _, err := kind.Field(); err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	identity, ok := that.identities[id]
	if !ok {
		return fmt.Errorf("%w: %s", apperror.ErrIdentityNotFound, id)
	}

	identity.Apply(kind)

	return nil
}

func (that *MemoryStore) Append(_ context.Context, record *entity.MatchRecord) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	stored := *record
	stored.Participants = append([]entity.MatchParticipant(nil), record.Participants...)

	if _, ok := that.matches[record.RoomID]; !ok {
		that.history = append(that.history, record.RoomID)
	}
	that.matches[record.RoomID] = &stored

	return nil
}

func (that *MemoryStore) GetByRoomID(_ context.Context, roomID string) (*entity.MatchRecord, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	record, ok := that.matches[roomID]
	if !ok {
		return nil, apperror.ErrMatchNotFound
	}

	snapshot := *record
	snapshot.Participants = append([]entity.MatchParticipant(nil), record.Participants...)

	return &snapshot, nil
}

// History lists appended room ids, oldest first.
func (that *MemoryStore) History() []string {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return append([]string(nil), that.history...)
}
