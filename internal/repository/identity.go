package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const (
	identityKeyPrefix    = "identity:"
	identityHandlePrefix = "identity:handle:"
)

const (
	createOK = iota
	createIDTaken
	createHandleTaken
)

// KEYS[1] identity hash, KEYS[2] handle index.
var createIdentityScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 1
end
if redis.call("SETNX", KEYS[2], ARGV[1]) == 0 then
	return 2
end
redis.call("HSET", KEYS[1], "id", ARGV[1], "handle", ARGV[2], "is_admin", ARGV[3],
	"wins", ARGV[4], "losses", ARGV[5], "draws", ARGV[6])
return 0
`)

// A missing hash yields a nil reply so HINCRBY never creates a partial identity.
var incrementOutcomeScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return false
end
return redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
`)

type IdentityRepository interface {
	Create(ctx context.Context, identity *entity.Identity) error
	GetByHandle(ctx context.Context, handle string) (*entity.Identity, error)
	GetByID(ctx context.Context, id string) (*entity.Identity, error)
	IncrementOutcome(ctx context.Context, id string, kind entity.OutcomeKind) error
}

type dbIdentity struct {
	client *redis.Client
}

func NewIdentityRepository(client *redis.Client) IdentityRepository {
	return &dbIdentity{
		client: client,
	}
}

// Create - stores identity unless its id or handle is already taken.
// Both checks and the write run as one script so concurrent creates cannot interleave.
func (that *dbIdentity) Create(ctx context.Context, identity *entity.Identity) error {
	keys := []string{identityKeyPrefix + identity.ID, identityHandlePrefix + identity.Handle}

	code, err := createIdentityScript.Run(ctx, that.client, keys,
		identity.ID, identity.Handle, identity.IsAdmin, identity.Wins, identity.Losses, identity.Draws).Int()
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	switch code {
	case createIDTaken:
		return fmt.Errorf("%w: %s", apperror.ErrIdentityIDTaken, identity.ID)
	case createHandleTaken:
		return fmt.Errorf("%w: %s", apperror.ErrIdentityConflict, identity.Handle)
	}

	return nil
}

func (that *dbIdentity) GetByHandle(ctx context.Context, handle string) (*entity.Identity, error) {
	id, err := that.client.Get(ctx, identityHandlePrefix+handle).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrIdentityNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get identity by handle: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbIdentity) GetByID(ctx context.Context, id string) (*entity.Identity, error) {
	response := that.client.HGetAll(ctx, identityKeyPrefix+id)
	if err := response.Err(); err != nil {
		return nil, fmt.Errorf("failed to get identity by ID: %w", err)
	}

	if len(response.Val()) == 0 {
		return nil, apperror.ErrIdentityNotFound
	}

	var identity entity.Identity
	if err := response.Scan(&identity); err != nil {
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}

	return &identity, nil
}

// IncrementOutcome - bumps a single counter of an existing identity.
func (that *dbIdentity) IncrementOutcome(ctx context.Context, id string, kind entity.OutcomeKind) error {
	field, err := kind.Field()
	if err != nil {
		return err
	}

	err = incrementOutcomeScript.Run(ctx, that.client, []string{identityKeyPrefix + id}, field).Err()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %s", apperror.ErrIdentityNotFound, id)
	}

	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", field, err)
	}

	return nil
}
