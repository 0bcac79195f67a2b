package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/koffiee-storefront/internal/lock"
)

// ErrNotFound indicates the session id is unknown or expired.
var ErrNotFound = errors.New("session not found")

// Store keeps session state in Redis. Mutations are serialised per session
// with a Redis lock.
type Store struct {
	Client  *redis.Client
	TTL     time.Duration
	Locker  lock.Locker
	LockTTL time.Duration
	Prefix  string
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 2 * time.Hour
	}
	return s.TTL
}

func (s *Store) lockTTL() time.Duration {
	if s == nil || s.LockTTL <= 0 {
		return 5 * time.Second
	}
	return s.LockTTL
}

func (s *Store) key(id string) string {
	prefix := "session:"
	if s.Prefix != "" {
		prefix = s.Prefix
	}
	return prefix + id
}

// Create allocates a new, empty session.
func (s *Store) Create(ctx context.Context) (string, State, error) {
	if s == nil || s.Client == nil {
		return "", State{}, errors.New("session store not configured")
	}
	id := uuid.NewString()
	state := State{}
	if err := s.save(ctx, id, state); err != nil {
		return "", State{}, err
	}
	return id, state, nil
}

// Load returns the state stored under id and refreshes its expiry.
func (s *Store) Load(ctx context.Context, id string) (State, error) {
	if s == nil || s.Client == nil {
		return State{}, errors.New("session store not configured")
	}
	if _, err := uuid.Parse(id); err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	data, err := s.Client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return State{}, fmt.Errorf("load session: %w", err)
	}
	_ = s.Client.Expire(ctx, s.key(id), s.ttl()).Err()
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	return state, nil
}

// Delete forgets the session.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s == nil || s.Client == nil {
		return errors.New("session store not configured")
	}
	return s.Client.Del(ctx, s.key(id)).Err()
}

// Mutate loads the session, applies fn and persists the result while holding
// the session lock. The new state is stored when fn succeeds or fails with a
// *DiscountError.
func (s *Store) Mutate(ctx context.Context, id string, fn func(State) (State, error)) (State, error) {
	if s == nil || s.Client == nil {
		return State{}, errors.New("session store not configured")
	}
	if _, err := uuid.Parse(id); err != nil {
		return State{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	locker := s.Locker
	if locker.R == nil {
		locker.R = s.Client
	}
	var result State
	err := locker.WithLock(ctx, "lock:"+s.key(id), s.lockTTL(), func(ctx context.Context) error {
		current, err := s.Load(ctx, id)
		if err != nil {
			return err
		}
		next, applyErr := fn(current)
		var discountErr *DiscountError
		if applyErr != nil && !errors.As(applyErr, &discountErr) {
			result = current
			return applyErr
		}
		if err := s.save(ctx, id, next); err != nil {
			return err
		}
		result = next
		return applyErr
	})
	return result, err
}

// Apply is Mutate with a reducer action.
func (s *Store) Apply(ctx context.Context, id string, env Env, action Action) (State, error) {
	return s.Mutate(ctx, id, func(current State) (State, error) {
		return Apply(env, current, action)
	})
}

func (s *Store) save(ctx context.Context, id string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.Client.Set(ctx, s.key(id), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}
