package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/maratonas-femininas/maratonas/internal/identity"
)

// DefaultKey is the storage key the identity record lives under.
const DefaultKey = "auth_user"

// Store persists the current identity in a Storage.
type Store struct {
	storage Storage
	key     string
	logger  *slog.Logger
}

// NewStore builds a Store over storage using DefaultKey.
func NewStore(storage Storage, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{storage: storage, key: DefaultKey, logger: logger}
}

// Load returns the persisted identity, or ok=false when there is none.
// A record that does not decode to a well-formed identity is erased and
// reported as none. Only storage failures are returned as errors.
func (s *Store) Load(ctx context.Context) (identity.Identity, bool, error) {
	raw, ok, err := s.storage.Get(ctx, s.key)
	if err != nil {
		return identity.Identity{}, false, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return identity.Identity{}, false, nil
	}

	ident, err := identity.DecodeIdentity([]byte(raw))
	if err != nil {
		s.logger.Warn("discarding corrupt session record", slog.String("key", s.key), slog.Any("error", err))
		if rmErr := s.storage.Remove(ctx, s.key); rmErr != nil {
			return identity.Identity{}, false, fmt.Errorf("erase corrupt session: %w", rmErr)
		}
		return identity.Identity{}, false, nil
	}
	return ident, true, nil
}

// Save overwrites the persisted identity.
func (s *Store) Save(ctx context.Context, ident identity.Identity) error {
	if err := ident.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(ident)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Clear erases the persisted identity. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.storage.Remove(ctx, s.key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
