package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/emberwake/server/internal/world"
)

// Store bundles the repositories behind the world's persistence interface.
type Store struct {
	Accounts *AccountRepo
	Avatars  *AvatarRepo
}

func NewStore(db *DB) *Store {
	return &Store{
		Accounts: NewAccountRepo(db),
		Avatars:  NewAvatarRepo(db),
	}
}

var _ world.Store = (*Store)(nil)

func (s *Store) CreateAccount(ctx context.Context, username, password string, avatar *world.AvatarRecord) (int64, error) {
	payload, err := json.Marshal(avatar)
	if err != nil {
		return 0, fmt.Errorf("encode avatar: %w", err)
	}
	return s.Accounts.Create(ctx, username, password, payload)
}

func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	return s.Accounts.Authenticate(ctx, username, password)
}

func (s *Store) LoadAvatar(ctx context.Context, accountID int64) (*world.AvatarRecord, []string, map[string]time.Time, error) {
	payload, tutorials, finished, err := s.Avatars.Load(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	if payload == nil {
		return nil, nil, nil, fmt.Errorf("no avatar for account %d", accountID)
	}
	rec := &world.AvatarRecord{}
	if err := json.Unmarshal(payload, rec); err != nil {
		return nil, nil, nil, fmt.Errorf("decode avatar: %w", err)
	}
	return rec, tutorials, finished, nil
}

func (s *Store) SaveAvatar(ctx context.Context, accountID int64, rec *world.AvatarRecord, newTutorials []string, newFinished map[string]time.Time) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode avatar: %w", err)
	}
	return s.Avatars.Save(ctx, accountID, payload, newTutorials, newFinished)
}

func (s *Store) ResetTutorials(ctx context.Context, accountID int64) error {
	return s.Avatars.ResetTutorials(ctx, accountID)
}
