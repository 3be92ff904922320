package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AvatarRepo handles the JSON avatar payload and the per-account journal
// tables for seen tutorials and finished quests.
type AvatarRepo struct {
	db *DB
}

func NewAvatarRepo(db *DB) *AvatarRepo {
	return &AvatarRepo{db: db}
}

// Load returns the avatar payload plus the tutorial and quest journals.
// A missing avatar row returns a nil payload, not an error.
func (r *AvatarRepo) Load(ctx context.Context, accountID int64) ([]byte, []string, map[string]time.Time, error) {
	var payload string
	err := r.db.Handle.QueryRowContext(ctx,
		`SELECT payload FROM avatars WHERE account_id = ?`, accountID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil, nil
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load avatar: %w", err)
	}

	tutorials, err := r.loadTutorials(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	finished, err := r.loadFinished(ctx, accountID)
	if err != nil {
		return nil, nil, nil, err
	}
	return []byte(payload), tutorials, finished, nil
}

func (r *AvatarRepo) loadTutorials(ctx context.Context, accountID int64) ([]string, error) {
	rows, err := r.db.Handle.QueryContext(ctx,
		`SELECT tutorial FROM tutorials_seen WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("load tutorials: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan tutorial: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *AvatarRepo) loadFinished(ctx context.Context, accountID int64) (map[string]time.Time, error) {
	rows, err := r.db.Handle.QueryContext(ctx,
		`SELECT quest, completed_at FROM finished_quests WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("load finished quests: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			quest string
			at    string
		)
		if err := rows.Scan(&quest, &at); err != nil {
			return nil, fmt.Errorf("scan finished quest: %w", err)
		}
		when, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("parse completion time %q: %w", at, err)
		}
		out[quest] = when
	}
	return out, rows.Err()
}

// Save writes the payload and appends journal rows in one transaction.
// Journal inserts are idempotent so a retried save cannot fail on a
// duplicate key.
func (r *AvatarRepo) Save(ctx context.Context, accountID int64, payload []byte, newTutorials []string, newFinished map[string]time.Time) error {
	tx, err := r.db.Handle.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO avatars (account_id, payload) VALUES (?, ?)
		 ON CONFLICT (account_id) DO UPDATE SET payload = excluded.payload,
		   updated_at = datetime('now')`,
		accountID, string(payload))
	if err != nil {
		return fmt.Errorf("save avatar: %w", err)
	}

	for _, t := range newTutorials {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tutorials_seen (account_id, tutorial) VALUES (?, ?)
			 ON CONFLICT DO NOTHING`, accountID, t)
		if err != nil {
			return fmt.Errorf("journal tutorial %q: %w", t, err)
		}
	}
	for quest, at := range newFinished {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO finished_quests (account_id, quest, completed_at) VALUES (?, ?, ?)
			 ON CONFLICT DO NOTHING`, accountID, quest, at.UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("journal quest %q: %w", quest, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ResetTutorials clears the seen-tutorial journal for the account.
func (r *AvatarRepo) ResetTutorials(ctx context.Context, accountID int64) error {
	_, err := r.db.Handle.ExecContext(ctx,
		`DELETE FROM tutorials_seen WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("reset tutorials: %w", err)
	}
	return nil
}
