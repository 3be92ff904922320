package persist

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 4096
	saltLen          = 16
	keyLen           = 32
)

// AccountRepo handles account rows and credential checks.
type AccountRepo struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepo {
	return &AccountRepo{db: db}
}

// ValidUsername reports whether the name is 3-20 letters, digits or
// underscores.
func ValidUsername(name string) bool {
	if len(name) < 3 || len(name) > 20 {
		return false
	}
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_':
		default:
			return false
		}
	}
	return true
}

// ValidPassword reports whether the password is 8-40 printable ASCII
// characters. Space is allowed, newline is not.
func ValidPassword(pw string) bool {
	if len(pw) < 8 || len(pw) > 40 {
		return false
	}
	for _, c := range pw {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// Create inserts a new account with a freshly salted credential and the
// given initial avatar payload in one transaction. Returns 0 when the
// username is already taken or the credentials fail validation.
func (r *AccountRepo) Create(ctx context.Context, username, password string, payload []byte) (int64, error) {
	if !ValidUsername(username) || !ValidPassword(password) {
		return 0, nil
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return 0, fmt.Errorf("generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha1.New)

	tx, err := r.db.Handle.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var taken int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM accounts WHERE username = ?`, username).Scan(&taken)
	if err != nil {
		return 0, fmt.Errorf("check username: %w", err)
	}
	if taken > 0 {
		return 0, nil
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO accounts (username, password_salt, password_key) VALUES (?, ?, ?)`,
		username, salt, key)
	if err != nil {
		return 0, fmt.Errorf("insert account: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("account id: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO avatars (account_id, payload) VALUES (?, ?)`, id, string(payload))
	if err != nil {
		return 0, fmt.Errorf("insert avatar: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// Authenticate checks the password against the stored derived key.
// Returns 0 when the account does not exist or the password is wrong.
func (r *AccountRepo) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var (
		id   int64
		salt []byte
		want []byte
	)
	err := r.db.Handle.QueryRowContext(ctx,
		`SELECT id, password_salt, password_key FROM accounts WHERE username = ?`,
		username).Scan(&id, &salt, &want)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load account: %w", err)
	}
	got := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, keyLen, sha1.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return 0, nil
	}
	_, err = r.db.Handle.ExecContext(ctx,
		`UPDATE accounts SET last_login = datetime('now') WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("touch last_login: %w", err)
	}
	return id, nil
}

// Username looks up the account name for an id. Returns "" when missing.
func (r *AccountRepo) Username(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.db.Handle.QueryRowContext(ctx,
		`SELECT username FROM accounts WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load username: %w", err)
	}
	return name, nil
}
