package mysql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/slopesquad/presence-api/internal/model"
	"github.com/slopesquad/presence-api/internal/store"
)

// CreateGroup issues a fresh join code.  Uniqueness is enforced by the
// primary key on presence_groups.code: the insert is attempted with a
// new random code until it lands or the retry budget is spent.  With
// one million possible codes and seasonal group lifetimes, collisions
// are rare but routine enough that the loop is load-bearing.
func (s *Store) CreateGroup(ctx context.Context) (model.Group, error) {
	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return model.Group{}, err
		}
		_, err = s.db.ExecContext(ctx, `INSERT INTO presence_groups (code) VALUES (?)`, code)
		if err != nil {
			if isDuplicate(err) {
				continue
			}
			return model.Group{}, err
		}
		return s.GetGroup(ctx, code)
	}
	return model.Group{}, store.ErrCodeExhausted
}

// GetGroup looks up a group by its join code.
func (s *Store) GetGroup(ctx context.Context, code string) (model.Group, error) {
	const q = `SELECT code, created_at, expires_at FROM presence_groups WHERE code = ?`
	var g model.Group
	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx, q, code).Scan(&g.Code, &g.CreatedAt, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Group{}, store.ErrGroupNotFound
		}
		return model.Group{}, err
	}
	if expires.Valid {
		t := expires.Time
		g.ExpiresAt = &t
	}
	return g, nil
}

// groupExistsTx verifies the join code inside the current transaction
// so that ledger mutations and the existence check see the same state.
func groupExistsTx(ctx context.Context, tx *sql.Tx, code string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM presence_groups WHERE code = ?`, code).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrGroupNotFound
	}
	return err
}
