// Package mysql implements the check-in ledger on MySQL.  All mutating
// operations run inside a single transaction so that the
// deactivate-then-insert and update-latest-row sequences can never be
// observed half applied.  Timestamp columns for check-ins are epoch
// milliseconds (BIGINT) stored as supplied; group timestamps use
// DATETIME in UTC.
package mysql

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"

	driver "github.com/go-sql-driver/mysql"
)

// Store provides data access to the groups and checkins tables.
type Store struct {
	db           *sql.DB
	codeAttempts int
}

// New binds a Store to the given database handle and bootstraps the
// schema.  codeAttempts is the collision-retry budget for group code
// generation; values below 1 are raised to 1.
func New(db *sql.DB, codeAttempts int) (*Store, error) {
	if codeAttempts < 1 {
		codeAttempts = 1
	}
	s := &Store{db: db, codeAttempts: codeAttempts}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("mysql: migrate: %w", err)
	}
	return s, nil
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// migrate creates the two ledger tables when they do not exist yet.
// The index on (group_code, device_id, is_active) serves the
// deactivate-others path; (group_code, checked_in_at) serves window
// reads and the sweeper.
func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS presence_groups (
			code       CHAR(6)  NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			expires_at DATETIME NULL,
			PRIMARY KEY (code)
		)`,
		`CREATE TABLE IF NOT EXISTS checkins (
			id                             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
			group_code                     CHAR(6)      NOT NULL,
			device_id                      VARCHAR(64)  NOT NULL,
			user_name                      VARCHAR(100) NOT NULL,
			place_id                       VARCHAR(64)  NOT NULL,
			place_name                     VARCHAR(255) NOT NULL,
			checked_in_at                  BIGINT       NOT NULL,
			checked_out_at                 BIGINT       NULL,
			is_active                      TINYINT(1)   NOT NULL DEFAULT 1,
			accommodation_place_id         VARCHAR(64)  NULL,
			accommodation_name             VARCHAR(255) NULL,
			accommodation_lng              DOUBLE       NULL,
			accommodation_lat              DOUBLE       NULL,
			display_accommodation_to_group TINYINT(1)   NOT NULL DEFAULT 0,
			PRIMARY KEY (id),
			KEY idx_checkins_device_active (group_code, device_id, is_active),
			KEY idx_checkins_window (group_code, checked_in_at)
		)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// randomCode produces a 6-digit numeric join code with leading zeros
// preserved.  crypto/rand keeps codes unguessable enough for a
// share-by-voice join flow.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// isDuplicate reports whether err is a MySQL duplicate-key violation
// (error 1062), which is how code collisions surface.
func isDuplicate(err error) bool {
	var me *driver.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
