package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Fb1234566/TrentOnBike-api/apperrors"

	"github.com/apex/log"
)

// Keys of the global change-notification timestamps. Polling clients compare
// the stored value against their last fetch time to decide whether to
// refetch.
const (
	KeyLastReportsUpdate = "lastReportsUpdate"
)

func validTimestampKeys() []string {
	return []string{KeyLastReportsUpdate}
}

// IsValidTimestampKey reports whether key belongs to the closed key enum.
func IsValidTimestampKey(key string) bool {
	for _, k := range validTimestampKeys() {
		if k == key {
			return true
		}
	}
	return false
}

type TimestampsService struct {
	db *sql.DB
}

func NewTimestampsService(db *sql.DB) *TimestampsService {
	return &TimestampsService{db: db}
}

// Init creates a row for every valid key that does not exist yet.
func (s *TimestampsService) Init(ctx context.Context) error {
	for _, key := range validTimestampKeys() {
		res, err := s.db.ExecContext(ctx,
			`INSERT IGNORE INTO global_timestamps (ts_key, value) VALUES (?, ?)`,
			key, time.Now().UTC())
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n > 0 {
			log.Infof("Global timestamp '%s' initialized", key)
		}
	}
	return nil
}

// Get returns the stored value for a key.
func (s *TimestampsService) Get(ctx context.Context, key string) (time.Time, error) {
	if !IsValidTimestampKey(key) {
		return time.Time{}, invalidKeyError(key)
	}
	var value time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM global_timestamps WHERE ts_key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, apperrors.NotFoundf("Chiave '%s' non trovata.", key)
	}
	if err != nil {
		return time.Time{}, err
	}
	return value, nil
}

// Bump advances the stored value to now, but only if now is strictly greater
// than the stored value. Returns the (possibly unchanged) stored value.
func (s *TimestampsService) Bump(ctx context.Context, key string) (time.Time, error) {
	if !IsValidTimestampKey(key) {
		return time.Time{}, invalidKeyError(key)
	}
	return bumpGlobalTimestamp(ctx, s.db, key)
}

func invalidKeyError(key string) error {
	return apperrors.Validationf("Chiave '%s' non è valida. Le chiavi valide sono: %s",
		key, strings.Join(validTimestampKeys(), ", "))
}

// querier is satisfied by both *sql.DB and *sql.Tx, so the bump can run
// inside the transaction of the mutation it signals.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func bumpGlobalTimestamp(ctx context.Context, q querier, key string) (time.Time, error) {
	var stored time.Time
	err := q.QueryRowContext(ctx,
		`SELECT value FROM global_timestamps WHERE ts_key = ?`, key).Scan(&stored)
	if err == sql.ErrNoRows {
		return time.Time{}, apperrors.NotFoundf("Chiave '%s' non trovata.", key)
	}
	if err != nil {
		return time.Time{}, err
	}

	now := time.Now().UTC()
	if !now.After(stored) {
		return stored, nil
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE global_timestamps SET value = ? WHERE ts_key = ?`, now, key); err != nil {
		return time.Time{}, err
	}
	return now, nil
}
