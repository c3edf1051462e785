package etl

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-etl/internal/adapter/db/postgres"
)

var fixedNow = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

// stubFaker returns the configured emails in order and deterministic names
// and dates.
type stubFaker struct {
	emails []string
	calls  int
	panics bool
}

func (f *stubFaker) Name() string {
	if f.panics {
		panic("faker exhausted")
	}
	return fmt.Sprintf("User %d", f.calls+1)
}

func (f *stubFaker) Email() string {
	e := f.emails[f.calls%len(f.emails)]
	f.calls++
	return e
}

func (f *stubFaker) DateRange(start, end time.Time) time.Time {
	return end.Add(-time.Duration(f.calls) * 36 * time.Hour).Add(-90 * time.Minute)
}

func newTestGenerator(f Faker, log *zap.Logger) *Generator {
	g := NewGenerator(f, log)
	g.now = func() time.Time { return fixedNow }
	return g
}

// sqliteStore points every connection at the same database file so that
// consecutive loads observe each other.
type sqliteStore struct {
	path   string
	log    *zap.Logger
	opened int
	closed int
}

func newSQLiteStore(t *testing.T, log *zap.Logger) *sqliteStore {
	return &sqliteStore{path: filepath.Join(t.TempDir(), "users.db"), log: log}
}

func (s *sqliteStore) open() (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(s.path), &gorm.Config{})
}

func (s *sqliteStore) Connect(ctx context.Context) (Repository, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	s.opened++
	return &trackedRepo{UserRepoPG: postgres.NewUserRepoPG(db, s.log), store: s}, nil
}

type trackedRepo struct {
	*postgres.UserRepoPG
	store *sqliteStore
}

func (r *trackedRepo) Close() error {
	r.store.closed++
	return r.UserRepoPG.Close()
}

type storedUser struct {
	UserID     int64
	Name       string
	Email      string
	SignupDate time.Time
}

func (s *sqliteStore) rows(t *testing.T) []storedUser {
	db, err := s.open()
	require.NoError(t, err)
	defer func() {
		sqlDB, err := db.DB()
		require.NoError(t, err)
		require.NoError(t, sqlDB.Close())
	}()

	var users []storedUser
	require.NoError(t, db.Table("users").Order("user_id").Find(&users).Error)
	return users
}

func failingConnect(ctx context.Context) (Repository, error) {
	return nil, fmt.Errorf("dial tcp 127.0.0.1:1: connect: connection refused")
}
