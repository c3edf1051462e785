package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-etl/internal/domain/user"
	apperrors "user-etl/pkg/errors"
)

// UserRepoPG owns one open connection to the destination store and applies
// the load steps to the users table.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	UserID     int64     `gorm:"column:user_id;primaryKey;autoIncrement"` // Surrogate key assigned by the store
	Name       string    `gorm:"type:varchar(255)"`
	Email      string    `gorm:"type:varchar(255)"`
	SignupDate time.Time `gorm:"type:timestamp"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// EnsureTable creates the users table when it does not exist. An existing
// table is left untouched.
func (r *UserRepoPG) EnsureTable(ctx context.Context) error {
	m := r.db.WithContext(ctx).Migrator()
	if m.HasTable(&UserSchema{}) {
		r.log.Debug("users table already exists")
		return nil
	}

	if err := m.CreateTable(&UserSchema{}); err != nil {
		r.log.Error("failed to create users table", zap.Error(err))
		return apperrors.NewDatabaseError("", "create users table", err)
	}

	r.log.Info("users table created")
	return nil
}

// Truncate removes every row and restarts the surrogate key sequence so the
// next insert receives key 1.
func (r *UserRepoPG) Truncate(ctx context.Context) error {
	db := r.db.WithContext(ctx)

	var err error
	switch db.Dialector.Name() {
	case "sqlite":
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(`DELETE FROM "users"`).Error; err != nil {
				return err
			}
			return tx.Exec(`DELETE FROM sqlite_sequence WHERE name = ?`, UserSchema{}.TableName()).Error
		})
	default:
		err = db.Exec(`TRUNCATE TABLE "users" RESTART IDENTITY`).Error
	}

	if err != nil {
		r.log.Error("failed to truncate users table", zap.Error(err))
		return apperrors.NewDatabaseError("", "truncate users table", err)
	}

	r.log.Info("users table truncated")
	return nil
}

// InsertUsers inserts users in slice order inside a single transaction and
// returns the surrogate keys the store assigned, in the same order.
func (r *UserRepoPG) InsertUsers(ctx context.Context, users []domain.Persisted, batchSize int) ([]int64, error) {
	if len(users) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = len(users)
	}

	models := make([]UserSchema, len(users))
	for i, u := range users {
		models[i] = UserSchema{
			Name:       u.Name,
			Email:      u.Email,
			SignupDate: u.SignupDate,
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, batchSize).Error
	})
	if err != nil {
		r.log.Error("failed to insert users", zap.Error(err), zap.Int("count", len(users)))
		return nil, apperrors.NewDatabaseError("", fmt.Sprintf("insert %d users", len(users)), err)
	}

	keys := make([]int64, len(models))
	for i, m := range models {
		keys[i] = m.UserID
	}

	r.log.Info("users inserted", zap.Int("count", len(models)), zap.Int("batch_size", batchSize))
	return keys, nil
}

// Count returns the number of rows in the users table.
func (r *UserRepoPG) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Count(&n).Error; err != nil {
		return 0, apperrors.NewDatabaseError("", "count users", err)
	}
	return n, nil
}

// Close releases the underlying connection pool.
func (r *UserRepoPG) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
