package etl

import (
	"context"

	"go.uber.org/zap"

	"user-etl/internal/adapter/csvfile"
	domain "user-etl/internal/domain/user"
	apperrors "user-etl/pkg/errors"
	"user-etl/pkg/logger"
)

// Loader replaces the contents of the users table with a transformed file.
type Loader struct {
	connect   ConnectFunc
	batchSize int
	log       *zap.Logger
}

// NewLoader creates a Loader that opens a new connection per Load call.
func NewLoader(connect ConnectFunc, batchSize int, log *zap.Logger) *Loader {
	return &Loader{connect: connect, batchSize: batchSize, log: log}
}

// Load connects, ensures the table, truncates it, then inserts every record
// of the file at path. Table creation, truncation and the insert each commit
// separately, so a failure after truncation leaves the table empty. The
// connection is always closed before returning.
func (l *Loader) Load(ctx context.Context, path string) (*LoadResult, error) {
	log := logger.WithContext(ctx, l.log)

	repo, err := l.connect(ctx)
	if err != nil {
		log.Error("failed to connect to destination", zap.Error(err))
		return nil, apperrors.NewConnectionError("", "connect to destination", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Warn("failed to close destination connection", zap.Error(err))
		}
	}()

	if err := repo.EnsureTable(ctx); err != nil {
		return nil, err
	}

	if err := repo.Truncate(ctx); err != nil {
		return nil, err
	}

	records, err := csvfile.ReadTransformed(path)
	if err != nil {
		log.Error("failed to read transformed records", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	users := make([]domain.Persisted, len(records))
	for i, r := range records {
		users[i] = r.ToPersisted()
	}

	keys, err := repo.InsertUsers(ctx, users, l.batchSize)
	if err != nil {
		return nil, err
	}

	res := &LoadResult{Inserted: len(keys)}
	if len(keys) > 0 {
		res.FirstKey = keys[0]
		res.LastKey = keys[len(keys)-1]
	}

	log.Info("loaded records",
		zap.Int("inserted", res.Inserted),
		zap.Int64("first_key", res.FirstKey),
		zap.Int64("last_key", res.LastKey),
	)

	return res, nil
}
