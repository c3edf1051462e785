package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"user-etl/internal/adapter/csvfile"
	domain "user-etl/internal/domain/user"
	"user-etl/pkg/logger"
)

// signupWindowYears bounds how far back generated signup dates reach.
const signupWindowYears = 5

// Generator produces synthetic user records.
type Generator struct {
	faker Faker
	now   func() time.Time
	log   *zap.Logger
}

// NewFaker returns a gofakeit source. A zero seed picks a random one.
func NewFaker(seed uint64) *gofakeit.Faker {
	return gofakeit.New(seed)
}

// NewGenerator creates a Generator drawing values from f.
func NewGenerator(f Faker, log *zap.Logger) *Generator {
	return &Generator{faker: f, now: time.Now, log: log}
}

// Records builds n records with user IDs 1..n. Signup timestamps fall in the
// five years up to now and carry whole seconds.
func (g *Generator) Records(n int) ([]domain.Record, error) {
	if n < 0 {
		return nil, fmt.Errorf("record count must not be negative: %d", n)
	}

	end := g.now().UTC()
	start := end.AddDate(-signupWindowYears, 0, 0)

	records := make([]domain.Record, n)
	for i := range records {
		records[i] = domain.Record{
			UserID:     int64(i + 1),
			Name:       g.faker.Name(),
			Email:      g.faker.Email(),
			SignupDate: g.faker.DateRange(start, end).UTC().Truncate(time.Second),
		}
	}

	return records, nil
}

// Generate writes n records to path, replacing any existing file.
func (g *Generator) Generate(ctx context.Context, n int, path string) (*GenerateResult, error) {
	log := logger.WithContext(ctx, g.log)

	records, err := g.Records(n)
	if err != nil {
		return nil, err
	}

	if err := csvfile.WriteRecords(path, records); err != nil {
		log.Error("failed to write generated records", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	log.Info("generated records", zap.Int("count", n), zap.String("path", path))
	return &GenerateResult{Path: path, Written: n}, nil
}
