package etl

import (
	"context"

	"go.uber.org/zap"

	"user-etl/internal/adapter/csvfile"
	domain "user-etl/internal/domain/user"
	"user-etl/pkg/logger"
)

// Transformer validates generated records and derives their email domain.
type Transformer struct {
	log *zap.Logger
}

// NewTransformer creates a Transformer.
func NewTransformer(log *zap.Logger) *Transformer {
	return &Transformer{log: log}
}

// Apply keeps the records with a valid email, in their original order, and
// returns them with the number dropped.
func (t *Transformer) Apply(records []domain.Record) ([]domain.TransformedRecord, int) {
	kept := make([]domain.TransformedRecord, 0, len(records))
	for _, r := range records {
		tr, ok := domain.Transform(r)
		if !ok {
			continue
		}
		kept = append(kept, tr)
	}
	return kept, len(records) - len(kept)
}

// Transform reads the raw file at in and writes the surviving records to out.
// Nothing is written when the input cannot be read.
func (t *Transformer) Transform(ctx context.Context, in, out string) (*TransformResult, error) {
	log := logger.WithContext(ctx, t.log)

	records, err := csvfile.ReadRecords(in)
	if err != nil {
		log.Error("failed to read generated records", zap.String("path", in), zap.Error(err))
		return nil, err
	}

	kept, dropped := t.Apply(records)

	if err := csvfile.WriteTransformed(out, kept); err != nil {
		log.Error("failed to write transformed records", zap.String("path", out), zap.Error(err))
		return nil, err
	}

	log.Info("transformed records",
		zap.Int("read", len(records)),
		zap.Int("kept", len(kept)),
		zap.Int("dropped", dropped),
		zap.String("path", out),
	)

	return &TransformResult{
		Path:    out,
		Read:    len(records),
		Kept:    len(kept),
		Dropped: dropped,
	}, nil
}
