package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-etl/internal/domain/run"
)

const (
	lastRunKey    = "etl:run:last"
	runHistoryKey = "etl:run:history"
)

// ReportStore defines the interface for publishing pipeline run reports.
type ReportStore interface {
	// Save records report as the latest run and prepends it to the history.
	Save(ctx context.Context, report *run.Report) error

	// Last returns the most recent report, or nil when none was saved.
	Last(ctx context.Context) (*run.Report, error)

	// History returns up to the configured number of reports, newest first.
	History(ctx context.Context) ([]run.Report, error)
}

// RedisReportStore implements ReportStore using Redis as the backing store.
type RedisReportStore struct {
	client      *redis.Client
	ttl         time.Duration
	historySize int
	log         *zap.Logger
}

// NewRedisReportStore creates a new Redis-backed report store. A zero ttl
// keeps the last report until it is overwritten.
func NewRedisReportStore(client *redis.Client, ttl time.Duration, historySize int, log *zap.Logger) *RedisReportStore {
	if historySize <= 0 {
		historySize = 1
	}
	return &RedisReportStore{
		client:      client,
		ttl:         ttl,
		historySize: historySize,
		log:         log,
	}
}

// Save stores the report under the last-run key and trims the history list.
func (s *RedisReportStore) Save(ctx context.Context, report *run.Report) error {
	if report == nil {
		return fmt.Errorf("cannot store nil report")
	}

	data, err := json.Marshal(report)
	if err != nil {
		s.log.Error("failed to marshal run report", zap.String("run_id", report.RunID), zap.Error(err))
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, lastRunKey, data, s.ttl)
	pipe.LPush(ctx, runHistoryKey, data)
	pipe.LTrim(ctx, runHistoryKey, 0, int64(s.historySize-1))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("failed to store run report", zap.String("run_id", report.RunID), zap.Error(err))
		return err
	}

	s.log.Debug("stored run report", zap.String("run_id", report.RunID), zap.Duration("ttl", s.ttl))
	return nil
}

// Last retrieves the most recent report.
func (s *RedisReportStore) Last(ctx context.Context) (*run.Report, error) {
	data, err := s.client.Get(ctx, lastRunKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		s.log.Error("failed to get last run report", zap.Error(err))
		return nil, err
	}

	var report run.Report
	if err := json.Unmarshal(data, &report); err != nil {
		s.log.Error("failed to unmarshal run report", zap.Error(err))
		return nil, err
	}

	return &report, nil
}

// History retrieves the stored reports, newest first.
func (s *RedisReportStore) History(ctx context.Context) ([]run.Report, error) {
	items, err := s.client.LRange(ctx, runHistoryKey, 0, int64(s.historySize-1)).Result()
	if err != nil {
		s.log.Error("failed to read run history", zap.Error(err))
		return nil, err
	}

	reports := make([]run.Report, 0, len(items))
	for _, item := range items {
		var report run.Report
		if err := json.Unmarshal([]byte(item), &report); err != nil {
			s.log.Warn("skipping unreadable run report", zap.Error(err))
			continue
		}
		reports = append(reports, report)
	}

	return reports, nil
}
