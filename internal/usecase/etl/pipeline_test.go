package etl

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-etl/internal/domain/run"
	apperrors "user-etl/pkg/errors"
)

func newTestPipeline(t *testing.T, f Faker, connect ConnectFunc, n int) (*Pipeline, Options) {
	log := zaptest.NewLogger(t)
	dir := t.TempDir()
	opts := Options{
		NumRecords:      n,
		RawFile:         filepath.Join(dir, "fake_data.csv"),
		TransformedFile: filepath.Join(dir, "transformed_users_data.csv"),
	}
	p := NewPipeline(
		newTestGenerator(f, log),
		NewTransformer(log),
		NewLoader(connect, 500, log),
		opts,
		log,
	)
	return p, opts
}

func statuses(r *run.Report) []run.Status {
	out := make([]run.Status, len(r.Stages))
	for i, s := range r.Stages {
		out[i] = s.Status
	}
	return out
}

func TestPipeline_Run_DropsInvalidEmails(t *testing.T) {
	store := newSQLiteStore(t, zaptest.NewLogger(t))
	faker := &stubFaker{emails: []string{"one@example.com", "not-an-email", "three@test.org"}}
	p, _ := newTestPipeline(t, faker, store.Connect, 3)

	report := p.Run(context.Background())

	require.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []run.Status{run.StatusSucceeded, run.StatusSucceeded, run.StatusSucceeded}, statuses(report))

	tr, ok := report.Stage(run.StageTransform)
	require.True(t, ok)
	assert.Equal(t, 2, tr.Rows)
	assert.Equal(t, 1, tr.Dropped)

	rows := store.rows(t)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0].UserID)
	assert.Equal(t, "one@example.com", rows[0].Email)
	assert.Equal(t, int64(2), rows[1].UserID)
	assert.Equal(t, "three@test.org", rows[1].Email)
	assert.Equal(t, "User 3", rows[1].Name)
}

func TestPipeline_Run_RepeatedRunsRestartKeys(t *testing.T) {
	store := newSQLiteStore(t, zaptest.NewLogger(t))
	p, _ := newTestPipeline(t, &stubFaker{emails: []string{"x@example.com"}}, store.Connect, 4)
	ctx := context.Background()

	first := p.Run(ctx)
	second := p.Run(ctx)

	require.True(t, first.Succeeded())
	require.True(t, second.Succeeded())
	assert.NotEqual(t, first.RunID, second.RunID)

	rows := store.rows(t)
	require.Len(t, rows, 4)
	assert.Equal(t, int64(1), rows[0].UserID)
	assert.Equal(t, int64(4), rows[3].UserID)
}

func TestPipeline_Run_ZeroRecords(t *testing.T) {
	store := newSQLiteStore(t, zaptest.NewLogger(t))
	p, _ := newTestPipeline(t, &stubFaker{emails: []string{"x@example.com"}}, store.Connect, 0)

	report := p.Run(context.Background())

	require.True(t, report.Succeeded())
	assert.Empty(t, store.rows(t))
}

func TestPipeline_Run_GenerateFailureSkipsLaterStages(t *testing.T) {
	store := newSQLiteStore(t, zaptest.NewLogger(t))
	p, _ := newTestPipeline(t, &stubFaker{emails: []string{"x@example.com"}}, store.Connect, 2)
	p.opts.RawFile = filepath.Join(t.TempDir(), "missing", "fake_data.csv")

	report := p.Run(context.Background())

	assert.False(t, report.Succeeded())
	assert.Equal(t, []run.Status{run.StatusFailed, run.StatusSkipped, run.StatusSkipped}, statuses(report))

	f, ok := report.FirstFailure()
	require.True(t, ok)
	assert.Equal(t, run.StageGenerate, f.Stage)
	assert.Equal(t, apperrors.KindIO, f.Kind)
	assert.Zero(t, store.opened)
}

func TestPipeline_Run_LoadFailureIsRecorded(t *testing.T) {
	p, opts := newTestPipeline(t, &stubFaker{emails: []string{"x@example.com"}}, failingConnect, 2)

	report := p.Run(context.Background())

	assert.False(t, report.Succeeded())
	assert.Equal(t, []run.Status{run.StatusSucceeded, run.StatusSucceeded, run.StatusFailed}, statuses(report))

	load, ok := report.Stage(run.StageLoad)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindConnection, load.Kind)
	assert.NotEmpty(t, load.Message)
	assert.FileExists(t, opts.TransformedFile)
}

func TestPipeline_Run_RecoversPanic(t *testing.T) {
	store := newSQLiteStore(t, zaptest.NewLogger(t))
	p, _ := newTestPipeline(t, &stubFaker{emails: []string{"x@example.com"}, panics: true}, store.Connect, 1)

	report := p.Run(context.Background())

	f, ok := report.FirstFailure()
	require.True(t, ok)
	assert.Equal(t, run.StageGenerate, f.Stage)
	assert.Equal(t, apperrors.KindUnexpected, f.Kind)
	assert.Len(t, report.Stages, 3)
}

func TestPipeline_Run_CanceledContext(t *testing.T) {
	store := newSQLiteStore(t, zaptest.NewLogger(t))
	p, _ := newTestPipeline(t, &stubFaker{emails: []string{"x@example.com"}}, store.Connect, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := p.Run(ctx)

	assert.Equal(t, []run.Status{run.StatusFailed, run.StatusSkipped, run.StatusSkipped}, statuses(report))
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
	assert.WithinDuration(t, time.Now(), report.FinishedAt, time.Minute)
}
