package scheduler

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Dan9191/finance-service/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJobs struct {
	materialized atomic.Int32
	swept        atomic.Int32
	reminded     atomic.Int32
	sweepErr     error
}

func (j *countingJobs) MaterializeDue(context.Context) (int, error) {
	j.materialized.Add(1)
	return 4, nil
}

func (j *countingJobs) SweepPastDue(context.Context) (int, error) {
	j.swept.Add(1)
	return 0, j.sweepErr
}

func (j *countingJobs) SendCartReminders(context.Context) (int, error) {
	j.reminded.Add(1)
	return 1, nil
}

func testConfig() *config.Config {
	return &config.Config{
		CronScheduledTx:  "@every 1h",
		CronPastDue:      "0 3 * * *",
		CronCartReminder: "*/30 * * * *",
	}
}

func newLogger(buf *bytes.Buffer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	return log
}

func TestNew_RegistersJobs(t *testing.T) {
	var buf bytes.Buffer
	s, err := New(&countingJobs{}, testConfig(), newLogger(&buf))
	require.NoError(t, err)
	assert.Len(t, s.cron.Entries(), 3)

	s.Start()
	ctx := s.Stop()
	<-ctx.Done()
}

func TestNew_InvalidSchedule(t *testing.T) {
	var buf bytes.Buffer
	cfg := testConfig()
	cfg.CronPastDue = "every night"

	_, err := New(&countingJobs{}, cfg, newLogger(&buf))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription-past-due")
}

func TestRun_LogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	jobs := &countingJobs{sweepErr: errors.New("db down")}
	s, err := New(jobs, testConfig(), newLogger(&buf))
	require.NoError(t, err)

	s.run("scheduled-transactions", jobs.MaterializeDue)()
	assert.EqualValues(t, 1, jobs.materialized.Load())
	assert.Contains(t, buf.String(), `"processed":4`)

	buf.Reset()
	s.run("subscription-past-due", jobs.SweepPastDue)()
	assert.EqualValues(t, 1, jobs.swept.Load())
	assert.Contains(t, buf.String(), "Job subscription-past-due failed: db down")
}
