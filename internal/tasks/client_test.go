package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarydesk/librarydesk/internal/config"
	"github.com/librarydesk/librarydesk/internal/entities"
	"github.com/librarydesk/librarydesk/internal/services"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Workers = 1

	client, err := NewClient(filepath.Join(t.TempDir(), "tasks.db"), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewClient(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "library-tasks.db")

	client, err := NewClient(dbPath, DefaultConfig())
	require.NoError(t, err)

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "tasks database should be created")
	assert.NoError(t, client.Close())

	_, err = NewClient("", DefaultConfig())
	assert.Error(t, err)
}

func TestClientStartStop(t *testing.T) {
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "stop should succeed gracefully")
}

type fakeDispatcher struct {
	mu    sync.Mutex
	calls []entities.DigestKind
	done  chan struct{}
	err   error
}

func (f *fakeDispatcher) record(kind entities.DigestKind) (*services.DispatchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, kind)
	n := len(f.calls)
	f.mu.Unlock()
	if n == 2 && f.done != nil {
		close(f.done)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &services.DispatchResult{Kind: kind}, nil
}

func (f *fakeDispatcher) SendOverdue(context.Context) (*services.DispatchResult, error) {
	return f.record(entities.DigestKindOverdue)
}

func (f *fakeDispatcher) SendReminders(context.Context) (*services.DispatchResult, error) {
	return f.record(entities.DigestKindDueSoon)
}

type fakePruner struct {
	retention time.Duration
}

func (f *fakePruner) DeleteOldEvents(retention time.Duration) (int64, error) {
	f.retention = retention
	return 3, nil
}

func TestEnqueueDigestsRunsBothKinds(t *testing.T) {
	client := newTestClient(t)

	dispatcher := &fakeDispatcher{done: make(chan struct{})}
	client.Register(
		NewSendDigestQueue(dispatcher),
		NewPruneAuditTrailQueue(&fakePruner{}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	require.NoError(t, client.EnqueueDigests(ctx))

	select {
	case <-dispatcher.done:
	case <-time.After(5 * time.Second):
		t.Fatal("digest tasks were not executed within timeout")
	}

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	assert.ElementsMatch(t, []entities.DigestKind{entities.DigestKindOverdue, entities.DigestKindDueSoon}, dispatcher.calls)
}

func TestSendDigestProcessor(t *testing.T) {
	ctx := context.Background()

	dispatcher := &fakeDispatcher{}
	process := SendDigestProcessor(dispatcher)
	require.NoError(t, process(ctx, SendDigestTask{Kind: entities.DigestKindOverdue}))
	assert.Error(t, process(ctx, SendDigestTask{Kind: "weekly"}))

	failing := SendDigestProcessor(&fakeDispatcher{err: errors.New("db down")})
	assert.Error(t, failing(ctx, SendDigestTask{Kind: entities.DigestKindDueSoon}))

	assert.Error(t, SendDigestProcessor(nil)(ctx, SendDigestTask{Kind: entities.DigestKindOverdue}))
}

func TestPruneAuditTrailProcessor(t *testing.T) {
	tests := []struct {
		name     string
		days     int
		wantDays int
	}{
		{"configured window", 120, 120},
		{"unset uses default", 0, 90},
		{"short window covers a lending period", 7, MinAuditRetentionDays},
		{"exactly the minimum", MinAuditRetentionDays, MinAuditRetentionDays},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pruner := &fakePruner{}
			process := PruneAuditTrailProcessor(pruner)
			require.NoError(t, process(context.Background(), PruneAuditTrailTask{RetentionDays: tt.days}))
			assert.Equal(t, time.Duration(tt.wantDays)*24*time.Hour, pruner.retention)
		})
	}

	assert.Error(t, PruneAuditTrailProcessor(nil)(context.Background(), PruneAuditTrailTask{}))
}

func TestTaskConfigs(t *testing.T) {
	var digest backlite.Task = SendDigestTask{}
	cfg := digest.Config()
	assert.Equal(t, "send_digest", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.NotNil(t, cfg.Retention)

	prune := PruneAuditTrailTask{}.Config()
	assert.Equal(t, "prune_audit_trail", prune.Name)
	assert.Equal(t, 2*time.Minute, prune.Timeout)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
	assert.Equal(t, 90, cfg.AuditRetentionDays)
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.Tasks{Workers: 4}, config.Audit{RetentionDays: 30})
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30, cfg.AuditRetentionDays)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
}
