package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/pkg/jobs"
)

type memoryAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (m *memoryAudit) Create(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryAudit) snapshot() []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.AuditLog(nil), m.entries...)
}

func TestAuditServiceRecordsWithActor(t *testing.T) {
	repo := &memoryAudit{}
	audit := NewAuditService(repo, jobs.QueueConfig{Workers: 1, BufferSize: 8}, nil, nil)
	audit.Start(context.Background())

	ctx := ContextWithActor(context.Background(), "admin-1")
	audit.Record(ctx, models.AuditActionCreate, "classroom", "room-1", map[string]int{"capacity": 30})
	audit.Stop()

	entries := repo.snapshot()
	require.Len(t, entries, 1)
	assert.Equal(t, "classroom", entries[0].Resource)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, "admin-1", *entries[0].UserID)
	assert.JSONEq(t, `{"capacity":30}`, string(entries[0].Payload))
}

func TestAuditServiceDropsWhenNotRunning(t *testing.T) {
	metrics := NewMetricsService()
	repo := &memoryAudit{}
	audit := NewAuditService(repo, jobs.QueueConfig{Workers: 1}, metrics, nil)

	audit.Record(context.Background(), models.AuditActionDelete, "exam", "exam-1", nil)
	assert.Empty(t, repo.snapshot())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.auditDropped))
}

func TestAuditServiceCountsPersistenceFailures(t *testing.T) {
	metrics := NewMetricsService()
	repo := &memoryAudit{err: errors.New("insert failed")}
	audit := NewAuditService(repo, jobs.QueueConfig{Workers: 1, MaxRetries: 0, RetryDelay: time.Millisecond}, metrics, nil)
	audit.Start(context.Background())

	audit.Record(context.Background(), models.AuditActionUpdate, "lesson", "lesson-1", nil)
	audit.Stop()
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.auditDropped))
}

func TestActorFromContext(t *testing.T) {
	_, ok := ActorFromContext(context.Background())
	assert.False(t, ok)
	_, ok = ActorFromContext(ContextWithActor(context.Background(), ""))
	assert.False(t, ok)

	id, ok := ActorFromContext(ContextWithActor(context.Background(), "u-1"))
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)

	var nilAudit *AuditService
	nilAudit.Record(context.Background(), "CREATE", "x", "1", nil)
}
