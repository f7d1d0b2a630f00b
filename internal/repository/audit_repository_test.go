package repository

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

func TestAuditRepositoryCreateStampsEntry(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	actor := "u-admin"
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs (id, user_id, action, resource, resource_id, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		WithArgs(sqlmock.AnyArg(), actor, models.AuditActionCreate, "lesson", "l-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := &models.AuditLog{
		UserID:     &actor,
		Action:     models.AuditActionCreate,
		Resource:   "lesson",
		ResourceID: "l-1",
		Payload:    json.RawMessage(`{"classroom_id":"room-1"}`),
	}
	require.NoError(t, NewAuditRepository(db).Create(context.Background(), entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditRepositoryCreateWrapsFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()

	boom := errors.New("disk full")
	mock.ExpectExec("INSERT INTO audit_logs").WillReturnError(boom)

	err := NewAuditRepository(db).Create(context.Background(), &models.AuditLog{Action: models.AuditActionDelete, Resource: "exam", ResourceID: "e-1"})
	assert.ErrorIs(t, err, boom)
}
