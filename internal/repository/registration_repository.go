package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

const registrationColumns = "id, student_id, school_class_id, status, registered_at, notes, updated_at"

// RegistrationRepository handles persistence of registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// List returns registrations filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	var cond conditions
	if filter.StudentID != "" {
		cond.add("student_id = $%d", filter.StudentID)
	}
	if filter.SchoolClassID != "" {
		cond.add("school_class_id = $%d", filter.SchoolClassID)
	}
	if filter.Status != "" {
		cond.add("status = $%d", filter.Status)
	}
	base := "FROM registrations" + cond.where()

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"registered_at": "registered_at",
		"status":        "status",
	}, "registered_at", "DESC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", registrationColumns, base, order, size, offset)
	var registrations []models.Registration
	if err := conn(ctx, r.db).SelectContext(ctx, &registrations, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) "+base, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := "SELECT " + registrationColumns + " FROM registrations WHERE id = $1"
	var registration models.Registration
	if err := conn(ctx, r.db).GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// ExistsActive checks if an active registration exists for the student and class.
func (r *RegistrationRepository) ExistsActive(ctx context.Context, studentID, classID, excludeID string) (bool, error) {
	var cond conditions
	cond.add("student_id = $%d", studentID)
	cond.add("school_class_id = $%d", classID)
	cond.add("status = $%d", models.RegistrationStatusActive)
	if excludeID != "" {
		cond.add("id <> $%d", excludeID)
	}
	query := "SELECT 1 FROM registrations" + cond.where() + " LIMIT 1"
	var exists int
	if err := conn(ctx, r.db).GetContext(ctx, &exists, query, cond.args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active registration: %w", err)
	}
	return true, nil
}

// CountActiveByClass returns the roster size of a school class.
func (r *RegistrationRepository) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE school_class_id = $1 AND status = $2`
	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, query, classID, models.RegistrationStatusActive); err != nil {
		return 0, fmt.Errorf("count active registrations: %w", err)
	}
	return total, nil
}

// Create persists a new registration record.
func (r *RegistrationRepository) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if registration.RegisteredAt.IsZero() {
		registration.RegisteredAt = now
	}
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusActive
	}
	registration.UpdatedAt = now

	const query = `INSERT INTO registrations (id, student_id, school_class_id, status, registered_at, notes, updated_at)
        VALUES (:id, :student_id, :school_class_id, :status, :registered_at, :notes, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, registration); err != nil {
		return translateRegistrationErr(err, "create registration")
	}
	return nil
}

// UpdateStatus changes the status of a registration.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return translateRegistrationErr(err, "update registration status")
	}
	return nil
}

// Delete removes a registration by id.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	return nil
}
