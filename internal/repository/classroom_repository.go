package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

const classroomColumns = "id, name, building, capacity, created_at, updated_at"

// ClassroomRepository provides persistence for classrooms.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// List returns classrooms with optional filtering and pagination.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	var cond conditions
	if filter.Search != "" {
		cond.add("name ILIKE $%d", "%"+filter.Search+"%")
	}
	if filter.MinCapacity > 0 {
		cond.add("capacity >= $%d", filter.MinCapacity)
	}
	base := "FROM classrooms" + cond.where()

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"name":       "name",
		"capacity":   "capacity",
		"created_at": "created_at",
	}, "name", "ASC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", classroomColumns, base, order, size, offset)
	var classrooms []models.Classroom
	if err := conn(ctx, r.db).SelectContext(ctx, &classrooms, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) "+base, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}
	return classrooms, total, nil
}

// ListAll returns every classroom ordered by name.
func (r *ClassroomRepository) ListAll(ctx context.Context) ([]models.Classroom, error) {
	query := "SELECT " + classroomColumns + " FROM classrooms ORDER BY name ASC"
	var classrooms []models.Classroom
	if err := conn(ctx, r.db).SelectContext(ctx, &classrooms, query); err != nil {
		return nil, fmt.Errorf("list all classrooms: %w", err)
	}
	return classrooms, nil
}

// FindByID loads a classroom by id.
func (r *ClassroomRepository) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := "SELECT " + classroomColumns + " FROM classrooms WHERE id = $1"
	var classroom models.Classroom
	if err := conn(ctx, r.db).GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// LockByID loads a classroom and holds a row lock until the surrounding transaction ends.
func (r *ClassroomRepository) LockByID(ctx context.Context, id string) (*models.Classroom, error) {
	query := "SELECT " + classroomColumns + " FROM classrooms WHERE id = $1 FOR UPDATE"
	var classroom models.Classroom
	if err := conn(ctx, r.db).GetContext(ctx, &classroom, query, id); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// Create stores a new classroom record.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if classroom.CreatedAt.IsZero() {
		classroom.CreatedAt = now
	}
	classroom.UpdatedAt = now

	const query = `INSERT INTO classrooms (id, name, building, capacity, created_at, updated_at) VALUES (:id, :name, :building, :capacity, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("create classroom: %w", err)
	}
	return nil
}

// Update modifies a classroom record.
func (r *ClassroomRepository) Update(ctx context.Context, classroom *models.Classroom) error {
	classroom.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET name = :name, building = :building, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Delete removes a classroom by id.
func (r *ClassroomRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM classrooms WHERE id = $1`, id); err != nil {
		return translateDeleteErr(err, "delete classroom")
	}
	return nil
}
