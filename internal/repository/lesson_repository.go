package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

const lessonColumns = "id, classroom_id, teacher_id, school_class_id, subject_id, start_time, end_time, topic, created_at, updated_at"

// LessonRepository provides persistence for lessons.
type LessonRepository struct {
	db *sqlx.DB
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(db *sqlx.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

// List returns lessons with optional filtering and pagination.
func (r *LessonRepository) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	var cond conditions
	if filter.ClassroomID != "" {
		cond.add("classroom_id = $%d", filter.ClassroomID)
	}
	if filter.TeacherID != "" {
		cond.add("teacher_id = $%d", filter.TeacherID)
	}
	if filter.SchoolClassID != "" {
		cond.add("school_class_id = $%d", filter.SchoolClassID)
	}
	if filter.SubjectID != "" {
		cond.add("subject_id = $%d", filter.SubjectID)
	}
	if filter.From != nil {
		cond.add("end_time > $%d", *filter.From)
	}
	if filter.To != nil {
		cond.add("start_time < $%d", *filter.To)
	}
	base := "FROM lessons" + cond.where()

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"start_time": "start_time",
		"end_time":   "end_time",
		"created_at": "created_at",
	}, "start_time", "ASC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", lessonColumns, base, order, size, offset)
	var lessons []models.Lesson
	if err := conn(ctx, r.db).SelectContext(ctx, &lessons, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) "+base, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}
	return lessons, total, nil
}

// FindByID loads a lesson by id.
func (r *LessonRepository) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE id = $1"
	var lesson models.Lesson
	if err := conn(ctx, r.db).GetContext(ctx, &lesson, query, id); err != nil {
		return nil, err
	}
	return &lesson, nil
}

// ListByClassroom returns every lesson booked in a classroom regardless of date.
func (r *LessonRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.Lesson, error) {
	query := "SELECT " + lessonColumns + " FROM lessons WHERE classroom_id = $1 ORDER BY start_time ASC"
	var lessons []models.Lesson
	if err := conn(ctx, r.db).SelectContext(ctx, &lessons, query, classroomID); err != nil {
		return nil, fmt.Errorf("list lessons by classroom: %w", err)
	}
	return lessons, nil
}

// Create stores a new lesson record.
func (r *LessonRepository) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = now
	}
	lesson.UpdatedAt = now

	const query = `INSERT INTO lessons (id, classroom_id, teacher_id, school_class_id, subject_id, start_time, end_time, topic, created_at, updated_at) VALUES (:id, :classroom_id, :teacher_id, :school_class_id, :subject_id, :start_time, :end_time, :topic, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, lesson); err != nil {
		return translateBookingErr(err, "create lesson")
	}
	return nil
}

// Update modifies a lesson record.
func (r *LessonRepository) Update(ctx context.Context, lesson *models.Lesson) error {
	lesson.UpdatedAt = time.Now().UTC()
	const query = `UPDATE lessons SET classroom_id = :classroom_id, teacher_id = :teacher_id, school_class_id = :school_class_id, subject_id = :subject_id, start_time = :start_time, end_time = :end_time, topic = :topic, updated_at = :updated_at WHERE id = :id`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, lesson); err != nil {
		return translateBookingErr(err, "update lesson")
	}
	return nil
}

// Delete removes a lesson by id.
func (r *LessonRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lesson: %w", err)
	}
	return nil
}
