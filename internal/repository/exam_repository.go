package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
)

const examColumns = "id, title, classroom_id, teacher_id, school_class_id, subject_id, start_time, end_time, duration_minutes, max_score, passing_score, created_at, updated_at"

// ExamRepository provides persistence for exams and their course links.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// List returns exams with optional filtering and pagination.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
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
	if filter.CourseID != "" {
		cond.add("id IN (SELECT exam_id FROM exam_courses WHERE course_id = $%d)", filter.CourseID)
	}
	if filter.From != nil {
		cond.add("end_time > $%d", *filter.From)
	}
	if filter.To != nil {
		cond.add("start_time < $%d", *filter.To)
	}
	base := "FROM exams" + cond.where()

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"start_time": "start_time",
		"title":      "title",
		"created_at": "created_at",
	}, "start_time", "ASC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", examColumns, base, order, size, offset)
	var exams []models.Exam
	if err := conn(ctx, r.db).SelectContext(ctx, &exams, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}
	if err := r.attachCourses(ctx, exams); err != nil {
		return nil, 0, err
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) "+base, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// FindByID loads an exam together with its course ids.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	query := "SELECT " + examColumns + " FROM exams WHERE id = $1"
	var exam models.Exam
	if err := conn(ctx, r.db).GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	exams := []models.Exam{exam}
	if err := r.attachCourses(ctx, exams); err != nil {
		return nil, err
	}
	return &exams[0], nil
}

// ListByClassroom returns every exam booked in a classroom regardless of date.
func (r *ExamRepository) ListByClassroom(ctx context.Context, classroomID string) ([]models.Exam, error) {
	query := "SELECT " + examColumns + " FROM exams WHERE classroom_id = $1 ORDER BY start_time ASC"
	var exams []models.Exam
	if err := conn(ctx, r.db).SelectContext(ctx, &exams, query, classroomID); err != nil {
		return nil, fmt.Errorf("list exams by classroom: %w", err)
	}
	return exams, nil
}

// Create stores a new exam and its course links.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if exam.CreatedAt.IsZero() {
		exam.CreatedAt = now
	}
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (id, title, classroom_id, teacher_id, school_class_id, subject_id, start_time, end_time, duration_minutes, max_score, passing_score, created_at, updated_at) VALUES (:id, :title, :classroom_id, :teacher_id, :school_class_id, :subject_id, :start_time, :end_time, :duration_minutes, :max_score, :passing_score, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, exam); err != nil {
		return translateBookingErr(err, "create exam")
	}
	return r.insertCourses(ctx, exam.ID, exam.CourseIDs)
}

// Update modifies an exam and replaces its course links.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	exam.UpdatedAt = time.Now().UTC()
	const query = `UPDATE exams SET title = :title, classroom_id = :classroom_id, teacher_id = :teacher_id, school_class_id = :school_class_id, subject_id = :subject_id, start_time = :start_time, end_time = :end_time, duration_minutes = :duration_minutes, max_score = :max_score, passing_score = :passing_score, updated_at = :updated_at WHERE id = :id`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, exam); err != nil {
		return translateBookingErr(err, "update exam")
	}
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM exam_courses WHERE exam_id = $1`, exam.ID); err != nil {
		return fmt.Errorf("clear exam courses: %w", err)
	}
	return r.insertCourses(ctx, exam.ID, exam.CourseIDs)
}

// Delete removes an exam by id. Course links cascade.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	return nil
}

func (r *ExamRepository) insertCourses(ctx context.Context, examID string, courseIDs []string) error {
	for _, courseID := range courseIDs {
		if _, err := conn(ctx, r.db).ExecContext(ctx, `INSERT INTO exam_courses (exam_id, course_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, examID, courseID); err != nil {
			return fmt.Errorf("link exam course: %w", err)
		}
	}
	return nil
}

func (r *ExamRepository) attachCourses(ctx context.Context, exams []models.Exam) error {
	if len(exams) == 0 {
		return nil
	}
	ids := make([]string, len(exams))
	index := make(map[string]int, len(exams))
	for i := range exams {
		ids[i] = exams[i].ID
		index[exams[i].ID] = i
		exams[i].CourseIDs = []string{}
	}

	var links []struct {
		ExamID   string `db:"exam_id"`
		CourseID string `db:"course_id"`
	}
	const query = `SELECT exam_id, course_id FROM exam_courses WHERE exam_id = ANY($1) ORDER BY course_id ASC`
	if err := conn(ctx, r.db).SelectContext(ctx, &links, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load exam courses: %w", err)
	}
	for _, link := range links {
		if i, ok := index[link.ExamID]; ok {
			exams[i].CourseIDs = append(exams[i].CourseIDs, link.CourseID)
		}
	}
	return nil
}
