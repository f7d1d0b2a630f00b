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

const schoolClassColumns = "id, name, max_students, created_at, updated_at"

// SchoolClassRepository handles persistence of school classes and their teacher teams.
type SchoolClassRepository struct {
	db *sqlx.DB
}

// NewSchoolClassRepository constructs the repository.
func NewSchoolClassRepository(db *sqlx.DB) *SchoolClassRepository {
	return &SchoolClassRepository{db: db}
}

// List returns school classes filtered by the provided criteria.
func (r *SchoolClassRepository) List(ctx context.Context, filter models.SchoolClassFilter) ([]models.SchoolClass, int, error) {
	var cond conditions
	if filter.Search != "" {
		cond.add("name ILIKE $%d", "%"+filter.Search+"%")
	}
	if filter.TeacherID != "" {
		cond.add("id IN (SELECT school_class_id FROM school_class_teachers WHERE teacher_id = $%d)", filter.TeacherID)
	}
	base := "FROM school_classes" + cond.where()

	order := orderClause(filter.SortBy, filter.SortOrder, map[string]string{
		"name":         "name",
		"max_students": "max_students",
		"created_at":   "created_at",
	}, "name", "ASC")
	size, offset := pageWindow(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s LIMIT %d OFFSET %d", schoolClassColumns, base, order, size, offset)
	var classes []models.SchoolClass
	if err := conn(ctx, r.db).SelectContext(ctx, &classes, query, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("list school classes: %w", err)
	}
	if err := r.attachTeachers(ctx, classes); err != nil {
		return nil, 0, err
	}

	var total int
	if err := conn(ctx, r.db).GetContext(ctx, &total, "SELECT COUNT(*) "+base, cond.args...); err != nil {
		return nil, 0, fmt.Errorf("count school classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a school class with its teacher ids.
func (r *SchoolClassRepository) FindByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	return r.find(ctx, "SELECT "+schoolClassColumns+" FROM school_classes WHERE id = $1", id)
}

// LockByID loads a school class and holds a row lock until the surrounding transaction ends.
func (r *SchoolClassRepository) LockByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	return r.find(ctx, "SELECT "+schoolClassColumns+" FROM school_classes WHERE id = $1 FOR UPDATE", id)
}

func (r *SchoolClassRepository) find(ctx context.Context, query, id string) (*models.SchoolClass, error) {
	var class models.SchoolClass
	if err := conn(ctx, r.db).GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	classes := []models.SchoolClass{class}
	if err := r.attachTeachers(ctx, classes); err != nil {
		return nil, err
	}
	return &classes[0], nil
}

// Create persists a new school class with its initial teachers.
func (r *SchoolClassRepository) Create(ctx context.Context, class *models.SchoolClass) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if class.CreatedAt.IsZero() {
		class.CreatedAt = now
	}
	class.UpdatedAt = now

	const query = `INSERT INTO school_classes (id, name, max_students, created_at, updated_at) VALUES (:id, :name, :max_students, :created_at, :updated_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create school class: %w", err)
	}
	for _, teacherID := range class.TeacherIDs {
		if err := r.AddTeacher(ctx, class.ID, teacherID); err != nil {
			return err
		}
	}
	return nil
}

// Update changes the name and seat ceiling of a school class.
func (r *SchoolClassRepository) Update(ctx context.Context, class *models.SchoolClass) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE school_classes SET name = :name, max_students = :max_students, updated_at = :updated_at WHERE id = :id`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update school class: %w", err)
	}
	return nil
}

// Delete removes a school class. Teacher links and registrations cascade; lessons and exams
// still pointing at the class make it fail with ErrStillReferenced.
func (r *SchoolClassRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM school_classes WHERE id = $1`, id); err != nil {
		return translateDeleteErr(err, "delete school class")
	}
	return nil
}

// AddTeacher links a teacher to a school class. Existing links are left untouched.
func (r *SchoolClassRepository) AddTeacher(ctx context.Context, classID, teacherID string) error {
	const query = `INSERT INTO school_class_teachers (school_class_id, teacher_id, assigned_at) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`
	if _, err := conn(ctx, r.db).ExecContext(ctx, query, classID, teacherID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add school class teacher: %w", err)
	}
	return nil
}

// RemoveTeacher unlinks a teacher, reporting whether a link existed.
func (r *SchoolClassRepository) RemoveTeacher(ctx context.Context, classID, teacherID string) (bool, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM school_class_teachers WHERE school_class_id = $1 AND teacher_id = $2`, classID, teacherID)
	if err != nil {
		return false, fmt.Errorf("remove school class teacher: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove school class teacher: %w", err)
	}
	return affected > 0, nil
}

func (r *SchoolClassRepository) attachTeachers(ctx context.Context, classes []models.SchoolClass) error {
	if len(classes) == 0 {
		return nil
	}
	ids := make([]string, len(classes))
	index := make(map[string]int, len(classes))
	for i := range classes {
		ids[i] = classes[i].ID
		index[classes[i].ID] = i
		classes[i].TeacherIDs = []string{}
	}

	var links []struct {
		SchoolClassID string `db:"school_class_id"`
		TeacherID     string `db:"teacher_id"`
	}
	const query = `SELECT school_class_id, teacher_id FROM school_class_teachers WHERE school_class_id = ANY($1) ORDER BY assigned_at ASC, teacher_id ASC`
	if err := conn(ctx, r.db).SelectContext(ctx, &links, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("load school class teachers: %w", err)
	}
	for _, link := range links {
		if i, ok := index[link.SchoolClassID]; ok {
			classes[i].TeacherIDs = append(classes[i].TeacherIDs, link.TeacherID)
		}
	}
	return nil
}
