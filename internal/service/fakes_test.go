package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/noah-isme/sma-scheduling-api/internal/models"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
)

// fakeStore is an in-memory stand-in for the Postgres schema shared by all fakes.
type fakeStore struct {
	users         map[string]models.User
	subjects      map[string]models.Subject
	courses       map[string]models.Course
	classrooms    map[string]models.Classroom
	lessons       map[string]models.Lesson
	exams         map[string]models.Exam
	classes       map[string]models.SchoolClass
	registrations map[string]models.Registration

	classroomLocks []string
	classLocks     []string
	seq            int
	failWith       error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]models.User{},
		subjects:      map[string]models.Subject{},
		courses:       map[string]models.Course{},
		classrooms:    map[string]models.Classroom{},
		lessons:       map[string]models.Lesson{},
		exams:         map[string]models.Exam{},
		classes:       map[string]models.SchoolClass{},
		registrations: map[string]models.Registration{},
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

type fakeUsers struct{ *fakeStore }

func (f fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &user, nil
}

type fakeSubjects struct{ *fakeStore }

func (f fakeSubjects) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	subject, ok := f.subjects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &subject, nil
}

type fakeCourses struct{ *fakeStore }

func (f fakeCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := f.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &course, nil
}

type fakeClassrooms struct{ *fakeStore }

func (f fakeClassrooms) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	all, _ := f.ListAll(ctx)
	return all, len(all), nil
}

func (f fakeClassrooms) ListAll(ctx context.Context) ([]models.Classroom, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]models.Classroom, 0, len(f.classrooms))
	for _, classroom := range f.classrooms {
		out = append(out, classroom)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f fakeClassrooms) FindByID(ctx context.Context, id string) (*models.Classroom, error) {
	classroom, ok := f.classrooms[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &classroom, nil
}

func (f fakeClassrooms) LockByID(ctx context.Context, id string) (*models.Classroom, error) {
	f.fakeStore.classroomLocks = append(f.fakeStore.classroomLocks, id)
	return f.FindByID(ctx, id)
}

func (f fakeClassrooms) Create(ctx context.Context, classroom *models.Classroom) error {
	if classroom.ID == "" {
		classroom.ID = f.nextID("room")
	}
	f.classrooms[classroom.ID] = *classroom
	return nil
}

func (f fakeClassrooms) Update(ctx context.Context, classroom *models.Classroom) error {
	f.classrooms[classroom.ID] = *classroom
	return nil
}

func (f fakeClassrooms) Delete(ctx context.Context, id string) error {
	for _, lesson := range f.lessons {
		if lesson.ClassroomID == id {
			return fmt.Errorf("delete classroom: %w", repository.ErrStillReferenced)
		}
	}
	delete(f.classrooms, id)
	return nil
}

type fakeLessons struct{ *fakeStore }

func (f fakeLessons) List(ctx context.Context, filter models.LessonFilter) ([]models.Lesson, int, error) {
	out := []models.Lesson{}
	for _, lesson := range f.lessons {
		if filter.ClassroomID == "" || filter.ClassroomID == lesson.ClassroomID {
			out = append(out, lesson)
		}
	}
	return out, len(out), nil
}

func (f fakeLessons) FindByID(ctx context.Context, id string) (*models.Lesson, error) {
	lesson, ok := f.lessons[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &lesson, nil
}

func (f fakeLessons) ListByClassroom(ctx context.Context, classroomID string) ([]models.Lesson, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := []models.Lesson{}
	for _, lesson := range f.lessons {
		if lesson.ClassroomID == classroomID {
			out = append(out, lesson)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (f fakeLessons) Create(ctx context.Context, lesson *models.Lesson) error {
	if lesson.ID == "" {
		lesson.ID = f.nextID("lesson")
	}
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f fakeLessons) Update(ctx context.Context, lesson *models.Lesson) error {
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f fakeLessons) Delete(ctx context.Context, id string) error {
	delete(f.lessons, id)
	return nil
}

type fakeExams struct{ *fakeStore }

func (f fakeExams) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	out := []models.Exam{}
	for _, exam := range f.exams {
		out = append(out, exam)
	}
	return out, len(out), nil
}

func (f fakeExams) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	exam, ok := f.exams[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &exam, nil
}

func (f fakeExams) ListByClassroom(ctx context.Context, classroomID string) ([]models.Exam, error) {
	out := []models.Exam{}
	for _, exam := range f.exams {
		if exam.ClassroomID == classroomID {
			out = append(out, exam)
		}
	}
	return out, nil
}

func (f fakeExams) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = f.nextID("exam")
	}
	f.exams[exam.ID] = *exam
	return nil
}

func (f fakeExams) Update(ctx context.Context, exam *models.Exam) error {
	f.exams[exam.ID] = *exam
	return nil
}

func (f fakeExams) Delete(ctx context.Context, id string) error {
	delete(f.exams, id)
	return nil
}

type fakeClasses struct{ *fakeStore }

func (f fakeClasses) List(ctx context.Context, filter models.SchoolClassFilter) ([]models.SchoolClass, int, error) {
	out := []models.SchoolClass{}
	for _, class := range f.classes {
		out = append(out, class)
	}
	return out, len(out), nil
}

func (f fakeClasses) FindByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	class.TeacherIDs = append([]string(nil), class.TeacherIDs...)
	return &class, nil
}

func (f fakeClasses) LockByID(ctx context.Context, id string) (*models.SchoolClass, error) {
	f.fakeStore.classLocks = append(f.fakeStore.classLocks, id)
	return f.FindByID(ctx, id)
}

func (f fakeClasses) Create(ctx context.Context, class *models.SchoolClass) error {
	if class.ID == "" {
		class.ID = f.nextID("class")
	}
	stored := *class
	stored.TeacherIDs = append([]string(nil), class.TeacherIDs...)
	f.classes[class.ID] = stored
	return nil
}

func (f fakeClasses) Update(ctx context.Context, class *models.SchoolClass) error {
	stored := f.classes[class.ID]
	stored.Name = class.Name
	stored.MaxStudents = class.MaxStudents
	f.classes[class.ID] = stored
	return nil
}

func (f fakeClasses) Delete(ctx context.Context, id string) error {
	for _, lesson := range f.lessons {
		if lesson.SchoolClassID == id {
			return fmt.Errorf("delete school class: %w", repository.ErrStillReferenced)
		}
	}
	for _, exam := range f.exams {
		if exam.SchoolClassID == id {
			return fmt.Errorf("delete school class: %w", repository.ErrStillReferenced)
		}
	}
	delete(f.classes, id)
	return nil
}

func (f fakeClasses) AddTeacher(ctx context.Context, classID, teacherID string) error {
	class := f.classes[classID]
	if !contains(class.TeacherIDs, teacherID) {
		class.TeacherIDs = append(class.TeacherIDs, teacherID)
	}
	f.classes[classID] = class
	return nil
}

func (f fakeClasses) RemoveTeacher(ctx context.Context, classID, teacherID string) (bool, error) {
	class := f.classes[classID]
	if !contains(class.TeacherIDs, teacherID) {
		return false, nil
	}
	class.TeacherIDs = without(class.TeacherIDs, teacherID)
	f.classes[classID] = class
	return true, nil
}

type fakeRegistrations struct{ *fakeStore }

func (f fakeRegistrations) List(ctx context.Context, filter models.RegistrationFilter) ([]models.Registration, int, error) {
	out := []models.Registration{}
	for _, registration := range f.registrations {
		if filter.SchoolClassID == "" || filter.SchoolClassID == registration.SchoolClassID {
			out = append(out, registration)
		}
	}
	return out, len(out), nil
}

func (f fakeRegistrations) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	registration, ok := f.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &registration, nil
}

func (f fakeRegistrations) ExistsActive(ctx context.Context, studentID, classID, excludeID string) (bool, error) {
	for id, registration := range f.registrations {
		if id == excludeID {
			continue
		}
		if registration.StudentID == studentID && registration.SchoolClassID == classID && registration.Status == models.RegistrationStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (f fakeRegistrations) CountActiveByClass(ctx context.Context, classID string) (int, error) {
	count := 0
	for _, registration := range f.registrations {
		if registration.SchoolClassID == classID && registration.Status == models.RegistrationStatusActive {
			count++
		}
	}
	return count, nil
}

func (f fakeRegistrations) Create(ctx context.Context, registration *models.Registration) error {
	if registration.ID == "" {
		registration.ID = f.nextID("reg")
	}
	f.registrations[registration.ID] = *registration
	return nil
}

func (f fakeRegistrations) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	registration := f.registrations[id]
	registration.Status = status
	f.registrations[id] = registration
	return nil
}

func (f fakeRegistrations) Delete(ctx context.Context, id string) error {
	delete(f.registrations, id)
	return nil
}

type recordingTx struct {
	calls int
}

func (r *recordingTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

// testEnv wires every service over one fake store.
type testEnv struct {
	store         *fakeStore
	tx            *recordingTx
	metrics       *MetricsService
	availability  *AvailabilityService
	capacity      *CapacityService
	pipeline      *SchedulingPipeline
	lessons       *LessonService
	exams         *ExamService
	classes       *SchoolClassService
	registrations *RegistrationService
	classrooms    *ClassroomService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newFakeStore()
	tx := &recordingTx{}
	metrics := NewMetricsService()

	availability := NewAvailabilityService(fakeClassrooms{store}, fakeLessons{store}, fakeExams{store}, nil, 0, nil)
	capacity := NewCapacityService(fakeClassrooms{store}, fakeClasses{store}, fakeRegistrations{store}, nil)
	pipeline := NewSchedulingPipeline(fakeUsers{store}, fakeClassrooms{store}, fakeClasses{store}, fakeSubjects{store}, fakeRegistrations{store}, capacity, availability, metrics, nil)
	classes := NewSchoolClassService(fakeClasses{store}, fakeRegistrations{store}, fakeUsers{store}, tx, nil, 0, nil, nil, nil)

	return &testEnv{
		store:         store,
		tx:            tx,
		metrics:       metrics,
		availability:  availability,
		capacity:      capacity,
		pipeline:      pipeline,
		lessons:       NewLessonService(fakeLessons{store}, fakeClassrooms{store}, pipeline, tx, nil, nil, metrics, nil, nil),
		exams:         NewExamService(fakeExams{store}, fakeCourses{store}, fakeClassrooms{store}, pipeline, tx, nil, nil, metrics, nil, nil),
		classes:       classes,
		registrations: NewRegistrationService(fakeRegistrations{store}, fakeClasses{store}, classes, fakeUsers{store}, tx, nil, nil, metrics, nil, nil),
		classrooms:    NewClassroomService(fakeClassrooms{store}, availability, tx, nil, nil, nil, nil),
	}
}

func (e *testEnv) addUser(id string, role models.UserRole) {
	e.store.users[id] = models.User{ID: id, Role: role, Active: true, FullName: id}
}

func (e *testEnv) addClassroom(id string, capacity int) {
	e.store.classrooms[id] = models.Classroom{ID: id, Name: id, Capacity: capacity}
}

func (e *testEnv) addSubject(id string) {
	e.store.subjects[id] = models.Subject{ID: id, Code: id, Name: id}
}

func (e *testEnv) addClass(id string, maxStudents int, teacherIDs ...string) {
	e.store.classes[id] = models.SchoolClass{ID: id, Name: id, MaxStudents: maxStudents, TeacherIDs: teacherIDs}
}

func (e *testEnv) addRegistration(id, studentID, classID string, status models.RegistrationStatus) {
	e.store.registrations[id] = models.Registration{ID: id, StudentID: studentID, SchoolClassID: classID, Status: status, RegisteredAt: time.Now().UTC()}
}

func (e *testEnv) addRoster(classID string, size int) {
	for i := 0; i < size; i++ {
		id := fmt.Sprintf("%s-student-%d", classID, i)
		e.addRegistration("reg-"+id, id, classID, models.RegistrationStatusActive)
	}
}

func (e *testEnv) addLesson(id, classroomID string, slot models.TimeSlot) {
	e.store.lessons[id] = models.Lesson{ID: id, ClassroomID: classroomID, TeacherID: "teacher-1", SchoolClassID: "class-1", SubjectID: "subject-1", TimeSlot: slot}
}

func (e *testEnv) addExam(id, classroomID string, slot models.TimeSlot) {
	e.store.exams[id] = models.Exam{ID: id, ClassroomID: classroomID, TeacherID: "teacher-1", SchoolClassID: "class-1", SubjectID: "subject-1", TimeSlot: slot, DurationMinutes: 60, MaxScore: 100, PassingScore: 60}
}

// seedSchool creates teacher-1, subject-1, room-1 (capacity 30) and class-1 (max 30) with a roster of 25.
func (e *testEnv) seedSchool() {
	e.addUser("teacher-1", models.RoleTeacher)
	e.addSubject("subject-1")
	e.addClassroom("room-1", 30)
	e.addClass("class-1", 30, "teacher-1")
	e.addRoster("class-1", 25)
}

var day = time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func slot(startHour, endHour int) models.TimeSlot {
	return models.TimeSlot{Start: at(startHour, 0), End: at(endHour, 0)}
}

func lessonRequest(classroomID string, startHour, endHour int) CreateLessonRequest {
	return CreateLessonRequest{
		ClassroomID:   classroomID,
		TeacherID:     "teacher-1",
		SchoolClassID: "class-1",
		SubjectID:     "subject-1",
		StartTime:     at(startHour, 0),
		EndTime:       at(endHour, 0),
	}
}
