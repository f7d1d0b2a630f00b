package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Scheduling API",
        "description": "Classroom scheduling validation and enrollment capacity management",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Classrooms", "description": "Rooms, capacity and free-slot search"},
        {"name": "Lessons", "description": "Lesson bookings validated against the classroom timeline"},
        {"name": "Exams", "description": "Exam bookings sharing the lesson timeline"},
        {"name": "SchoolClasses", "description": "Class rosters, teacher teams and seats"},
        {"name": "Registrations", "description": "Student enrollment lifecycle"}
    ],
    "paths": {
        "/classrooms": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "List classrooms",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "min_capacity", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Classrooms"],
                "summary": "Create classroom",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassroomRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload or capacity", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/classrooms/available": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "List classrooms free for a time slot",
                "parameters": [
                    {"name": "start", "in": "query", "type": "string", "format": "date-time", "required": true},
                    {"name": "end", "in": "query", "type": "string", "format": "date-time", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/classrooms/{id}": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Get classroom",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "ENTITY_NOT_FOUND"}}
            },
            "put": {
                "tags": ["Classrooms"],
                "summary": "Update classroom",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ClassroomRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Classrooms"],
                "summary": "Delete classroom",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "responses": {"204": {"description": "Deleted"}, "409": {"description": "Classroom still has bookings"}}
            }
        },
        "/classrooms/{id}/availability": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Check one classroom for a time slot",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "start", "in": "query", "type": "string", "format": "date-time", "required": true},
                    {"name": "end", "in": "query", "type": "string", "format": "date-time", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/AvailabilityReport"}}}
            }
        },
        "/classrooms/{id}/capacity": {
            "get": {
                "tags": ["Classrooms"],
                "summary": "Check whether a classroom seats a head count",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "required", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "INVALID_CAPACITY_REQUIREMENT"}}
            }
        },
        "/lessons": {
            "get": {
                "tags": ["Lessons"],
                "summary": "List lessons",
                "parameters": [
                    {"name": "classroom_id", "in": "query", "type": "string"},
                    {"name": "teacher_id", "in": "query", "type": "string"},
                    {"name": "school_class_id", "in": "query", "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date-time"},
                    {"name": "to", "in": "query", "type": "string", "format": "date-time"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Lessons"],
                "summary": "Schedule lesson",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLessonRequest"}}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "VALIDATION_ERROR or INVALID_TIME_RANGE"},
                    "404": {"description": "ENTITY_NOT_FOUND"},
                    "409": {"description": "CLASSROOM_NOT_AVAILABLE or CLASSROOM_CAPACITY_EXCEEDED"},
                    "422": {"description": "INVALID_TEACHER"}
                }
            }
        },
        "/lessons/{id}": {
            "get": {"tags": ["Lessons"], "summary": "Get lesson", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Lessons"], "summary": "Reschedule lesson", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}},
            "delete": {"tags": ["Lessons"], "summary": "Delete lesson", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/exams": {
            "get": {"tags": ["Exams"], "summary": "List exams", "parameters": [{"name": "course_id", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["Exams"],
                "summary": "Schedule exam",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateExamRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "INVALID_EXAM_SCORE or INVALID_DURATION"}, "409": {"description": "Conflict"}}
            }
        },
        "/exams/{id}": {
            "get": {"tags": ["Exams"], "summary": "Get exam", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["Exams"], "summary": "Reschedule exam", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Exams"], "summary": "Delete exam", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/school-classes": {
            "get": {"tags": ["SchoolClasses"], "summary": "List school classes", "parameters": [{"name": "teacher_id", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["SchoolClasses"],
                "summary": "Create school class",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateSchoolClassRequest"}}],
                "responses": {"201": {"description": "Created"}, "422": {"description": "INVALID_TEACHER or INVALID_MAX_STUDENTS"}}
            }
        },
        "/school-classes/{id}": {
            "get": {"tags": ["SchoolClasses"], "summary": "Get school class", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["SchoolClasses"], "summary": "Update school class", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "INVALID_MAX_STUDENTS"}}},
            "delete": {"tags": ["SchoolClasses"], "summary": "Delete school class", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}, "409": {"description": "CONFLICT: lessons or exams still booked"}}}
        },
        "/school-classes/{id}/seats": {
            "get": {"tags": ["SchoolClasses"], "summary": "Seat summary", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/SeatSummary"}}}}
        },
        "/school-classes/{id}/suitable-classrooms": {
            "get": {"tags": ["SchoolClasses"], "summary": "Classrooms that seat the current roster", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "409": {"description": "NO_SUITABLE_CLASSROOM"}}}
        },
        "/school-classes/{id}/teachers": {
            "post": {"tags": ["SchoolClasses"], "summary": "Assign teacher", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "422": {"description": "INVALID_TEACHER"}}}
        },
        "/school-classes/{id}/teachers/{teacherId}": {
            "delete": {
                "tags": ["SchoolClasses"],
                "summary": "Unassign teacher",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "teacherId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "MINIMUM_TEACHERS_VIOLATION"}}
            }
        },
        "/registrations": {
            "get": {"tags": ["Registrations"], "summary": "List registrations", "parameters": [{"name": "status", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["Registrations"],
                "summary": "Register student",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRegistrationRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "SCHOOL_CLASS_FULL or DUPLICATE_REGISTRATION"}, "422": {"description": "INVALID_STUDENT"}}
            }
        },
        "/registrations/{id}": {
            "get": {"tags": ["Registrations"], "summary": "Get registration", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Registrations"], "summary": "Delete registration", "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}], "responses": {"204": {"description": "Deleted"}}}
        },
        "/registrations/{id}/status": {
            "patch": {
                "tags": ["Registrations"],
                "summary": "Change registration status",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"status": {"type": "string", "enum": ["ACTIVE", "COMPLETED", "WITHDRAWN", "SUSPENDED"]}}}}
                ],
                "responses": {"200": {"description": "OK"}, "409": {"description": "SCHOOL_CLASS_FULL or DUPLICATE_REGISTRATION"}}
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "ClassroomRequest": {
            "type": "object",
            "required": ["name", "capacity"],
            "properties": {
                "name": {"type": "string"},
                "building": {"type": "string"},
                "capacity": {"type": "integer", "minimum": 1}
            }
        },
        "CreateLessonRequest": {
            "type": "object",
            "required": ["classroom_id", "teacher_id", "school_class_id", "subject_id", "start_time", "end_time"],
            "properties": {
                "classroom_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "school_class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "topic": {"type": "string"}
            }
        },
        "CreateExamRequest": {
            "type": "object",
            "required": ["title", "classroom_id", "teacher_id", "school_class_id", "subject_id", "start_time", "end_time", "duration_minutes", "max_score", "passing_score"],
            "properties": {
                "title": {"type": "string"},
                "classroom_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "school_class_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"},
                "duration_minutes": {"type": "integer"},
                "max_score": {"type": "number"},
                "passing_score": {"type": "number"},
                "course_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "CreateSchoolClassRequest": {
            "type": "object",
            "required": ["name", "max_students", "teacher_ids"],
            "properties": {
                "name": {"type": "string"},
                "max_students": {"type": "integer", "minimum": 1},
                "teacher_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1}
            }
        },
        "CreateRegistrationRequest": {
            "type": "object",
            "required": ["student_id", "school_class_id"],
            "properties": {
                "student_id": {"type": "string"},
                "school_class_id": {"type": "string"},
                "notes": {"type": "string"}
            }
        },
        "SeatSummary": {
            "type": "object",
            "properties": {
                "school_class_id": {"type": "string"},
                "max_students": {"type": "integer"},
                "active_registrations": {"type": "integer"},
                "available_seats": {"type": "integer"},
                "is_full": {"type": "boolean"}
            }
        },
        "AvailabilityReport": {
            "type": "object",
            "properties": {
                "classroom_id": {"type": "string"},
                "available": {"type": "boolean"},
                "conflicts": {"type": "array", "items": {"type": "object"}}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
