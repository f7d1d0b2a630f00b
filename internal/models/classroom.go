package models

import "time"

// Classroom is a physical room shared by lessons and exams.
type Classroom struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Building  *string   `db:"building" json:"building,omitempty"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ClassroomFilter defines filter criteria for listing classrooms.
type ClassroomFilter struct {
	Search      string
	MinCapacity int
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
