package models

import "time"

// Student represents a practitioner registered at the academy.
type Student struct {
	ID            string    `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Phone         string    `db:"phone" json:"phone"`
	Email         string    `db:"email" json:"email"`
	PhotoURL      *string   `db:"photo_url" json:"photo_url,omitempty"`
	Active        bool      `db:"active" json:"active"`
	CurrentBelt   Belt      `db:"current_belt" json:"current_belt"`
	CurrentDegree int       `db:"current_degree" json:"current_degree"`
	BeltSince     time.Time `db:"belt_since" json:"belt_since"`
	TotalClasses  int       `db:"total_classes" json:"total_classes"`
	BeltLessons   int       `db:"belt_lessons" json:"belt_lessons"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Belt      *Belt
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// RankState captures the mutable promotion state written back on an award.
type RankState struct {
	Belt      Belt      `json:"belt"`
	Degree    int       `json:"degree"`
	BeltSince time.Time `json:"belt_since"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
