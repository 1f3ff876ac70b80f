package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-api/internal/models"
)

// RosterRepository reads the subjects and teachers assigned to a class for a term.
type RosterRepository struct {
	db *sqlx.DB
}

// NewRosterRepository constructs the repository.
func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

// ListByClassAndTerm returns every subject/teacher pair assigned to the class in the term.
func (r *RosterRepository) ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.RosterEntry, error) {
	const query = `
SELECT ta.subject_id, s.name AS subject_name, ta.teacher_id, COALESCE(tr.full_name, ta.teacher_id) AS teacher_name
FROM teacher_assignments ta
JOIN subjects s ON s.id = ta.subject_id
JOIN teachers tr ON tr.id = ta.teacher_id
WHERE ta.class_id = $1 AND ta.term_id = $2
ORDER BY s.name ASC, teacher_name ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, classID, termID); err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	return entries, nil
}

// ClassName returns the display name of a class, used as the timetable group name.
func (r *RosterRepository) ClassName(ctx context.Context, classID string) (string, error) {
	const query = `SELECT name FROM classes WHERE id = $1`
	var name string
	if err := r.db.GetContext(ctx, &name, query, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("find class name: %w", err)
	}
	return name, nil
}
