package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"studentpics/internal/students"
)

const schema = `
CREATE TABLE IF NOT EXISTS students (
	email            TEXT PRIMARY KEY,
	picture_url      TEXT NOT NULL DEFAULT '',
	picture_filename TEXT NOT NULL DEFAULT '',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS teachers (
	username   TEXT PRIMARY KEY,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// Postgres persists students and teachers in Postgres.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres creates a repo.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the tables when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// GetStudent returns the record for email, or nil when there is none.
func (p *Postgres) GetStudent(ctx context.Context, email string) (*students.StudentRecord, error) {
	var rec students.StudentRecord
	err := p.db.GetContext(ctx, &rec, `
		SELECT email, picture_url, picture_filename
		FROM students WHERE email = $1
	`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &rec, nil
}

// UpsertPicture creates the student or replaces its picture fields.
func (p *Postgres) UpsertPicture(ctx context.Context, email, pictureURL, filename string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO students (email, picture_url, picture_filename)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET
			picture_url = EXCLUDED.picture_url,
			picture_filename = EXCLUDED.picture_filename,
			updated_at = NOW()
	`, email, pictureURL, filename)
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

// ListStudents returns all students ordered by email.
func (p *Postgres) ListStudents(ctx context.Context) ([]students.StudentRecord, error) {
	var recs []students.StudentRecord
	err := p.db.SelectContext(ctx, &recs, `
		SELECT email, picture_url, picture_filename
		FROM students
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	return recs, nil
}

// GetTeacher returns the teacher, or nil when unknown.
func (p *Postgres) GetTeacher(ctx context.Context, username string) (*students.TeacherRecord, error) {
	var t students.TeacherRecord
	err := p.db.GetContext(ctx, &t, `SELECT username FROM teachers WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	return &t, nil
}

// AddTeacher ensures a teacher record exists.
func (p *Postgres) AddTeacher(ctx context.Context, username string) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO teachers (username)
		VALUES ($1)
		ON CONFLICT (username) DO NOTHING
	`, username)
	return err
}

func (p *Postgres) Healthy(ctx context.Context) bool {
	return p.db.PingContext(ctx) == nil
}

func (p *Postgres) Close() error { return p.db.Close() }
