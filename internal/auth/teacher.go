package auth

import (
	"context"
	"fmt"

	"studentpics/internal/students"
)

// Teachers authenticates picture uploads against known teachers.
type Teachers struct {
	repo students.TeacherRepository
}

// NewTeachers creates an authenticator backed by a teacher repository.
func NewTeachers(repo students.TeacherRepository) *Teachers {
	return &Teachers{repo: repo}
}

// Authenticate resolves username to a teacher record.
func (t *Teachers) Authenticate(ctx context.Context, username string) (*students.TeacherRecord, error) {
	if username == "" {
		return nil, students.ErrUnauthorized
	}
	teacher, err := t.repo.GetTeacher(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup teacher %s: %w", username, err)
	}
	if teacher == nil {
		return nil, students.ErrInvalidCredentials
	}
	return teacher, nil
}
