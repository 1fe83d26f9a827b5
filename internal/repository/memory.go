package repository

import (
	"context"
	"sort"
	"sync"

	"studentpics/internal/students"
)

// Memory keeps records in process memory. Useful for development and tests.
type Memory struct {
	mu       sync.RWMutex
	students map[string]students.StudentRecord
	teachers map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{
		students: make(map[string]students.StudentRecord),
		teachers: make(map[string]struct{}),
	}
}

func (m *Memory) GetStudent(_ context.Context, email string) (*students.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.students[email]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) UpsertPicture(_ context.Context, email, pictureURL, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[email] = students.StudentRecord{Email: email, PictureURL: pictureURL, PictureFilename: filename}
	return nil
}

func (m *Memory) ListStudents(context.Context) ([]students.StudentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]students.StudentRecord, 0, len(m.students))
	for _, rec := range m.students {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *Memory) GetTeacher(_ context.Context, username string) (*students.TeacherRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.teachers[username]; !ok {
		return nil, nil
	}
	return &students.TeacherRecord{Username: username}, nil
}

func (m *Memory) AddTeacher(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[username] = struct{}{}
	return nil
}

func (m *Memory) Healthy(context.Context) bool { return true }

func (m *Memory) Close() error { return nil }
