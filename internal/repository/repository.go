package repository

import (
	"context"
	"fmt"
	"strings"

	"studentpics/internal/store"
	"studentpics/internal/students"
)

// Store is the persistence surface the picture service runs on.
type Store interface {
	students.StudentRepository
	students.TeacherRepository
	AddTeacher(ctx context.Context, username string) error
	Healthy(ctx context.Context) bool
	Close() error
}

// Open picks a backend from the DSN scheme.
func Open(ctx context.Context, dsn, mongoDatabase string) (Store, error) {
	switch {
	case dsn == "" || dsn == "memory":
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err := store.NewDB(ctx, dsn)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		pg := NewPostgres(db.Client)
		if err := pg.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return pg, nil
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		m, err := store.NewMongo(ctx, dsn, mongoDatabase)
		if err != nil {
			return nil, err
		}
		return NewMongo(m), nil
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		r, err := store.NewRedis(dsn)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return NewRedis(r.Client), nil
	default:
		return nil, fmt.Errorf("unable to determine store type from DSN: %s", dsn)
	}
}

// Seed makes sure every listed teacher exists.
func Seed(ctx context.Context, s Store, teachers []string) error {
	for _, username := range teachers {
		if username == "" {
			continue
		}
		if err := s.AddTeacher(ctx, username); err != nil {
			return fmt.Errorf("seed teacher %s: %w", username, err)
		}
	}
	return nil
}
