package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"studentpics/internal/students"
)

const (
	studentsSetKey = "students"
	teachersSetKey = "teachers"
)

func studentKey(email string) string { return "student:" + email }

// Redis keeps each student in a hash and indexes emails in a set.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) GetStudent(ctx context.Context, email string) (*students.StudentRecord, error) {
	fields, err := r.client.HGetAll(ctx, studentKey(email)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return recordFromHash(email, fields), nil
}

func (r *Redis) UpsertPicture(ctx context.Context, email, pictureURL, filename string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, studentKey(email), "picture_url", pictureURL, "picture_filename", filename)
		pipe.SAdd(ctx, studentsSetKey, email)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert student: %w", err)
	}
	return nil
}

func (r *Redis) ListStudents(ctx context.Context) ([]students.StudentRecord, error) {
	emails, err := r.client.SMembers(ctx, studentsSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	sort.Strings(emails)

	cmds := make([]*redis.MapStringStringCmd, len(emails))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, email := range emails {
			cmds[i] = pipe.HGetAll(ctx, studentKey(email))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load students: %w", err)
	}

	recs := make([]students.StudentRecord, 0, len(emails))
	for i, email := range emails {
		recs = append(recs, *recordFromHash(email, cmds[i].Val()))
	}
	return recs, nil
}

func recordFromHash(email string, fields map[string]string) *students.StudentRecord {
	return &students.StudentRecord{
		Email:           email,
		PictureURL:      fields["picture_url"],
		PictureFilename: fields["picture_filename"],
	}
}

func (r *Redis) GetTeacher(ctx context.Context, username string) (*students.TeacherRecord, error) {
	ok, err := r.client.SIsMember(ctx, teachersSetKey, username).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &students.TeacherRecord{Username: username}, nil
}

func (r *Redis) AddTeacher(ctx context.Context, username string) error {
	return r.client.SAdd(ctx, teachersSetKey, username).Err()
}

func (r *Redis) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *Redis) Close() error { return r.client.Close() }
