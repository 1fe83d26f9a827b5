package students

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
)

// Authenticator resolves the teacher behind an upload.
type Authenticator interface {
	Authenticate(ctx context.Context, username string) (*TeacherRecord, error)
}

// UploadRequest is a picture upload on behalf of a student.
type UploadRequest struct {
	Email           string
	Filename        string
	Data            []byte
	TeacherUsername string
}

// UploadResult is returned after the new picture is stored and recorded.
type UploadResult struct {
	Message    string        `json:"message"`
	PictureURL string        `json:"picture_url"`
	Cleanup    CleanupResult `json:"-"`
}

// CleanupOutcome describes what happened to a student's previous picture.
type CleanupOutcome int

const (
	CleanupNone CleanupOutcome = iota
	CleanupRemoved
	CleanupAbsent
	CleanupSuppressed
)

func (o CleanupOutcome) String() string {
	switch o {
	case CleanupRemoved:
		return "removed"
	case CleanupAbsent:
		return "absent"
	case CleanupSuppressed:
		return "suppressed"
	default:
		return "none"
	}
}

// CleanupResult carries the stale-file deletion outcome. Err is only set for
// CleanupSuppressed and never fails the upload.
type CleanupResult struct {
	Filename string
	Outcome  CleanupOutcome
	Err      error
}

// Service implements picture upload, lookup and listing.
type Service struct {
	students  StudentRepository
	auth      Authenticator
	blobs     BlobStore
	scheduler CleanupScheduler
	logger    Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets where suppressed cleanup failures are reported.
func WithLogger(l Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithCleanupScheduler hands failed stale-file deletions to a retry queue.
func WithCleanupScheduler(c CleanupScheduler) Option {
	return func(s *Service) { s.scheduler = c }
}

// NewService creates a service over the given collaborators.
func NewService(students StudentRepository, auth Authenticator, blobs BlobStore, opts ...Option) *Service {
	s := &Service{
		students: students,
		auth:     auth,
		blobs:    blobs,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores a new picture for req.Email and points the student record at it.
// Any previously referenced picture is deleted best-effort.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	if _, err := s.auth.Authenticate(ctx, req.TeacherUsername); err != nil {
		return UploadResult{}, err
	}
	if !IsAllowedFile(req.Filename) {
		return UploadResult{}, ErrInvalidFileType
	}

	filename := GenerateFilename(req.Email, req.Filename)
	if err := s.blobs.Put(ctx, filename, req.Data); err != nil {
		return UploadResult{}, fmt.Errorf("%w: %w", ErrStorageWrite, err)
	}
	pictureURL := PictureURL(filename)

	existing, err := s.students.GetStudent(ctx, req.Email)
	if err != nil {
		s.discard(ctx, filename)
		return UploadResult{}, fmt.Errorf("get student %s: %w", req.Email, err)
	}
	cleanup := s.removeStale(ctx, existing, filename)

	if err := s.students.UpsertPicture(ctx, req.Email, pictureURL, filename); err != nil {
		s.discard(ctx, filename)
		return UploadResult{}, fmt.Errorf("upsert student %s: %w", req.Email, err)
	}

	return UploadResult{
		Message:    fmt.Sprintf("Picture uploaded successfully for %s", req.Email),
		PictureURL: pictureURL,
		Cleanup:    cleanup,
	}, nil
}

func (s *Service) removeStale(ctx context.Context, existing *StudentRecord, current string) CleanupResult {
	old := referencedFilename(existing)
	if old == "" || old == current {
		return CleanupResult{Outcome: CleanupNone}
	}

	err := s.blobs.Delete(ctx, old)
	switch {
	case err == nil:
		return CleanupResult{Filename: old, Outcome: CleanupRemoved}
	case errors.Is(err, ErrBlobNotFound):
		return CleanupResult{Filename: old, Outcome: CleanupAbsent}
	}

	s.logger.Printf("warning: could not delete old file %s: %v", old, err)
	if s.scheduler != nil {
		if serr := s.scheduler.ScheduleCleanup(ctx, old); serr != nil {
			s.logger.Printf("schedule cleanup of %s failed: %v", old, serr)
		}
	}
	return CleanupResult{Filename: old, Outcome: CleanupSuppressed, Err: err}
}

// discard removes a blob written by a request that could not be recorded.
func (s *Service) discard(ctx context.Context, filename string) {
	if err := s.blobs.Delete(ctx, filename); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logger.Printf("discard unreferenced file %s: %v", filename, err)
	}
}

// GetPicture returns the picture URL recorded for email.
func (s *Service) GetPicture(ctx context.Context, email string) (Picture, error) {
	rec, err := s.students.GetStudent(ctx, email)
	if err != nil {
		return Picture{}, fmt.Errorf("get student %s: %w", email, err)
	}
	if rec == nil || rec.PictureURL == "" {
		return Picture{}, ErrNotFound
	}
	return Picture{Email: email, PictureURL: rec.PictureURL}, nil
}

// ListAll returns every student record keyed by email.
func (s *Service) ListAll(ctx context.Context) (map[string]StudentRecord, error) {
	records, err := s.students.ListStudents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	out := make(map[string]StudentRecord, len(records))
	for _, rec := range records {
		out[rec.Email] = rec
	}
	return out, nil
}
