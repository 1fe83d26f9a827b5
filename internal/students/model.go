package students

import "context"

// StaticPrefix is the URL path under which stored pictures are served.
const StaticPrefix = "/static/uploads/"

// StudentRecord is the persisted picture metadata of a student, keyed by email.
// Email is the identifier and is left out of the JSON value.
type StudentRecord struct {
	Email           string `json:"-" bson:"_id" db:"email"`
	PictureURL      string `json:"picture_url,omitempty" bson:"picture_url,omitempty" db:"picture_url"`
	PictureFilename string `json:"picture_filename,omitempty" bson:"picture_filename,omitempty" db:"picture_filename"`
}

// TeacherRecord is a known teacher. Existence is the only credential.
type TeacherRecord struct {
	Username string `json:"username" bson:"_id" db:"username"`
}

// Picture is the answer to a picture lookup.
type Picture struct {
	Email      string `json:"email"`
	PictureURL string `json:"picture_url"`
}

// StudentRepository stores student records.
// Get returns nil, nil when no record exists.
type StudentRepository interface {
	GetStudent(ctx context.Context, email string) (*StudentRecord, error)
	UpsertPicture(ctx context.Context, email, pictureURL, filename string) error
	ListStudents(ctx context.Context) ([]StudentRecord, error)
}

// TeacherRepository resolves teachers by username.
// GetTeacher returns nil, nil when the teacher is unknown.
type TeacherRepository interface {
	GetTeacher(ctx context.Context, username string) (*TeacherRecord, error)
}

// BlobStore holds uploaded image bytes under generated names.
// Delete of a missing blob returns an error matching ErrBlobNotFound.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte) error
	Delete(ctx context.Context, name string) error
}

// CleanupScheduler retries deletions that failed during an upload.
type CleanupScheduler interface {
	ScheduleCleanup(ctx context.Context, filename string) error
}

// Logger is satisfied by *log.Logger.
type Logger interface {
	Printf(format string, v ...any)
}
