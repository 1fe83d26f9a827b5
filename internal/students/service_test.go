package students

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type studentRepo struct {
	records   map[string]StudentRecord
	upsertErr error
}

func newStudentRepo() *studentRepo {
	return &studentRepo{records: map[string]StudentRecord{}}
}

func (r *studentRepo) GetStudent(_ context.Context, email string) (*StudentRecord, error) {
	rec, ok := r.records[email]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (r *studentRepo) UpsertPicture(_ context.Context, email, pictureURL, filename string) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.records[email] = StudentRecord{Email: email, PictureURL: pictureURL, PictureFilename: filename}
	return nil
}

func (r *studentRepo) ListStudents(context.Context) ([]StudentRecord, error) {
	var out []StudentRecord
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out, nil
}

type teacherAuth map[string]bool

func (a teacherAuth) Authenticate(_ context.Context, username string) (*TeacherRecord, error) {
	if username == "" {
		return nil, ErrUnauthorized
	}
	if !a[username] {
		return nil, ErrInvalidCredentials
	}
	return &TeacherRecord{Username: username}, nil
}

type blobs struct {
	files     map[string][]byte
	putErr    error
	deleteErr error
}

func newBlobs() *blobs {
	return &blobs{files: map[string][]byte{}}
}

func (b *blobs) Put(_ context.Context, name string, data []byte) error {
	if b.putErr != nil {
		return b.putErr
	}
	b.files[name] = data
	return nil
}

func (b *blobs) Delete(_ context.Context, name string) error {
	if b.deleteErr != nil {
		return b.deleteErr
	}
	if _, ok := b.files[name]; !ok {
		return fmt.Errorf("%s: %w", name, ErrBlobNotFound)
	}
	delete(b.files, name)
	return nil
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) Printf(format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

type scheduler struct {
	scheduled []string
	err       error
}

func (s *scheduler) ScheduleCleanup(_ context.Context, filename string) error {
	if s.err != nil {
		return s.err
	}
	s.scheduled = append(s.scheduled, filename)
	return nil
}

func newTestService(opts ...Option) (*Service, *studentRepo, *blobs) {
	repo := newStudentRepo()
	b := newBlobs()
	return NewService(repo, teacherAuth{"mrodriguez": true}, b, opts...), repo, b
}

func upload(email, filename, teacher string) UploadRequest {
	return UploadRequest{Email: email, Filename: filename, Data: []byte("img"), TeacherUsername: teacher}
}

func TestUpload_Authentication(t *testing.T) {
	svc, _, b := newTestService()

	_, err := svc.Upload(context.Background(), upload("ana@school.edu", "me.png", ""))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Upload(context.Background(), upload("ana@school.edu", "me.png", "intruder"))
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	assert.Empty(t, b.files)
}

func TestUpload_InvalidFileType(t *testing.T) {
	svc, repo, b := newTestService()

	_, err := svc.Upload(context.Background(), upload("ana@school.edu", "notes.txt", "mrodriguez"))
	assert.ErrorIs(t, err, ErrInvalidFileType)
	assert.Empty(t, b.files)
	assert.Empty(t, repo.records)
}

func TestUpload_StoresPictureAndRecord(t *testing.T) {
	svc, repo, b := newTestService()

	res, err := svc.Upload(context.Background(), upload("ana@school.edu", "Me.JPG", "mrodriguez"))
	require.NoError(t, err)

	assert.Equal(t, "Picture uploaded successfully for ana@school.edu", res.Message)
	assert.Regexp(t, `^/static/uploads/student_[0-9a-f]{12}_[0-9a-f]{8}\.jpg$`, res.PictureURL)
	assert.Equal(t, CleanupNone, res.Cleanup.Outcome)

	rec := repo.records["ana@school.edu"]
	assert.Equal(t, res.PictureURL, rec.PictureURL)
	assert.Equal(t, PictureURL(rec.PictureFilename), rec.PictureURL)
	assert.Contains(t, b.files, rec.PictureFilename)
}

func TestUpload_ReplacesPreviousPicture(t *testing.T) {
	svc, _, b := newTestService()
	ctx := context.Background()

	first, err := svc.Upload(ctx, upload("ana@school.edu", "a.png", "mrodriguez"))
	require.NoError(t, err)
	second, err := svc.Upload(ctx, upload("ana@school.edu", "b.png", "mrodriguez"))
	require.NoError(t, err)

	assert.NotEqual(t, first.PictureURL, second.PictureURL)
	assert.Equal(t, CleanupRemoved, second.Cleanup.Outcome)
	assert.Len(t, b.files, 1)
	assert.NotContains(t, b.files, first.PictureURL[len(StaticPrefix):])
}

func TestUpload_PreviousFileAlreadyGone(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.records["ana@school.edu"] = StudentRecord{
		Email:      "ana@school.edu",
		PictureURL: "/static/uploads/student_old.png",
	}

	res, err := svc.Upload(context.Background(), upload("ana@school.edu", "b.png", "mrodriguez"))
	require.NoError(t, err)
	assert.Equal(t, CleanupAbsent, res.Cleanup.Outcome)
	assert.Equal(t, "student_old.png", res.Cleanup.Filename)
}

func TestUpload_DeleteFailureIsSuppressed(t *testing.T) {
	logger := &recordingLogger{}
	sched := &scheduler{}
	svc, repo, b := newTestService(WithLogger(logger), WithCleanupScheduler(sched))
	repo.records["ana@school.edu"] = StudentRecord{
		Email:           "ana@school.edu",
		PictureURL:      "/static/uploads/student_old.png",
		PictureFilename: "student_old.png",
	}
	b.files["student_old.png"] = []byte("old")
	b.deleteErr = errors.New("permission denied")

	res, err := svc.Upload(context.Background(), upload("ana@school.edu", "b.gif", "mrodriguez"))
	require.NoError(t, err)

	assert.Equal(t, CleanupSuppressed, res.Cleanup.Outcome)
	assert.EqualError(t, res.Cleanup.Err, "permission denied")
	assert.Equal(t, res.PictureURL, repo.records["ana@school.edu"].PictureURL)
	assert.Equal(t, []string{"student_old.png"}, sched.scheduled)
	require.Len(t, logger.lines, 1)
	assert.Contains(t, logger.lines[0], "student_old.png")
}

func TestUpload_FullCleanupQueueStillSucceeds(t *testing.T) {
	logger := &recordingLogger{}
	sched := &scheduler{err: errors.New("queue full")}
	svc, repo, b := newTestService(WithLogger(logger), WithCleanupScheduler(sched))
	repo.records["ana@school.edu"] = StudentRecord{Email: "ana@school.edu", PictureFilename: "student_old.png"}
	b.files["student_old.png"] = []byte("old")
	b.deleteErr = errors.New("permission denied")

	res, err := svc.Upload(context.Background(), upload("ana@school.edu", "b.gif", "mrodriguez"))
	require.NoError(t, err)

	assert.Equal(t, CleanupSuppressed, res.Cleanup.Outcome)
	assert.Equal(t, res.PictureURL, repo.records["ana@school.edu"].PictureURL)
	require.Len(t, logger.lines, 2)
	assert.Contains(t, logger.lines[1], "queue full")
}

func TestUpload_StorageWriteFailure(t *testing.T) {
	svc, repo, b := newTestService()
	b.putErr = errors.New("disk full")

	_, err := svc.Upload(context.Background(), upload("ana@school.edu", "a.png", "mrodriguez"))
	assert.ErrorIs(t, err, ErrStorageWrite)
	assert.EqualError(t, err, "Failed to save file: disk full")
	assert.Empty(t, repo.records)
}

func TestUpload_UpsertFailureDiscardsNewFile(t *testing.T) {
	svc, repo, b := newTestService()
	repo.upsertErr = errors.New("write conflict")

	_, err := svc.Upload(context.Background(), upload("ana@school.edu", "a.png", "mrodriguez"))
	assert.ErrorContains(t, err, "write conflict")
	assert.Empty(t, b.files)
}

func TestGetPicture(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	_, err := svc.GetPicture(ctx, "nobody@school.edu")
	assert.ErrorIs(t, err, ErrNotFound)

	repo.records["bare@school.edu"] = StudentRecord{Email: "bare@school.edu"}
	_, err = svc.GetPicture(ctx, "bare@school.edu")
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := svc.Upload(ctx, upload("ana@school.edu", "a.png", "mrodriguez"))
	require.NoError(t, err)
	pic, err := svc.GetPicture(ctx, "ana@school.edu")
	require.NoError(t, err)
	assert.Equal(t, Picture{Email: "ana@school.edu", PictureURL: res.PictureURL}, pic)
}

func TestListAll(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	a, err := svc.Upload(ctx, upload("ana@school.edu", "a.png", "mrodriguez"))
	require.NoError(t, err)
	b, err := svc.Upload(ctx, upload("ben@school.edu", "b.jpeg", "mrodriguez"))
	require.NoError(t, err)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, a.PictureURL, all["ana@school.edu"].PictureURL)
	assert.Equal(t, b.PictureURL, all["ben@school.edu"].PictureURL)
}
