package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentpics/internal/auth"
	"studentpics/internal/blob"
	"studentpics/internal/repository"
	"studentpics/internal/students"
)

type testServer struct {
	router *gin.Engine
	dir    string
	repo   *repository.Memory
}

func newTestServer(t *testing.T, blobs students.BlobStore) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	if blobs == nil {
		local, err := blob.NewLocal(dir)
		require.NoError(t, err)
		blobs = local
	}
	repo := repository.NewMemory()
	require.NoError(t, repo.AddTeacher(context.Background(), "mrodriguez"))

	svc := students.NewService(repo, auth.NewTeachers(repo), blobs)
	h := New(svc, blobs, 1<<20, map[string]HealthCheck{"store": repo.Healthy})
	return &testServer{
		router: NewRouter(h, RouterConfig{RateLimitPerMin: 0}),
		dir:    dir,
		repo:   repo,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func uploadRequest(t *testing.T, query, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := w.CreateFormFile("picture", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/students/upload-picture?"+query, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestUpload_Success(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(uploadRequest(t, "email=ana@school.edu&teacher_username=mrodriguez", "me.png", []byte("png")))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	body := decode(t, rr)
	assert.Equal(t, "Picture uploaded successfully for ana@school.edu", body["message"])
	url, _ := body["picture_url"].(string)
	assert.Regexp(t, `^/static/uploads/student_[0-9a-f]{12}_[0-9a-f]{8}\.png$`, url)

	data, err := os.ReadFile(filepath.Join(s.dir, strings.TrimPrefix(url, students.StaticPrefix)))
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestUpload_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name     string
		query    string
		filename string
		status   int
		detail   string
	}{
		{"missing teacher", "email=ana@school.edu", "me.png", http.StatusUnauthorized, "Authentication required for this action"},
		{"unknown teacher", "email=ana@school.edu&teacher_username=intruder", "me.png", http.StatusUnauthorized, "Invalid teacher credentials"},
		{"text file", "email=ana@school.edu&teacher_username=mrodriguez", "notes.txt", http.StatusBadRequest, "Invalid file type. Only JPG, JPEG, PNG, and GIF files are allowed."},
		{"missing email", "teacher_username=mrodriguez", "me.png", http.StatusUnprocessableEntity, "email query parameter is required"},
		{"missing picture", "email=ana@school.edu&teacher_username=mrodriguez", "", http.StatusUnprocessableEntity, "picture file is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := s.do(uploadRequest(t, tt.query, tt.filename, []byte("data")))
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.detail, decode(t, rr)["detail"])
		})
	}

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_TooLarge(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(uploadRequest(t, "email=ana@school.edu&teacher_username=mrodriguez", "big.png", bytes.Repeat([]byte("x"), 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

type brokenBlobs struct{}

func (brokenBlobs) Put(context.Context, string, []byte) error {
	return errors.New("read-only file system")
}
func (brokenBlobs) Delete(context.Context, string) error { return nil }

func TestUpload_StorageWriteFailure(t *testing.T) {
	s := newTestServer(t, brokenBlobs{})

	rr := s.do(uploadRequest(t, "email=ana@school.edu&teacher_username=mrodriguez", "me.png", []byte("png")))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Failed to save file: read-only file system", decode(t, rr)["detail"])
}

func TestUpload_ReplaceThenLookupAndList(t *testing.T) {
	s := newTestServer(t, nil)
	query := "email=ana@school.edu&teacher_username=mrodriguez"

	first := decode(t, s.do(uploadRequest(t, query, "a.jpg", []byte("one"))))["picture_url"].(string)
	second := decode(t, s.do(uploadRequest(t, query, "b.gif", []byte("two"))))["picture_url"].(string)
	assert.NotEqual(t, first, second)

	_, err := os.Stat(filepath.Join(s.dir, strings.TrimPrefix(first, students.StaticPrefix)))
	assert.True(t, os.IsNotExist(err), "replaced picture should be deleted")

	rr := s.do(httptest.NewRequest(http.MethodGet, "/students/ana@school.edu/picture", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"email":"ana@school.edu","picture_url":"`+second+`"}`, rr.Body.String())

	for _, path := range []string{"/students", "/students/"} {
		rr = s.do(httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		body := decode(t, rr)
		student, ok := body["ana@school.edu"].(map[string]any)
		require.True(t, ok, path)
		assert.Equal(t, second, student["picture_url"])
		assert.NotContains(t, student, "email")
	}

	rr = s.do(httptest.NewRequest(http.MethodGet, second, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "two", rr.Body.String())
	assert.Equal(t, "image/gif", rr.Header().Get("Content-Type"))
}

func TestGetPicture_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/students/nobody@school.edu/picture", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Student picture not found", decode(t, rr)["detail"])
}

func TestListStudents_Empty(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/students", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{}`, rr.Body.String())
}

func TestServeUpload_Missing(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/static/uploads/student_nothing.png", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

type locatedBlobs struct{ brokenBlobs }

func (locatedBlobs) Locate(name string) string { return "https://cdn.example/" + name }

func TestServeUpload_Redirect(t *testing.T) {
	s := newTestServer(t, locatedBlobs{})

	rr := s.do(httptest.NewRequest(http.MethodGet, "/static/uploads/a.png", nil))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "https://cdn.example/a.png", rr.Header().Get("Location"))
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"store":true}}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}
