package handler

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"studentpics/internal/blob"
	"studentpics/internal/metrics"
	"studentpics/internal/students"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

type Handler struct {
	svc            *students.Service
	blobs          students.BlobStore
	maxUploadBytes int64
	checks         map[string]HealthCheck
}

// New wires the handlers. blobs is used to serve stored pictures and should
// be the store the service writes to.
func New(svc *students.Service, blobs students.BlobStore, maxUploadBytes int64, checks map[string]HealthCheck) *Handler {
	return &Handler{svc: svc, blobs: blobs, maxUploadBytes: maxUploadBytes, checks: checks}
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

// fail maps service errors onto HTTP statuses.
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, students.ErrUnauthorized), errors.Is(err, students.ErrInvalidCredentials):
		detail(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, students.ErrInvalidFileType):
		detail(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, students.ErrNotFound):
		detail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, students.ErrStorageWrite):
		log.Printf("store picture: %v", err)
		detail(c, http.StatusInternalServerError, err.Error())
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		detail(c, http.StatusInternalServerError, "Internal server error")
	}
}

func uploadResult(err error) string {
	switch {
	case errors.Is(err, students.ErrUnauthorized), errors.Is(err, students.ErrInvalidCredentials):
		return "unauthorized"
	case errors.Is(err, students.ErrInvalidFileType):
		return "invalid_type"
	case errors.Is(err, students.ErrStorageWrite):
		return "write_failed"
	default:
		return "error"
	}
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	status := http.StatusOK
	results := gin.H{}
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		results[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": results})
}

// ---------- Upload ----------

// UploadPicture handles POST /students/upload-picture?email=&teacher_username=
// with the image in the multipart field "picture".
func (h *Handler) UploadPicture(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	email := c.Query("email")
	if email == "" {
		detail(c, http.StatusUnprocessableEntity, "email query parameter is required")
		return
	}

	file, header, err := c.Request.FormFile("picture")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.PictureUploads.WithLabelValues("too_large").Inc()
			detail(c, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		detail(c, http.StatusUnprocessableEntity, "picture file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("read upload for %s: %v", email, err)
		detail(c, http.StatusInternalServerError, "failed to read picture")
		return
	}

	res, err := h.svc.Upload(c.Request.Context(), students.UploadRequest{
		Email:           email,
		Filename:        header.Filename,
		Data:            data,
		TeacherUsername: c.Query("teacher_username"),
	})
	if err != nil {
		metrics.PictureUploads.WithLabelValues(uploadResult(err)).Inc()
		h.fail(c, err)
		return
	}

	metrics.PictureUploads.WithLabelValues("ok").Inc()
	if res.Cleanup.Outcome != students.CleanupNone {
		metrics.StaleCleanups.WithLabelValues("upload", res.Cleanup.Outcome.String()).Inc()
	}
	c.JSON(http.StatusOK, res)
}

// ---------- Lookup ----------

func (h *Handler) GetPicture(c *gin.Context) {
	pic, err := h.svc.GetPicture(c.Request.Context(), c.Param("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pic)
}

func (h *Handler) ListStudents(c *gin.Context) {
	all, err := h.svc.ListAll(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, all)
}

// ---------- Static ----------

// ServeUpload streams a stored picture, or redirects when the store hosts
// pictures at their own URL.
func (h *Handler) ServeUpload(c *gin.Context) {
	name := c.Param("filename")

	if loc, ok := h.blobs.(blob.Locator); ok {
		c.Redirect(http.StatusFound, loc.Locate(name))
		return
	}
	opener, ok := h.blobs.(blob.Opener)
	if !ok {
		detail(c, http.StatusNotFound, "Not Found")
		return
	}

	obj, err := opener.Open(c.Request.Context(), name)
	if err != nil {
		if errors.Is(err, students.ErrBlobNotFound) {
			detail(c, http.StatusNotFound, "Not Found")
			return
		}
		log.Printf("open upload %s: %v", name, err)
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}
	defer obj.Close()
	c.DataFromReader(http.StatusOK, obj.Size, obj.ContentType, obj, nil)
}
