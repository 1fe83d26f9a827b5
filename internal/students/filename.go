package students

import (
	"crypto/md5"
	"encoding/hex"
	"path"
	"strings"

	"github.com/google/uuid"
)

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// Extension returns the lower-cased extension of filename, including the dot.
// A name that is only an extension, such as ".png", has none.
func Extension(filename string) string {
	base := path.Base(filename)
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || i == len(base)-1 {
		return ""
	}
	return strings.ToLower(base[i:])
}

// IsAllowedFile reports whether filename carries an accepted image extension.
func IsAllowedFile(filename string) bool {
	return allowedExtensions[Extension(filename)]
}

// EmailHash is the first 12 hex characters of md5(email).
func EmailHash(email string) string {
	sum := md5.Sum([]byte(email))
	return hex.EncodeToString(sum[:])[:12]
}

// GenerateFilename builds student_<emailhash>_<random>.<ext>. The hash keeps
// files traceable to a student, the random part keeps repeated uploads apart.
func GenerateFilename(email, originalName string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "student_" + EmailHash(email) + "_" + random + Extension(originalName)
}

// PictureURL is the public path of a stored blob.
func PictureURL(filename string) string {
	return StaticPrefix + filename
}

// referencedFilename returns the blob a record points at. Older records may
// only carry picture_url, so fall back to its last path segment.
func referencedFilename(rec *StudentRecord) string {
	if rec == nil {
		return ""
	}
	if rec.PictureFilename != "" {
		return rec.PictureFilename
	}
	if rec.PictureURL == "" {
		return ""
	}
	return path.Base(rec.PictureURL)
}
