// Package blob holds the stores uploaded pictures are written to.
package blob

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for names that are not a single path element.
var ErrInvalidName = errors.New("invalid blob name")

// Object is an opened blob ready to be streamed.
type Object struct {
	io.ReadCloser
	Size        int64
	ContentType string
}

// Opener is implemented by stores that can stream blobs back.
type Opener interface {
	Open(ctx context.Context, name string) (*Object, error)
}

// Locator is implemented by stores whose blobs live at an external URL.
type Locator interface {
	Locate(name string) string
}

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// ContentType guesses the media type of a stored picture from its name.
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
