package students

import "errors"

var (
	ErrUnauthorized       = errors.New("Authentication required for this action")
	ErrInvalidCredentials = errors.New("Invalid teacher credentials")
	ErrInvalidFileType    = errors.New("Invalid file type. Only JPG, JPEG, PNG, and GIF files are allowed.")
	ErrStorageWrite       = errors.New("Failed to save file")
	ErrNotFound           = errors.New("Student picture not found")

	// ErrBlobNotFound is returned by blob stores for names they do not hold.
	ErrBlobNotFound = errors.New("blob not found")
)
