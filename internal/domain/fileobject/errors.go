package fileobject

import "errors"

var (
	ErrFileNotFound = errors.New("file not found")
	ErrMissingFile  = errors.New("no file provided")
	ErrFileTooLarge = errors.New("file exceeds maximum allowed size")
	ErrStorage      = errors.New("storage failure")
	ErrPersist      = errors.New("database failure")
)
