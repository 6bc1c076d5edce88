package storage

import "errors"

var (
	ErrTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidKey  = errors.New("invalid storage key")
	ErrBlobMissing = errors.New("blob not found")
)
