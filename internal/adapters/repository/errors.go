package repository

import (
	"errors"

	"github.com/okian/vmatch/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound          = model.ErrNotFound
	ErrDuplicate         = errors.New("already exists")
	ErrProjectFull       = errors.New("project is full")
	ErrStaleStatus       = errors.New("status changed concurrently")
	ErrUnsupportedDriver = errors.New("unsupported storage driver")
)
