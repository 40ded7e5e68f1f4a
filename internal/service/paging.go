package service

import (
	"errors"

	"rentacar-service/internal/store"
)

// maxPage keeps page*size far from int overflow in OFFSET arithmetic
const maxPage = 1 << 20

type paging struct {
	defaultSize int
	maxSize     int
}

// normalize clamps a requested page to sane bounds; pages are zero-based
func (p paging) normalize(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if page > maxPage {
		page = maxPage
	}
	if size <= 0 {
		size = p.defaultSize
	}
	if size <= 0 {
		size = 20
	}
	if p.maxSize > 0 && size > p.maxSize {
		size = p.maxSize
	}
	return page, size
}

// failureReason labels failed operations for metrics
func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, store.ErrLockTimeout):
		return "lock_timeout"
	default:
		return "internal"
	}
}
