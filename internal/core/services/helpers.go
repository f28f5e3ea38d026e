package services

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// notFound translates gorm's missing-row error into a domain error
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// monthRange returns the first instant of t's month and of the following month
func monthRange(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
