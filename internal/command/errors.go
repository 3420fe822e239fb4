package command

import (
	"errors"
	"time"
)

// ErrProblemNotFound is returned when the problem a request targets does not exist.
var ErrProblemNotFound = errors.New("problem not found")

// ErrInvalidPreferences is returned when a preferences update is empty or out of range.
var ErrInvalidPreferences = errors.New("invalid preferences")

func nowFrom(clock func() time.Time) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock()
}
