package service

import "errors"

var (
	errNoAssignedStatus = errors.New("status catalog has no assigned-class entry")
	errNoIntakeStatus   = errors.New("status catalog has no intake-class entry")
)
