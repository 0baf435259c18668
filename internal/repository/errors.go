// Package repository holds the hand-written SQL data access for the
// booking core.  Sentinel errors defined here let the service layer tell
// "row absent" apart from storage failures without depending on
// sql.ErrNoRows directly.
package repository

import "errors"

// ErrScheduleNotFound is returned when a schedule (or its bus / route) is
// missing.
var ErrScheduleNotFound = errors.New("schedule not found")

// ErrTripNotFound is returned when no trip matches the lookup.
var ErrTripNotFound = errors.New("trip not found")

// ErrBookingNotFound is returned when no booking matches the lookup.
var ErrBookingNotFound = errors.New("booking not found")
