package service

import (
    "errors"
    "fmt"
)

// Failures reported by the booking core.  Callers compare with errors.Is;
// handlers translate them into HTTP responses.
var (
    ErrNotFound             = errors.New("not found")
    ErrInvalidSeat          = errors.New("seat number outside bus capacity")
    ErrSeatUnavailable      = errors.New("seat already booked")
    ErrInvalidDateOrder     = errors.New("return date must be after outbound date")
    ErrChronologyViolation  = errors.New("legs must travel in chronological order")
    ErrAlreadyCancelled     = errors.New("booking already cancelled")
    ErrAlreadyCompleted     = errors.New("booking already completed")
    ErrTransactionFailed    = errors.New("transaction failed")
    ErrInvalidLegs          = errors.New("invalid legs")
    ErrInvalidStatus        = errors.New("invalid status")
    ErrInvalidTransition    = errors.New("invalid status transition")
    ErrScheduleNotOperating = errors.New("schedule does not run on that date")
    ErrTripNotBookable      = errors.New("trip is not open for booking")
)

// LegError ties a failure to one leg of a round-trip or multi-city
// request.  Leg is 1-based in travel order.
type LegError struct {
    Leg int
    Err error
}

func (e *LegError) Error() string { return fmt.Sprintf("leg %d: %v", e.Leg, e.Err) }

func (e *LegError) Unwrap() error { return e.Err }

func legErr(leg int, err error) error {
    if err == nil {
        return nil
    }
    var le *LegError
    if errors.As(err, &le) {
        return err
    }
    return &LegError{Leg: leg, Err: err}
}
