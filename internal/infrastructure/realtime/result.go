package realtime

import (
	"errors"

	"experiencehub/internal/core/domain"
)

// Outcome classifies how a socket handler finished.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomeUnauthorized
	OutcomeNotFound
	OutcomeInvalid
	OutcomePersistenceError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalid:
		return "invalid"
	case OutcomePersistenceError:
		return "persistence_error"
	}
	return "unknown"
}

// Reply is a frame addressed to the sender only.
type Reply struct {
	Event   string
	Payload interface{}
}

// Result is what every handler returns; the router alone decides what the
// sender sees.
type Result struct {
	Outcome Outcome
	Err     error
	Reply   *Reply
}

func Ok() Result { return Result{Outcome: OutcomeOK} }

func OkReply(event string, payload interface{}) Result {
	return Result{Outcome: OutcomeOK, Reply: &Reply{Event: event, Payload: payload}}
}

func Unauthorized(err error) Result {
	if err == nil {
		err = domain.ErrUnauthorized
	}
	return Result{Outcome: OutcomeUnauthorized, Err: err}
}

func NotFound(err error) Result { return Result{Outcome: OutcomeNotFound, Err: err} }

func Invalid(err error) Result { return Result{Outcome: OutcomeInvalid, Err: err} }

func PersistenceFailure(err error) Result { return Result{Outcome: OutcomePersistenceError, Err: err} }

// FromError maps a service error onto an outcome.
func FromError(err error) Result {
	switch {
	case err == nil:
		return Ok()
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrForbidden):
		return Unauthorized(err)
	case errors.Is(err, domain.ErrNotFound):
		return NotFound(err)
	case errors.Is(err, domain.ErrInvalidPayload):
		return Invalid(err)
	default:
		return PersistenceFailure(err)
	}
}
