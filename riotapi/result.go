package riotapi

import "fmt"

// Outcome classifies how a Riot API call ended. Callers branch on it instead of on nil values.
type Outcome int

const (
	OK Outcome = iota
	NotFound
	Unauthorized
	TransportError
	Unexpected
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case NotFound:
		return "not_found"
	case Unauthorized:
		return "unauthorized"
	case TransportError:
		return "transport_error"
	case Unexpected:
		return "unexpected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result carries a decoded value when Outcome is OK, otherwise the failure details.
// Status is the HTTP status code (0 on transport failure).
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Status  int
	Err     error
}

// OK reports whether the call succeeded with a decoded value.
func (r Result[T]) OK() bool { return r.Outcome == OK }
