package expr

import (
	"strconv"
	"time"
)

// Window is a trailing time interval parsed from a duration literal such as
// "5m" or "1h". The quantity is kept alongside the resolved duration because
// rate() normalizes by the amount expressed in the unit as written.
type Window struct {
	Quantity int64
	Unit     time.Duration
	Code     string
}

// Duration returns the total span of the window.
func (w Window) Duration() time.Duration {
	return time.Duration(w.Quantity) * w.Unit
}

// ParseWindow parses a duration literal of the form <integer><unit> with
// unit one of s, m, h, d.
func ParseWindow(code string) (Window, error) {
	if len(code) < 2 {
		return Window{}, evalErrf(InvalidDurationLiteral, "%q", code)
	}

	var unit time.Duration
	switch code[len(code)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	default:
		return Window{}, evalErrf(InvalidDurationLiteral, "%q: unknown unit", code)
	}

	quantity, err := strconv.ParseInt(code[:len(code)-1], 10, 64)
	if err != nil || quantity <= 0 {
		return Window{}, evalErrf(InvalidDurationLiteral, "%q: quantity must be a positive integer", code)
	}

	return Window{Quantity: quantity, Unit: unit, Code: code}, nil
}
