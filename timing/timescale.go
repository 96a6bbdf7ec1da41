package timing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidTimescale is returned when a timescale string cannot be used in a
// value change dump.
var ErrInvalidTimescale = errors.New("timing: invalid timescale")

// TimeUnit is a unit accepted by the $timescale directive.
type TimeUnit string

// Units accepted by the $timescale directive.
const (
	Second      TimeUnit = "s"
	Millisecond TimeUnit = "ms"
	Microsecond TimeUnit = "us"
	Nanosecond  TimeUnit = "ns"
	Picosecond  TimeUnit = "ps"
	Femtosecond TimeUnit = "fs"
)

// A Timescale tells trace viewers how long one step lasts.
type Timescale struct {
	Magnitude int
	Unit      TimeUnit
}

// DefaultTimescale is one picosecond per step.
var DefaultTimescale = Timescale{Magnitude: 1, Unit: Picosecond}

// ParseTimescale parses strings such as "1ps", "10 ns" or "100us".
func ParseTimescale(s string) (Timescale, error) {
	s = strings.TrimSpace(s)

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}

	mag, err := strconv.Atoi(s[:i])
	if err != nil {
		return Timescale{}, errors.Wrapf(ErrInvalidTimescale, "%q", s)
	}

	ts := Timescale{
		Magnitude: mag,
		Unit:      TimeUnit(strings.TrimSpace(s[i:])),
	}

	if err := ts.Validate(); err != nil {
		return Timescale{}, err
	}

	return ts, nil
}

// Validate checks that the magnitude is 1, 10 or 100 and the unit is known.
func (t Timescale) Validate() error {
	switch t.Magnitude {
	case 1, 10, 100:
	default:
		return errors.Wrapf(ErrInvalidTimescale,
			"magnitude %d must be 1, 10 or 100", t.Magnitude)
	}

	switch t.Unit {
	case Second, Millisecond, Microsecond, Nanosecond, Picosecond, Femtosecond:
	default:
		return errors.Wrapf(ErrInvalidTimescale, "unknown unit %q", t.Unit)
	}

	return nil
}

func (t Timescale) String() string {
	return fmt.Sprintf("%d%s", t.Magnitude, t.Unit)
}
