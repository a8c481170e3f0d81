package clock

import (
	"time"

	clockport "github.com/movement-pass/public-api/internal/ports/out/clock"
)

// SystemClock returns the current wall-clock time in UTC at millisecond precision,
// the resolution timestamps are persisted with.
type SystemClock struct{}

var _ clockport.Clock = SystemClock{}

func NewSystemClock() SystemClock { return SystemClock{} }

func (SystemClock) Now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }
