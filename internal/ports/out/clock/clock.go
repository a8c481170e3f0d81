package clock

import "time"

// Clock provides time to the application. Tests substitute a manual implementation.
type Clock interface {
	Now() time.Time
}
