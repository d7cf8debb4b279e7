package localtime

import (
	"fmt"
	"time"
)

// Zone represents the fixed civil time zone the business operates in.
// Day boundaries, display timestamps and the daily trigger time are all
// interpreted in this zone, never in UTC.
type Zone struct {
	loc *time.Location
}

// Load resolves a zone by IANA name, e.g. "Asia/Dhaka".
func Load(name string) (*Zone, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed loading time zone %s: %w", name, err)
	}
	return &Zone{loc: loc}, nil
}

// Location exposes the underlying *time.Location for collaborators that
// need it directly (the cron scheduler).
func (z *Zone) Location() *time.Location {
	return z.loc
}

// Convert maps an absolute instant to the equivalent wall-clock time in the
// business zone.
func (z *Zone) Convert(t time.Time) time.Time {
	return t.In(z.loc)
}

// Now returns the current time in the business zone.
func (z *Zone) Now() time.Time {
	return time.Now().In(z.loc)
}

// Stamp formats an instant for report rows: business-local, 12-hour clock.
func (z *Zone) Stamp(t time.Time) string {
	return z.Convert(t).Format("02-01-2006 03:04:05 PM")
}

// DateString formats the business-local calendar date, used in report file
// names and email subjects.
func (z *Zone) DateString(t time.Time) string {
	return z.Convert(t).Format("2006-01-02")
}
