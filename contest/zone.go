package contest

import (
	"time"
	_ "time/tzdata"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultTimezone = "Asia/Hong_Kong"
	dateKeyLayout   = "2006-01-02"
	displayLayout   = "2006/01/02 15:04:05"
	windowLayout    = "2006-01-02T15:04"
)

// Zone evaluates "today" and "now" in one civil timezone regardless of the host's
// local zone. Every day boundary of the contest goes through it.
type Zone struct {
	clock    clockwork.Clock
	location *time.Location
}

func NewZone(clock clockwork.Clock, name string) *Zone {
	location, err := time.LoadLocation(name)
	if err != nil {
		logging.Log.Warnf("CONTEST: unknown timezone '%s', falling back to UTC+8: %v", name, err)
		location = time.FixedZone("UTC+8", 8*60*60)
	}
	return &Zone{clock: clock, location: location}
}

func (z *Zone) Location() *time.Location { return z.location }

func (z *Zone) Clock() clockwork.Clock { return z.clock }

func (z *Zone) Now() time.Time {
	return z.clock.Now().In(z.location)
}

// Today is the watermark form of the current date.
func (z *Zone) Today() string {
	return DateKey(z.Now())
}

func (z *Zone) Display(t time.Time) string {
	return t.In(z.location).Format(displayLayout)
}

// ParseWindowTime accepts RFC3339 or a wall-clock "YYYY-MM-DDTHH:MM" read in the zone.
func (z *Zone) ParseWindowTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation(windowLayout, value, z.location)
}

func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}
