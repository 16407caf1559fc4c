package export

import (
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/zikenn26/CampusHub/internal/domain/timetable"
)

var ErrNoEntries = errors.New("nothing to export")

// TimetableICS renders entries as an iCalendar feed that drops into
// any calendar app. Times are campus-local wall clock, exported as
// floating times on purpose.
func TimetableICS(entries []timetable.Entry) (string, error) {
	if len(entries) == 0 {
		return "", ErrNoEntries
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//CampusHub//Timetable//EN")

	for _, e := range entries {
		start, err := combine(e.Date, e.StartTime)

		if err != nil {
			return "", fmt.Errorf("entry %s: %w", e.ID, err)
		}

		end, err := combine(e.Date, e.EndTime)

		if err != nil {
			return "", fmt.Errorf("entry %s: %w", e.ID, err)
		}

		ev := cal.AddEvent(e.ID + "@campushub")
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetStartAt(start)
		ev.SetEndAt(end)
		ev.SetSummary(fmt.Sprintf("%s %s", e.CourseCode, e.CourseName))

		if e.Venue != "" {
			ev.SetLocation(e.Venue)
		}

		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
	}

	return cal.Serialize(), nil
}

func combine(date time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse("15:04", hhmm)

	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q: %w", hhmm, err)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
