package ticket

import (
	"regexp"
	"strings"
	"time"

	"github.com/Additional-Code/printcore/internal/entity"
)

// ScheduledThreshold is the creation-to-ready gap above which an order counts as scheduled.
const ScheduledThreshold = 30 * time.Minute

// Schedule is a resolved future fulfilment time.
type Schedule struct {
	At        time.Time
	Raw       string
	FromNotes bool
}

// Display renders the schedule time, falling back to the raw note text when it did not parse.
func (s Schedule) Display() string {
	if !s.At.IsZero() {
		return s.At.Format("Mon Jan 2 3:04 PM")
	}
	return s.Raw
}

var scheduledMarker = regexp.MustCompile(`(?i)scheduled\s+for:\s*(.+?)(?:[.;](?:\s|$)|\n|$)`)

var scheduleLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04 PM",
	"Jan 2 2006 3:04 PM",
	"01/02/2006 3:04 PM",
	"01/02/2006 15:04",
}

// detectSchedule resolves the schedule of o and returns notes with any
// "Scheduled for:" marker removed. A ready time more than ScheduledThreshold
// after creation takes precedence over the marker.
func detectSchedule(o entity.Order, notes string) (*Schedule, string) {
	var sched *Schedule
	if loc := scheduledMarker.FindStringSubmatchIndex(notes); loc != nil {
		raw := strings.TrimRight(strings.TrimSpace(notes[loc[2]:loc[3]]), ".,;")
		sched = &Schedule{Raw: raw, FromNotes: true}
		if at, ok := parseScheduleTime(raw, o.CreatedAt.Location()); ok {
			sched.At = at
		}
		notes = strings.TrimSpace(strings.TrimSpace(notes[:loc[0]]) + " " + strings.TrimSpace(notes[loc[1]:]))
	}

	if o.EstimatedReadyAt != nil && o.EstimatedReadyAt.Sub(o.CreatedAt) > ScheduledThreshold {
		sched = &Schedule{At: *o.EstimatedReadyAt}
	}
	return sched, notes
}

func parseScheduleTime(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), true
	}
	for _, layout := range scheduleLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
