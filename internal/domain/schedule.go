package domain

import (
	"regexp"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	clockLayout    = "15:04"
	dateTimeLayout = "2006-01-02T15:04"
	displayLayout  = "2006-01-02 15:04"

	// NotAvailable is shown when a date cannot be derived
	NotAvailable = "N/A"
)

// ParseEventTime combines an event date with a clock time in loc.
// clock may also be a full local datetime, in which case date is ignored.
// Missing or malformed input yields nil.
func ParseEventTime(date, clock string, loc *time.Location) *time.Time {
	if loc == nil {
		loc = time.UTC
	}
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return nil
	}

	if strings.Contains(clock, "T") {
		for _, layout := range []string{dateTimeLayout, dateTimeLayout + ":05"} {
			if t, err := time.ParseInLocation(layout, clock, loc); err == nil {
				return &t
			}
		}
		return nil
	}

	date = strings.TrimSpace(date)
	for _, layout := range []string{clockLayout, clockLayout + ":05"} {
		if t, err := time.ParseInLocation(dateLayout+"T"+layout, date+"T"+clock, loc); err == nil {
			return &t
		}
	}
	return nil
}

// StartAt derives the start timestamp
func (e *Event) StartAt(loc *time.Location) *time.Time {
	return ParseEventTime(e.EventDate, e.StartTime, loc)
}

// EndAt derives the end timestamp
func (e *Event) EndAt(loc *time.Location) *time.Time {
	return ParseEventTime(e.EventDate, e.EndTime, loc)
}

// FormatDisplay renders a derived time or "N/A"
func FormatDisplay(t *time.Time) string {
	if t == nil {
		return NotAvailable
	}
	return t.Format(displayLayout)
}

var planPattern = regexp.MustCompile(`^.+:\s*\d{2}:\d{2}$`)

// ValidatePlan checks the "Description: HH:MM" shape of a plan line
func ValidatePlan(line string) (string, error) {
	line = strings.TrimSpace(line)
	if !planPattern.MatchString(line) {
		return "", NewValidationError("plan", "must look like 'Description: HH:MM'")
	}
	return line, nil
}

// AppendPlanLine returns info with line appended on its own line
func AppendPlanLine(info, line string) string {
	if info == "" {
		return line
	}
	return info + "\n" + line
}
