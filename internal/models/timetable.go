package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Weekdays is the fixed six-day teaching week every timetable covers.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// NormalizeWeekday maps a case-insensitive day name onto its canonical form.
func NormalizeWeekday(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, day := range Weekdays {
		if strings.EqualFold(day, name) {
			return day, true
		}
	}
	return "", false
}

// ClockTime is a wall-clock time expressed as minutes since midnight.
type ClockTime int

// ParseClockTime parses an HH:MM string.
func ParseClockTime(raw string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return ClockTime(hours*60 + minutes), nil
}

// MustClock parses an HH:MM string and panics on malformed input.
func MustClock(raw string) ClockTime {
	t, err := ParseClockTime(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// Add returns the clock time shifted by the given number of minutes.
func (t ClockTime) Add(minutes int) ClockTime {
	return t + ClockTime(minutes)
}

// String formats the time as HH:MM.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// MarshalText renders the time as HH:MM.
func (t ClockTime) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText parses an HH:MM value.
func (t *ClockTime) UnmarshalText(text []byte) error {
	parsed, err := ParseClockTime(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// BreakInterval is a fixed break anchored at a clock time.
type BreakInterval struct {
	Start           ClockTime `json:"start"`
	DurationMinutes int       `json:"durationMinutes"`
	Label           string    `json:"label,omitempty"`
}

// End returns the clock time at which the break finishes.
func (b BreakInterval) End() ClockTime {
	return b.Start.Add(b.DurationMinutes)
}

// DisplayLabel returns the configured label or a generated one.
func (b BreakInterval) DisplayLabel() string {
	if b.Label != "" {
		return b.Label
	}
	if b.DurationMinutes%60 == 0 {
		return fmt.Sprintf("Break (%d hr)", b.DurationMinutes/60)
	}
	return fmt.Sprintf("Break (%d mins)", b.DurationMinutes)
}

// SlotKind tags what a slot is used for.
type SlotKind string

const (
	SlotKindClass SlotKind = "CLASS"
	SlotKindBreak SlotKind = "BREAK"
	SlotKindLab   SlotKind = "LAB"
)

// Teaching reports whether the slot needs a subject and instructor.
func (k SlotKind) Teaching() bool {
	return k == SlotKindClass || k == SlotKindLab
}

// Slot is a bounded interval within a day.
type Slot struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
	Kind  SlotKind  `json:"kind"`
	Label string    `json:"label,omitempty"`
}

// Minutes returns the slot length.
func (s Slot) Minutes() int {
	return int(s.End - s.Start)
}

// Subject is a taught subject together with its faculty pool.
type Subject struct {
	Name    string   `json:"name"`
	Faculty []string `json:"faculty"`
	Room    string   `json:"room,omitempty"`
}

// EntryStatus describes how a slot was resolved.
type EntryStatus string

const (
	EntryStatusAssigned  EntryStatus = "ASSIGNED"
	EntryStatusBreak     EntryStatus = "BREAK"
	EntryStatusNoFaculty EntryStatus = "NO_FACULTY"
)

// Sentinel labels shown for slots whose subject has no free instructor.
const (
	FreeLabel              = "Free"
	NoFacultyAvailableNote = "No Faculty Available"
)

// DayEntry is one resolved slot of a day.
type DayEntry struct {
	Slot       Slot        `json:"slot"`
	Subject    string      `json:"subject,omitempty"`
	Instructor string      `json:"instructor,omitempty"`
	Room       string      `json:"room,omitempty"`
	Status     EntryStatus `json:"status"`
	Round      int         `json:"round"`
}

// Display returns the cell text used by tabular presenters.
func (e DayEntry) Display() string {
	switch e.Status {
	case EntryStatusBreak:
		return e.Slot.Label
	case EntryStatusNoFaculty:
		return FreeLabel
	}
	if e.Slot.Kind == SlotKindLab {
		return fmt.Sprintf("Lab - %s (%s)", e.Subject, e.Instructor)
	}
	return fmt.Sprintf("%s - %s", e.Subject, e.Instructor)
}

// DaySchedule holds the ordered entries of one calendar day.
type DaySchedule struct {
	Day     string     `json:"day"`
	Entries []DayEntry `json:"entries"`
}

// Timetable is one section's full week.
type Timetable struct {
	Section string        `json:"section"`
	Days    []DaySchedule `json:"days"`
}

// Day returns the schedule for the named weekday.
func (t Timetable) Day(name string) (DaySchedule, bool) {
	for _, day := range t.Days {
		if strings.EqualFold(day.Day, name) {
			return day, true
		}
	}
	return DaySchedule{}, false
}

// MultiSectionTimetable groups the timetables of every generated section.
type MultiSectionTimetable struct {
	Sections []Timetable `json:"sections"`
}

// Section returns the timetable for a section label.
func (m MultiSectionTimetable) Section(label string) (Timetable, bool) {
	for _, section := range m.Sections {
		if section.Section == label {
			return section, true
		}
	}
	return Timetable{}, false
}

// GenerationWarning reports a non-fatal problem surfaced alongside a result.
type GenerationWarning struct {
	Code     string `json:"code"`
	Section  string `json:"section"`
	Day      string `json:"day,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
	Message  string `json:"message"`
}

// GenerationConfig is the full input of one generation run.
type GenerationConfig struct {
	Start         ClockTime
	End           ClockTime
	Breaks        []BreakInterval
	Subjects      []Subject
	ClassesPerDay int
	Sections      int
	// LabDays lists explicit lab days; LabSessions samples that many days instead.
	LabDays     []string
	LabSessions int
	RetryCap    int
}

// SectionLabel returns the display label of the zero-based section index.
func SectionLabel(index int) string {
	return fmt.Sprintf("Section %d", index+1)
}
