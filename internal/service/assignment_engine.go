package service

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// DefaultRetryCap bounds how often a section day is regenerated to avoid
// cross-section instructor collisions.
const DefaultRetryCap = 10

// GenerationResult is the full output of planning plus assignment.
type GenerationResult struct {
	Slots     []models.Slot
	Timetable *models.MultiSectionTimetable
	Warnings  []models.GenerationWarning
	Stats     models.GenerationStats
}

// AssignmentEngine fills planned slots with subjects and instructors.
// An engine owns its randomizer and must not be shared between concurrent runs.
type AssignmentEngine struct {
	rng    Randomizer
	logger *zap.Logger
	stats  models.GenerationStats
}

// NewAssignmentEngine builds an engine around the provided randomizer.
func NewAssignmentEngine(rng Randomizer, logger *zap.Logger) *AssignmentEngine {
	if rng == nil {
		rng = NewSeededRandomizer(NewClockSeed())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentEngine{rng: rng, logger: logger}
}

// Generate validates the configuration, plans the day and assigns every section.
func (e *AssignmentEngine) Generate(cfg models.GenerationConfig) (*GenerationResult, error) {
	if err := ValidateGenerationConfig(cfg); err != nil {
		return nil, err
	}
	slots, err := PlanSlots(cfg.Start, cfg.End, cfg.Breaks, cfg.ClassesPerDay)
	if err != nil {
		return nil, err
	}
	timetable, warnings, err := e.Assign(slots, cfg)
	if err != nil {
		return nil, err
	}
	return &GenerationResult{Slots: slots, Timetable: timetable, Warnings: warnings, Stats: e.stats}, nil
}

// Assign builds one timetable per section. Sections whose days keep colliding with
// earlier sections are left out and reported through a COULD_NOT_GENERATE_UNIQUE warning.
func (e *AssignmentEngine) Assign(slots []models.Slot, cfg models.GenerationConfig) (*models.MultiSectionTimetable, []models.GenerationWarning, error) {
	if err := ValidateGenerationConfig(cfg); err != nil {
		return nil, nil, err
	}
	if !hasTeachingSlot(slots) {
		return nil, nil, appErrors.Clone(appErrors.ErrInsufficientTime, "slot plan contains no class slots")
	}
	retryCap := cfg.RetryCap
	if retryCap <= 0 {
		retryCap = DefaultRetryCap
	}
	e.stats = models.GenerationStats{}

	schedule := newFacultySchedule()
	result := &models.MultiSectionTimetable{Sections: make([]models.Timetable, 0, cfg.Sections)}
	var warnings []models.GenerationWarning

	for index := 0; index < cfg.Sections; index++ {
		label := models.SectionLabel(index)
		labDays := e.labDays(cfg)
		timetable := models.Timetable{Section: label, Days: make([]models.DaySchedule, 0, len(models.Weekdays))}
		failed := false

		for _, day := range models.Weekdays {
			daySlots := slotsForDay(slots, labDays[day])
			var (
				candidate models.DaySchedule
				accepted  bool
			)
			for attempt := 1; attempt <= retryCap; attempt++ {
				e.stats.Attempts++
				candidate = e.fillDay(day, daySlots, cfg.Subjects)
				if !schedule.collides(candidate) {
					accepted = true
					break
				}
				e.stats.Retries++
				e.logger.Debug("cross-section collision, regenerating day",
					zap.String("section", label), zap.String("day", day), zap.Int("attempt", attempt))
			}
			if !accepted {
				warnings = append(warnings, models.GenerationWarning{
					Code:     appErrors.ErrCouldNotGenerateUnique.Code,
					Section:  label,
					Day:      day,
					Attempts: retryCap,
					Message:  fmt.Sprintf("%s: instructors still collide with earlier sections on %s after %d attempts", label, day, retryCap),
				})
				e.logger.Warn("section dropped after exhausting retries",
					zap.String("section", label), zap.String("day", day), zap.Int("attempts", retryCap))
				failed = true
				break
			}
			timetable.Days = append(timetable.Days, candidate)
		}
		if failed {
			continue
		}
		for _, day := range timetable.Days {
			schedule.commit(day)
			e.stats.Resets += lastRound(day)
			for _, entry := range day.Entries {
				switch {
				case entry.Status == models.EntryStatusNoFaculty:
					e.stats.FreeSlots++
				case entry.Slot.Kind == models.SlotKindLab:
					e.stats.LabSlots++
				}
			}
		}
		result.Sections = append(result.Sections, timetable)
	}
	return result, warnings, nil
}

// Stats returns the counters of the last Assign call.
func (e *AssignmentEngine) Stats() models.GenerationStats {
	return e.stats
}

// fillDay resolves one day. Subjects may repeat once every subject has been used:
// both used sets are then cleared and Round advances, so instructor repeats only
// happen across rounds.
func (e *AssignmentEngine) fillDay(day string, slots []models.Slot, subjects []models.Subject) models.DaySchedule {
	usedSubjects := make(map[string]bool, len(subjects))
	usedFaculty := make(map[string]bool)
	round := 0
	entries := make([]models.DayEntry, 0, len(slots))

	for _, slot := range slots {
		if !slot.Kind.Teaching() {
			entries = append(entries, models.DayEntry{Slot: slot, Status: models.EntryStatusBreak, Round: round})
			continue
		}

		var subject models.Subject
		if slot.Kind == models.SlotKindLab {
			subject = subjects[e.rng.Intn(len(subjects))]
		} else {
			available := unusedSubjects(subjects, usedSubjects)
			if len(available) == 0 {
				usedSubjects = make(map[string]bool, len(subjects))
				usedFaculty = make(map[string]bool)
				round++
				available = subjects
			}
			subject = available[e.rng.Intn(len(available))]
		}

		faculty := unusedFaculty(subject.Faculty, usedFaculty)
		if len(faculty) == 0 {
			entries = append(entries, models.DayEntry{
				Slot:    slot,
				Subject: subject.Name,
				Status:  models.EntryStatusNoFaculty,
				Round:   round,
			})
			continue
		}
		instructor := faculty[e.rng.Intn(len(faculty))]
		usedSubjects[subject.Name] = true
		usedFaculty[instructor] = true
		entries = append(entries, models.DayEntry{
			Slot:       slot,
			Subject:    subject.Name,
			Instructor: instructor,
			Room:       subject.Room,
			Status:     models.EntryStatusAssigned,
			Round:      round,
		})
	}
	return models.DaySchedule{Day: day, Entries: entries}
}

// lastRound is the number of pool resets fillDay made on day.
func lastRound(day models.DaySchedule) int {
	round := 0
	for _, entry := range day.Entries {
		if entry.Round > round {
			round = entry.Round
		}
	}
	return round
}

// labDays picks the lab days of one section, either explicit or sampled.
func (e *AssignmentEngine) labDays(cfg models.GenerationConfig) map[string]bool {
	days := make(map[string]bool, len(models.Weekdays))
	if len(cfg.LabDays) > 0 {
		for _, raw := range cfg.LabDays {
			if day, ok := models.NormalizeWeekday(raw); ok {
				days[day] = true
			}
		}
		return days
	}
	if cfg.LabSessions <= 0 {
		return days
	}
	for _, idx := range e.rng.Perm(len(models.Weekdays))[:cfg.LabSessions] {
		days[models.Weekdays[idx]] = true
	}
	return days
}

// slotsForDay copies the plan, turning the first class of a lab day into the lab.
func slotsForDay(plan []models.Slot, lab bool) []models.Slot {
	slots := make([]models.Slot, len(plan))
	copy(slots, plan)
	if !lab {
		return slots
	}
	for i := range slots {
		if slots[i].Kind == models.SlotKindClass {
			slots[i].Kind = models.SlotKindLab
			slots[i].Label = "Lab"
			break
		}
	}
	return slots
}

func unusedSubjects(subjects []models.Subject, used map[string]bool) []models.Subject {
	result := make([]models.Subject, 0, len(subjects))
	for _, subject := range subjects {
		if !used[subject.Name] {
			result = append(result, subject)
		}
	}
	return result
}

func unusedFaculty(pool []string, used map[string]bool) []string {
	result := make([]string, 0, len(pool))
	for _, member := range pool {
		if !used[member] {
			result = append(result, member)
		}
	}
	return result
}

func hasTeachingSlot(slots []models.Slot) bool {
	for _, slot := range slots {
		if slot.Kind.Teaching() {
			return true
		}
	}
	return false
}

// ValidateGenerationConfig checks every precondition that must hold before assignment starts.
func ValidateGenerationConfig(cfg models.GenerationConfig) error {
	if len(cfg.Subjects) == 0 {
		return appErrors.Clone(appErrors.ErrNoSubjectsConfigured, "")
	}
	if cfg.ClassesPerDay <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfiguration, "classes per day must be greater than zero")
	}
	if cfg.Sections <= 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfiguration, "number of sections must be greater than zero")
	}
	seen := make(map[string]bool, len(cfg.Subjects))
	for _, subject := range cfg.Subjects {
		name := strings.TrimSpace(subject.Name)
		if name == "" {
			return appErrors.Clone(appErrors.ErrInvalidConfiguration, "subject names must not be blank")
		}
		if seen[name] {
			return appErrors.Clone(appErrors.ErrInvalidConfiguration, fmt.Sprintf("subject %q is listed twice", name))
		}
		seen[name] = true
		for _, member := range subject.Faculty {
			if strings.TrimSpace(member) == "" {
				return appErrors.Clone(appErrors.ErrInvalidConfiguration, fmt.Sprintf("subject %q has a blank faculty name", name))
			}
		}
	}
	if len(cfg.LabDays) > 0 && cfg.LabSessions > 0 {
		return appErrors.Clone(appErrors.ErrInvalidConfiguration, "lab days and lab sessions are mutually exclusive")
	}
	if cfg.LabSessions < 0 || cfg.LabSessions > len(models.Weekdays) {
		return appErrors.Clone(appErrors.ErrInvalidConfiguration, fmt.Sprintf("lab sessions must be between 0 and %d", len(models.Weekdays)))
	}
	for _, raw := range cfg.LabDays {
		if _, ok := models.NormalizeWeekday(raw); !ok {
			return appErrors.Clone(appErrors.ErrInvalidConfiguration, fmt.Sprintf("unknown lab day %q", raw))
		}
	}
	return nil
}

// facultySchedule records which instructors each committed section uses per day and slot.
type facultySchedule map[string]map[models.ClockTime]map[string]bool

func newFacultySchedule() facultySchedule {
	return make(facultySchedule)
}

func (s facultySchedule) collides(day models.DaySchedule) bool {
	slots := s[day.Day]
	if slots == nil {
		return false
	}
	for _, entry := range day.Entries {
		if entry.Instructor == "" {
			continue
		}
		if slots[entry.Slot.Start][entry.Instructor] {
			return true
		}
	}
	return false
}

func (s facultySchedule) commit(day models.DaySchedule) {
	if s[day.Day] == nil {
		s[day.Day] = make(map[models.ClockTime]map[string]bool)
	}
	for _, entry := range day.Entries {
		if entry.Instructor == "" {
			continue
		}
		if s[day.Day][entry.Slot.Start] == nil {
			s[day.Day][entry.Slot.Start] = make(map[string]bool)
		}
		s[day.Day][entry.Slot.Start][entry.Instructor] = true
	}
}
