package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

func TestAssignmentEngineSingleSubjectFillsEverySlot(t *testing.T) {
	cfg := engineConfig([]models.Subject{{Name: "Math", Faculty: []string{"Alice"}}}, 3, 1)
	result, err := NewAssignmentEngine(NewSeededRandomizer(7), zap.NewNop()).Generate(cfg)
	require.NoError(t, err)
	require.Len(t, result.Timetable.Sections, 1)

	for _, day := range result.Timetable.Sections[0].Days {
		class := 0
		for _, entry := range day.Entries {
			if !entry.Slot.Kind.Teaching() {
				assert.Equal(t, models.EntryStatusBreak, entry.Status)
				continue
			}
			assert.Equal(t, models.EntryStatusAssigned, entry.Status)
			assert.Equal(t, "Math", entry.Subject)
			assert.Equal(t, "Alice", entry.Instructor)
			assert.Equal(t, class, entry.Round, "every repeat must follow a pool reset")
			class++
		}
		assert.Equal(t, 3, class)
	}
	assert.Equal(t, 12, result.Stats.Resets)
	assert.Zero(t, result.Stats.FreeSlots)
}

func TestAssignmentEngineInstructorsUniqueWithinRound(t *testing.T) {
	subjects := []models.Subject{
		{Name: "Math", Faculty: []string{"Alice", "Bob"}},
		{Name: "Physics", Faculty: []string{"Carol"}},
		{Name: "Chemistry", Faculty: []string{"Dan", "Erin"}},
		{Name: "English", Faculty: []string{"Frank"}},
	}
	cfg := engineConfig(subjects, 7, 2)
	cfg.LabSessions = 3

	for seed := int64(1); seed <= 25; seed++ {
		result, err := NewAssignmentEngine(NewSeededRandomizer(seed), nil).Generate(cfg)
		require.NoError(t, err)
		for _, section := range result.Timetable.Sections {
			for _, day := range section.Days {
				seen := map[int]map[string]bool{}
				for _, entry := range day.Entries {
					if entry.Instructor == "" {
						continue
					}
					if seen[entry.Round] == nil {
						seen[entry.Round] = map[string]bool{}
					}
					assert.False(t, seen[entry.Round][entry.Instructor], "seed %d %s %s: %s repeated within a round", seed, section.Section, day.Day, entry.Instructor)
					seen[entry.Round][entry.Instructor] = true
				}
			}
		}
	}
}

func TestAssignmentEngineSubjectsComeFromConfiguredSet(t *testing.T) {
	subjects := []models.Subject{
		{Name: "Math", Faculty: []string{"Alice"}, Room: "R101"},
		{Name: "Biology", Faculty: []string{"Bob"}},
	}
	result, err := NewAssignmentEngine(NewSeededRandomizer(3), nil).Generate(engineConfig(subjects, 4, 1))
	require.NoError(t, err)

	for _, day := range result.Timetable.Sections[0].Days {
		for _, entry := range day.Entries {
			if !entry.Slot.Kind.Teaching() {
				continue
			}
			assert.Contains(t, []string{"Math", "Biology"}, entry.Subject)
			if entry.Subject == "Math" {
				assert.Equal(t, "R101", entry.Room)
			}
		}
	}
}

func TestAssignmentEngineEmptyPoolDegradesToFree(t *testing.T) {
	subjects := []models.Subject{{Name: "Art"}}
	result, err := NewAssignmentEngine(NewSeededRandomizer(1), nil).Generate(engineConfig(subjects, 2, 1))
	require.NoError(t, err)

	for _, day := range result.Timetable.Sections[0].Days {
		for _, entry := range day.Entries {
			if !entry.Slot.Kind.Teaching() {
				continue
			}
			assert.Equal(t, models.EntryStatusNoFaculty, entry.Status)
			assert.Equal(t, "Art", entry.Subject)
			assert.Empty(t, entry.Instructor)
			assert.Equal(t, models.FreeLabel, entry.Display())
		}
	}
	assert.Equal(t, 12, result.Stats.FreeSlots)
}

func TestAssignmentEngineWeekIsFixed(t *testing.T) {
	subjects := []models.Subject{{Name: "Math", Faculty: []string{"Alice", "Bob", "Carol", "Dan", "Erin", "Frank"}}}
	result, err := NewAssignmentEngine(NewSeededRandomizer(11), nil).Generate(engineConfig(subjects, 1, 2))
	require.NoError(t, err)
	require.NotEmpty(t, result.Timetable.Sections)
	assert.Equal(t, "Section 1", result.Timetable.Sections[0].Section)

	for _, section := range result.Timetable.Sections {
		names := make([]string, 0, len(section.Days))
		for _, day := range section.Days {
			names = append(names, day.Day)
		}
		assert.Equal(t, models.Weekdays, names)
		_, ok := section.Day("saturday")
		assert.True(t, ok)
	}
}

func TestAssignmentEngineCrossSectionRetryCap(t *testing.T) {
	cfg := models.GenerationConfig{
		Start:         models.MustClock("09:00"),
		End:           models.MustClock("10:00"),
		Subjects:      []models.Subject{{Name: "Math", Faculty: []string{"Alice"}}},
		ClassesPerDay: 1,
		Sections:      2,
	}
	engine := NewAssignmentEngine(NewSeededRandomizer(5), nil)
	result, err := engine.Generate(cfg)
	require.NoError(t, err)

	require.Len(t, result.Timetable.Sections, 1)
	assert.Equal(t, "Section 1", result.Timetable.Sections[0].Section)
	_, ok := result.Timetable.Section("Section 2")
	assert.False(t, ok, "colliding section must never be returned")

	require.Len(t, result.Warnings, 1)
	warning := result.Warnings[0]
	assert.Equal(t, appErrors.ErrCouldNotGenerateUnique.Code, warning.Code)
	assert.Equal(t, "Section 2", warning.Section)
	assert.Equal(t, "Monday", warning.Day)
	assert.Equal(t, DefaultRetryCap, warning.Attempts)
	assert.Equal(t, DefaultRetryCap, result.Stats.Retries)
	assert.Equal(t, len(models.Weekdays)+DefaultRetryCap, result.Stats.Attempts)
}

func TestAssignmentEngineResetsCountOnlyCommittedDays(t *testing.T) {
	cfg := models.GenerationConfig{
		Start:         models.MustClock("09:00"),
		End:           models.MustClock("10:00"),
		Subjects:      []models.Subject{{Name: "Math", Faculty: []string{"Alice"}}},
		ClassesPerDay: 2,
		Sections:      2,
	}
	result, err := NewAssignmentEngine(NewSeededRandomizer(11), nil).Generate(cfg)
	require.NoError(t, err)

	require.Len(t, result.Timetable.Sections, 1)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, DefaultRetryCap, result.Stats.Retries)
	assert.Equal(t, len(models.Weekdays), result.Stats.Resets)
}

func TestAssignmentEngineCustomRetryCap(t *testing.T) {
	cfg := models.GenerationConfig{
		Start:         models.MustClock("09:00"),
		End:           models.MustClock("10:00"),
		Subjects:      []models.Subject{{Name: "Math", Faculty: []string{"Alice"}}},
		ClassesPerDay: 1,
		Sections:      3,
		RetryCap:      3,
	}
	result, err := NewAssignmentEngine(NewSeededRandomizer(5), nil).Generate(cfg)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 2)
	for _, warning := range result.Warnings {
		assert.Equal(t, 3, warning.Attempts)
	}
}

func TestAssignmentEngineSectionsDoNotShareInstructorsAtSameTime(t *testing.T) {
	subjects := []models.Subject{
		{Name: "Math", Faculty: []string{"Alice", "Bob", "Carol"}},
		{Name: "History", Faculty: []string{"Dan", "Erin", "Frank"}},
	}
	cfg := engineConfig(subjects, 2, 3)

	result, err := NewAssignmentEngine(NewSeededRandomizer(42), nil).Generate(cfg)
	require.NoError(t, err)

	occupied := map[string]map[models.ClockTime]map[string]string{}
	for _, section := range result.Timetable.Sections {
		for _, day := range section.Days {
			if occupied[day.Day] == nil {
				occupied[day.Day] = map[models.ClockTime]map[string]string{}
			}
			for _, entry := range day.Entries {
				if entry.Instructor == "" {
					continue
				}
				if occupied[day.Day][entry.Slot.Start] == nil {
					occupied[day.Day][entry.Slot.Start] = map[string]string{}
				}
				other, taken := occupied[day.Day][entry.Slot.Start][entry.Instructor]
				assert.False(t, taken, "%s teaches %s and %s at %s on %s", entry.Instructor, other, section.Section, entry.Slot.Start, day.Day)
				occupied[day.Day][entry.Slot.Start][entry.Instructor] = section.Section
			}
		}
	}
}

func TestAssignmentEngineIsDeterministicForSeed(t *testing.T) {
	subjects := []models.Subject{
		{Name: "Math", Faculty: []string{"Alice", "Bob"}},
		{Name: "Physics", Faculty: []string{"Carol", "Dan"}},
		{Name: "Chemistry", Faculty: []string{"Erin"}},
	}
	cfg := engineConfig(subjects, 5, 3)
	cfg.LabSessions = 2

	first, err := NewAssignmentEngine(NewSeededRandomizer(2024), nil).Generate(cfg)
	require.NoError(t, err)
	second, err := NewAssignmentEngine(NewSeededRandomizer(2024), nil).Generate(cfg)
	require.NoError(t, err)

	a, err := json.Marshal(first.Timetable)
	require.NoError(t, err)
	b, err := json.Marshal(second.Timetable)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAssignmentEngineExplicitLabDays(t *testing.T) {
	subjects := []models.Subject{
		{Name: "Math", Faculty: []string{"Alice"}},
		{Name: "Physics", Faculty: []string{"Bob"}},
	}
	cfg := engineConfig(subjects, 3, 1)
	cfg.LabDays = []string{"monday", "Wednesday"}

	result, err := NewAssignmentEngine(NewSeededRandomizer(9), nil).Generate(cfg)
	require.NoError(t, err)

	for _, day := range result.Timetable.Sections[0].Days {
		labs, teaching := 0, 0
		for _, entry := range day.Entries {
			if entry.Slot.Kind == models.SlotKindLab {
				labs++
			}
			if entry.Slot.Kind.Teaching() {
				teaching++
			}
		}
		if day.Day == "Monday" || day.Day == "Wednesday" {
			assert.Equal(t, 1, labs, day.Day)
			assert.Equal(t, models.SlotKindLab, day.Entries[0].Slot.Kind)
		} else {
			assert.Zero(t, labs, day.Day)
		}
		assert.Equal(t, 3, teaching, "a lab replaces a class instead of adding one")
	}
	assert.Equal(t, 2, result.Stats.LabSlots)
}

func TestAssignmentEngineSampledLabSessions(t *testing.T) {
	cfg := engineConfig([]models.Subject{{Name: "Math", Faculty: []string{"Alice", "Bob"}}}, 2, 1)
	cfg.LabSessions = 4

	result, err := NewAssignmentEngine(NewSeededRandomizer(77), nil).Generate(cfg)
	require.NoError(t, err)

	labDays := 0
	for _, day := range result.Timetable.Sections[0].Days {
		if day.Entries[0].Slot.Kind == models.SlotKindLab {
			labDays++
		}
	}
	assert.Equal(t, 4, labDays)
}

func TestAssignmentEnginePreconditions(t *testing.T) {
	valid := engineConfig([]models.Subject{{Name: "Math", Faculty: []string{"Alice"}}}, 2, 1)

	cases := []struct {
		name   string
		mutate func(cfg *models.GenerationConfig)
		want   *appErrors.Error
	}{
		{"no subjects", func(cfg *models.GenerationConfig) { cfg.Subjects = nil }, appErrors.ErrNoSubjectsConfigured},
		{"zero classes", func(cfg *models.GenerationConfig) { cfg.ClassesPerDay = 0 }, appErrors.ErrInvalidConfiguration},
		{"zero sections", func(cfg *models.GenerationConfig) { cfg.Sections = 0 }, appErrors.ErrInvalidConfiguration},
		{"duplicate subject", func(cfg *models.GenerationConfig) {
			cfg.Subjects = append(cfg.Subjects, models.Subject{Name: "Math"})
		}, appErrors.ErrInvalidConfiguration},
		{"blank faculty", func(cfg *models.GenerationConfig) {
			cfg.Subjects = []models.Subject{{Name: "Math", Faculty: []string{" "}}}
		}, appErrors.ErrInvalidConfiguration},
		{"unknown lab day", func(cfg *models.GenerationConfig) { cfg.LabDays = []string{"Sunday"} }, appErrors.ErrInvalidConfiguration},
		{"both lab options", func(cfg *models.GenerationConfig) {
			cfg.LabDays = []string{"Monday"}
			cfg.LabSessions = 1
		}, appErrors.ErrInvalidConfiguration},
		{"too many lab sessions", func(cfg *models.GenerationConfig) { cfg.LabSessions = 7 }, appErrors.ErrInvalidConfiguration},
		{"inverted window", func(cfg *models.GenerationConfig) {
			cfg.Start, cfg.End = models.MustClock("10:00"), models.MustClock("09:00")
		}, appErrors.ErrInvalidWindow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			result, err := NewAssignmentEngine(NewSeededRandomizer(1), nil).Generate(cfg)
			require.Error(t, err)
			assert.Nil(t, result)
			assert.Equal(t, tc.want.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestAssignmentEngineAssignRejectsPlanWithoutClasses(t *testing.T) {
	cfg := engineConfig([]models.Subject{{Name: "Math", Faculty: []string{"Alice"}}}, 1, 1)
	slots := []models.Slot{{Start: models.MustClock("09:00"), End: models.MustClock("09:30"), Kind: models.SlotKindBreak}}

	_, _, err := NewAssignmentEngine(NewSeededRandomizer(1), nil).Assign(slots, cfg)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInsufficientTime))
}

func engineConfig(subjects []models.Subject, classes, sections int) models.GenerationConfig {
	return models.GenerationConfig{
		Start: models.MustClock("09:00"),
		End:   models.MustClock("15:00"),
		Breaks: []models.BreakInterval{
			{Start: models.MustClock("11:00"), DurationMinutes: 10, Label: "Break (10 mins)"},
		},
		Subjects:      subjects,
		ClassesPerDay: classes,
		Sections:      sections,
	}
}
