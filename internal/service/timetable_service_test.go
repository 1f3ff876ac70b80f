package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// --- Fixtures ---

type rosterStub struct {
	entries  []models.RosterEntry
	name     string
	nameErr  error
	listErr  error
	lastTerm string
}

func (r *rosterStub) ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.RosterEntry, error) {
	r.lastTerm = termID
	return r.entries, r.listErr
}

func (r *rosterStub) ClassName(ctx context.Context, classID string) (string, error) {
	return r.name, r.nameErr
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, proposal models.TimetableProposal) error {
	return appErrors.Clone(appErrors.ErrInternal, "store down")
}

func (failingStore) Get(ctx context.Context, id string) (*models.TimetableProposal, bool, error) {
	return nil, false, nil
}

func int64Ptr(v int64) *int64 {
	return &v
}

func validTimetableRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		GroupName: "XI IPA",
		StartTime: "07:30",
		EndTime:   "13:30",
		Breaks: []dto.BreakRequest{
			{Time: "09:30", DurationMinutes: 15, Label: "Break (15 mins)"},
			{Time: "11:45", DurationMinutes: 30},
		},
		Subjects: []dto.SubjectRequest{
			{Name: "Math", Faculty: []string{"Alice", "Bob"}, Room: "R1"},
			{Name: "Physics", Faculty: []string{"Carol"}},
			{Name: "History", Faculty: []string{"Dan", "Erin"}},
		},
		ClassesPerDay: 5,
		Sections:      2,
		LabSessions:   2,
		Seed:          int64Ptr(99),
	}
}

func newTimetableServiceForTest(roster RosterSource) (*TimetableService, *MemoryProposalStore) {
	store := NewMemoryProposalStore()
	svc := NewTimetableService(roster, store, NewMetricsService(), nil, zap.NewNop(), TimetableServiceConfig{MaxSections: 4, MaxClassesPerDay: 10})
	return svc, store
}

func TestTimetableServiceGenerateStoresProposal(t *testing.T) {
	svc, store := newTimetableServiceForTest(nil)

	proposal, err := svc.Generate(context.Background(), validTimetableRequest(), "coord-1")
	require.NoError(t, err)
	require.NotEmpty(t, proposal.ID)
	assert.Equal(t, "XI IPA", proposal.GroupName)
	assert.Equal(t, int64(99), proposal.Seed)
	assert.Equal(t, "coord-1", proposal.RequestedBy)
	assert.True(t, proposal.ExpiresAt.After(proposal.RequestedAt))
	assert.NotNil(t, proposal.Warnings)
	assert.Equal(t, 1, store.Len())

	fetched, err := svc.Get(context.Background(), proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.ID, fetched.ID)
	for _, section := range fetched.Timetable.Sections {
		assert.Len(t, section.Days, len(models.Weekdays))
	}
}

func TestTimetableServiceSeedReplaysIdentically(t *testing.T) {
	svc, _ := newTimetableServiceForTest(nil)

	first, err := svc.Generate(context.Background(), validTimetableRequest(), "")
	require.NoError(t, err)
	second, err := svc.Generate(context.Background(), validTimetableRequest(), "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "regeneration creates a new proposal")

	a, err := json.Marshal(first.Timetable)
	require.NoError(t, err)
	b, err := json.Marshal(second.Timetable)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
}

func TestTimetableServiceClockSeedIsReported(t *testing.T) {
	svc, _ := newTimetableServiceForTest(nil)
	req := validTimetableRequest()
	req.Seed = nil

	proposal, err := svc.Generate(context.Background(), req, "")
	require.NoError(t, err)

	req.Seed = int64Ptr(proposal.Seed)
	replay, err := svc.Generate(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, proposal.Timetable, replay.Timetable)
}

func TestTimetableServiceValidation(t *testing.T) {
	svc, _ := newTimetableServiceForTest(nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(req *dto.GenerateTimetableRequest)
		want   *appErrors.Error
	}{
		{"missing start", func(req *dto.GenerateTimetableRequest) { req.StartTime = "" }, appErrors.ErrValidation},
		{"malformed start", func(req *dto.GenerateTimetableRequest) { req.StartTime = "7.30" }, appErrors.ErrValidation},
		{"malformed break", func(req *dto.GenerateTimetableRequest) { req.Breaks[0].Time = "25:00" }, appErrors.ErrValidation},
		{"too many sections", func(req *dto.GenerateTimetableRequest) { req.Sections = 5 }, appErrors.ErrValidation},
		{"too many classes", func(req *dto.GenerateTimetableRequest) { req.ClassesPerDay = 11 }, appErrors.ErrValidation},
		{"roster disabled", func(req *dto.GenerateTimetableRequest) {
			req.Subjects = nil
			req.Roster = &dto.RosterRequest{ClassID: "c", TermID: "t"}
		}, appErrors.ErrValidation},
		{"inverted window", func(req *dto.GenerateTimetableRequest) { req.EndTime = "07:00" }, appErrors.ErrInvalidWindow},
		{"no subjects", func(req *dto.GenerateTimetableRequest) { req.Subjects = nil }, appErrors.ErrNoSubjectsConfigured},
		{"duplicate subject", func(req *dto.GenerateTimetableRequest) {
			req.Subjects = append(req.Subjects, dto.SubjectRequest{Name: " Math "})
		}, appErrors.ErrInvalidConfiguration},
		{"zero classes per day", func(req *dto.GenerateTimetableRequest) { req.ClassesPerDay = 0 }, appErrors.ErrInvalidConfiguration},
		{"negative classes per day", func(req *dto.GenerateTimetableRequest) { req.ClassesPerDay = -2 }, appErrors.ErrInvalidConfiguration},
		{"negative sections", func(req *dto.GenerateTimetableRequest) { req.Sections = -1 }, appErrors.ErrInvalidConfiguration},
		{"lab sessions beyond the week", func(req *dto.GenerateTimetableRequest) { req.LabSessions = 7 }, appErrors.ErrInvalidConfiguration},
		{"breaks fill the day", func(req *dto.GenerateTimetableRequest) {
			req.Breaks = []dto.BreakRequest{{Time: "07:30", DurationMinutes: 360}}
		}, appErrors.ErrInsufficientTime},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validTimetableRequest()
			tc.mutate(&req)
			proposal, err := svc.Generate(ctx, req, "")
			require.Error(t, err)
			assert.Nil(t, proposal)
			assert.Equal(t, tc.want.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestTimetableServiceUsesRoster(t *testing.T) {
	roster := &rosterStub{
		name: "X MIPA 2",
		entries: []models.RosterEntry{
			{SubjectID: "s1", SubjectName: "Biology", TeacherID: "t1", TeacherName: "Fiona"},
			{SubjectID: "s1", SubjectName: "Biology", TeacherID: "t2", TeacherName: "Gus"},
			{SubjectID: "s2", SubjectName: "Chemistry", TeacherID: "t3", TeacherName: "Hana"},
		},
	}
	svc, _ := newTimetableServiceForTest(roster)
	req := validTimetableRequest()
	req.GroupName = ""
	req.Subjects = nil
	req.Roster = &dto.RosterRequest{ClassID: "class-1", TermID: "term-1"}

	proposal, err := svc.Generate(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, "X MIPA 2", proposal.GroupName)
	assert.Equal(t, "term-1", roster.lastTerm)
	for _, section := range proposal.Timetable.Sections {
		for _, day := range section.Days {
			for _, entry := range day.Entries {
				if entry.Slot.Kind.Teaching() {
					assert.Contains(t, []string{"Biology", "Chemistry"}, entry.Subject)
				}
			}
		}
	}
}

func TestTimetableServiceRosterFailures(t *testing.T) {
	req := validTimetableRequest()
	req.Subjects = nil
	req.Roster = &dto.RosterRequest{ClassID: "class-1", TermID: "term-1"}

	svc, _ := newTimetableServiceForTest(&rosterStub{nameErr: sql.ErrNoRows})
	_, err := svc.Generate(context.Background(), req, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	svc, _ = newTimetableServiceForTest(&rosterStub{name: "X", listErr: errors.New("connection reset")})
	_, err = svc.Generate(context.Background(), req, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal))

	svc, _ = newTimetableServiceForTest(&rosterStub{name: "X"})
	_, err = svc.Generate(context.Background(), req, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNoSubjectsConfigured))

	both := validTimetableRequest()
	both.Roster = req.Roster
	_, err = svc.Generate(context.Background(), both, "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestTimetableServiceDefaultsGroupNameAndSections(t *testing.T) {
	svc, _ := newTimetableServiceForTest(nil)
	req := validTimetableRequest()
	req.GroupName = "  "
	req.Sections = 0

	proposal, err := svc.Generate(context.Background(), req, "")
	require.NoError(t, err)
	assert.Equal(t, DefaultGroupName, proposal.GroupName)
	require.Len(t, proposal.Timetable.Sections, 1)
	assert.Equal(t, "Section 1", proposal.Timetable.Sections[0].Section)
}

func TestTimetableServiceStoreFailure(t *testing.T) {
	svc := NewTimetableService(nil, failingStore{}, nil, nil, nil, TimetableServiceConfig{})
	_, err := svc.Generate(context.Background(), validTimetableRequest(), "")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal))
}

func TestTimetableServiceGetMissingOrExpired(t *testing.T) {
	svc, store := newTimetableServiceForTest(nil)
	ctx := context.Background()

	_, err := svc.Get(ctx, "not-a-uuid")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))

	proposal, err := svc.Generate(ctx, validTimetableRequest(), "")
	require.NoError(t, err)
	store.now = func() time.Time { return proposal.ExpiresAt.Add(time.Second) }

	_, err = svc.Get(ctx, proposal.ID)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Zero(t, store.Len())
}
