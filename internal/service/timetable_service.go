package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/dto"
	"github.com/noah-isme/timetable-api/internal/models"
	appErrors "github.com/noah-isme/timetable-api/pkg/errors"
)

// DefaultGroupName titles timetables whose request names no group.
const DefaultGroupName = "Timetable"

// RosterSource loads subject pools from the school database.
type RosterSource interface {
	ListByClassAndTerm(ctx context.Context, classID, termID string) ([]models.RosterEntry, error)
	ClassName(ctx context.Context, classID string) (string, error)
}

// TimetableServiceConfig bounds what a single request may ask for.
type TimetableServiceConfig struct {
	MaxSections      int
	MaxClassesPerDay int
	RetryCap         int
	ProposalTTL      time.Duration
}

// TimetableService turns generation requests into stored proposals.
type TimetableService struct {
	roster        RosterSource
	store         ProposalStore
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	cfg           TimetableServiceConfig
	now           func() time.Time
	newRandomizer func(seed int64) Randomizer
}

// NewTimetableService wires the generation pipeline. roster may be nil when no
// school database is configured; store defaults to an in-memory store.
func NewTimetableService(roster RosterSource, store ProposalStore, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg TimetableServiceConfig) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = NewMemoryProposalStore()
	}
	if cfg.MaxSections <= 0 {
		cfg.MaxSections = 26
	}
	if cfg.MaxClassesPerDay <= 0 {
		cfg.MaxClassesPerDay = 16
	}
	if cfg.RetryCap <= 0 {
		cfg.RetryCap = DefaultRetryCap
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &TimetableService{
		roster:    roster,
		store:     store,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
		newRandomizer: func(seed int64) Randomizer {
			return NewSeededRandomizer(seed)
		},
	}
}

// Generate validates the request, runs the planner and engine with a dedicated
// randomizer, and stores the result as a new proposal.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest, requestedBy string) (*models.TimetableProposal, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	if req.Sections == 0 {
		req.Sections = 1
	}
	if req.Sections > s.cfg.MaxSections {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("sections must not exceed %d", s.cfg.MaxSections))
	}
	if req.ClassesPerDay > s.cfg.MaxClassesPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("classesPerDay must not exceed %d", s.cfg.MaxClassesPerDay))
	}

	groupName := strings.TrimSpace(req.GroupName)
	subjects, rosterName, err := s.resolveSubjects(ctx, req)
	if err != nil {
		return nil, err
	}
	if groupName == "" {
		groupName = rosterName
	}
	if groupName == "" {
		groupName = DefaultGroupName
	}

	cfg, err := BuildGenerationConfig(req, subjects, s.cfg.RetryCap)
	if err != nil {
		return nil, err
	}

	seed := NewClockSeed()
	if req.Seed != nil {
		seed = *req.Seed
	}
	logger := s.logger.With(zap.String("group", groupName), zap.Int64("seed", seed))

	started := time.Now()
	engine := NewAssignmentEngine(s.newRandomizer(seed), logger)
	result, err := engine.Generate(cfg)
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.ObserveGeneration(OutcomeRejected, models.GenerationStats{}, 0, elapsed)
		logger.Info("timetable generation rejected", zap.Error(err))
		return nil, err
	}

	outcome := OutcomeComplete
	if len(result.Warnings) > 0 {
		outcome = OutcomePartial
	}
	s.metrics.ObserveGeneration(outcome, result.Stats, len(result.Warnings), elapsed)

	requestedAt := s.now().UTC()
	proposal := models.TimetableProposal{
		ID:          uuid.NewString(),
		GroupName:   groupName,
		Seed:        seed,
		RequestedBy: requestedBy,
		RequestedAt: requestedAt,
		ExpiresAt:   requestedAt.Add(s.cfg.ProposalTTL),
		Slots:       result.Slots,
		Timetable:   *result.Timetable,
		Warnings:    result.Warnings,
		Stats:       result.Stats,
	}
	if proposal.Warnings == nil {
		proposal.Warnings = []models.GenerationWarning{}
	}
	if err := s.store.Save(ctx, proposal); err != nil {
		return nil, err
	}

	logger.Info("timetable generated",
		zap.String("proposal_id", proposal.ID),
		zap.String("outcome", outcome),
		zap.Int("sections", len(proposal.Timetable.Sections)),
		zap.Int("retries", result.Stats.Retries),
		zap.Int("free_slots", result.Stats.FreeSlots),
		zap.Duration("elapsed", elapsed))
	return &proposal, nil
}

// Get returns a stored proposal.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.TimetableProposal, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found")
	}
	proposal, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	return proposal, nil
}

func (s *TimetableService) resolveSubjects(ctx context.Context, req dto.GenerateTimetableRequest) ([]models.Subject, string, error) {
	if req.Roster == nil {
		return SubjectsFromRequest(req.Subjects), "", nil
	}
	if len(req.Subjects) > 0 {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "subjects and roster are mutually exclusive")
	}
	if s.roster == nil {
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "roster lookups are not enabled on this server")
	}

	name, err := s.roster.ClassName(ctx, req.Roster.ClassID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	entries, err := s.roster.ListByClassAndTerm(ctx, req.Roster.ClassID, req.Roster.TermID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return models.SubjectsFromRoster(entries), name, nil
}

// SubjectsFromRequest copies inline subjects, trimming names.
func SubjectsFromRequest(items []dto.SubjectRequest) []models.Subject {
	subjects := make([]models.Subject, 0, len(items))
	for _, item := range items {
		faculty := make([]string, 0, len(item.Faculty))
		for _, member := range item.Faculty {
			faculty = append(faculty, strings.TrimSpace(member))
		}
		subjects = append(subjects, models.Subject{
			Name:    strings.TrimSpace(item.Name),
			Faculty: faculty,
			Room:    strings.TrimSpace(item.Room),
		})
	}
	return subjects
}

// BuildGenerationConfig parses the clock values of a request into an engine configuration.
func BuildGenerationConfig(req dto.GenerateTimetableRequest, subjects []models.Subject, retryCap int) (models.GenerationConfig, error) {
	start, err := models.ParseClockTime(req.StartTime)
	if err != nil {
		return models.GenerationConfig{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "startTime must be HH:MM")
	}
	end, err := models.ParseClockTime(req.EndTime)
	if err != nil {
		return models.GenerationConfig{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "endTime must be HH:MM")
	}
	breaks := make([]models.BreakInterval, 0, len(req.Breaks))
	for _, item := range req.Breaks {
		at, err := models.ParseClockTime(item.Time)
		if err != nil {
			return models.GenerationConfig{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "break time must be HH:MM")
		}
		breaks = append(breaks, models.BreakInterval{Start: at, DurationMinutes: item.DurationMinutes, Label: strings.TrimSpace(item.Label)})
	}
	sections := req.Sections
	if sections == 0 {
		sections = 1
	}
	return models.GenerationConfig{
		Start:         start,
		End:           end,
		Breaks:        breaks,
		Subjects:      subjects,
		ClassesPerDay: req.ClassesPerDay,
		Sections:      sections,
		LabDays:       req.LabDays,
		LabSessions:   req.LabSessions,
		RetryCap:      retryCap,
	}, nil
}
