package dto

import "time"

// BreakRequest anchors a break at a clock time.
type BreakRequest struct {
	Time            string `json:"time" validate:"required"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,min=1,max=720"`
	Label           string `json:"label" validate:"omitempty,max=60"`
}

// SubjectRequest lists a subject and the instructors qualified to teach it.
type SubjectRequest struct {
	Name    string   `json:"name" validate:"required,max=80"`
	Faculty []string `json:"faculty" validate:"omitempty,max=32,dive,required,max=80"`
	Room    string   `json:"room" validate:"omitempty,max=40"`
}

// RosterRequest loads subjects and instructors from the school database instead.
type RosterRequest struct {
	ClassID string `json:"classId" validate:"required"`
	TermID  string `json:"termId" validate:"required"`
}

// GenerateTimetableRequest is the payload of POST /timetables/generate and of the CLI request file.
// Class, section and lab counts are checked by the engine so they fail as INVALID_CONFIGURATION.
type GenerateTimetableRequest struct {
	GroupName     string           `json:"groupName" validate:"omitempty,max=120"`
	StartTime     string           `json:"startTime" validate:"required"`
	EndTime       string           `json:"endTime" validate:"required"`
	Breaks        []BreakRequest   `json:"breaks" validate:"omitempty,max=16,dive"`
	Subjects      []SubjectRequest `json:"subjects" validate:"omitempty,max=64,dive"`
	ClassesPerDay int              `json:"classesPerDay"`
	Sections      int              `json:"sections"`
	LabDays       []string         `json:"labDays" validate:"omitempty,max=6,dive,required"`
	LabSessions   int              `json:"labSessions"`
	Seed          *int64           `json:"seed"`
	Roster        *RosterRequest   `json:"roster" validate:"omitempty"`
}

// ExportTimetableRequest selects the rendering of a proposal.
type ExportTimetableRequest struct {
	Format string `json:"format" validate:"required,oneof=pdf csv"`
}

// ExportTimetableResponse points at the rendered file.
type ExportTimetableResponse struct {
	ProposalID string    `json:"proposalId"`
	Format     string    `json:"format"`
	URL        string    `json:"url"`
	ExpiresAt  time.Time `json:"expiresAt"`
}
