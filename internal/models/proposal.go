package models

import "time"

// GenerationStats summarises the work done by one engine run.
type GenerationStats struct {
	Attempts  int `json:"attempts"`
	Retries   int `json:"retries"`
	FreeSlots int `json:"freeSlots"`
	LabSlots  int `json:"labSlots"`
	Resets    int `json:"resets"`
}

// TimetableProposal is a generated timetable kept for a short time so it can be
// fetched again or exported. Proposals are never mutated; regenerating creates a new one.
type TimetableProposal struct {
	ID          string                `json:"proposalId"`
	GroupName   string                `json:"groupName"`
	Seed        int64                 `json:"seed"`
	RequestedBy string                `json:"requestedBy,omitempty"`
	RequestedAt time.Time             `json:"requestedAt"`
	ExpiresAt   time.Time             `json:"expiresAt"`
	Slots       []Slot                `json:"slots"`
	Timetable   MultiSectionTimetable `json:"timetable"`
	Warnings    []GenerationWarning   `json:"warnings"`
	Stats       GenerationStats       `json:"stats"`
}

// Expired reports whether the proposal is past its retention window.
func (p TimetableProposal) Expired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && now.After(p.ExpiresAt)
}
