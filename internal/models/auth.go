package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the roles accepted by the timetable API.
type UserRole string

const (
	// RoleAdmin manages every timetable.
	RoleAdmin UserRole = "ADMIN"
	// RoleCoordinator generates timetables for the groups they coordinate.
	RoleCoordinator UserRole = "COORDINATOR"
	// RoleViewer may only read and export proposals.
	RoleViewer UserRole = "VIEWER"
)

// Valid reports whether the role is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoordinator, RoleViewer:
		return true
	}
	return false
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
