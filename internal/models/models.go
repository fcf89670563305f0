// Package models defines the core data structures for the Voxa agent.
//
// It includes conversation turns, caller identity, and the payloads exchanged
// with the business backend, which are shared across modules.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Turn roles within a conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// CallerRole classifies who is on the other side of a room.
type CallerRole string

const (
	// CallerOwner is the business owner using the dashboard assistant.
	CallerOwner CallerRole = "owner"
	// CallerCustomer is an identified or to-be-identified customer of a business.
	CallerCustomer CallerRole = "customer"
	// CallerGeneral is a public caller not attached to any business.
	CallerGeneral CallerRole = "general"
)

// IsValidCallerRole checks if the given caller role is supported.
func IsValidCallerRole(r CallerRole) bool {
	switch r {
	case CallerOwner, CallerCustomer, CallerGeneral:
		return true
	default:
		return false
	}
}

// Error variables for better error handling and testability
var (
	ErrEmptyRoom        = errors.New("room name cannot be empty")
	ErrInvalidTurnRole  = errors.New("turn role must be user or assistant")
	ErrEmptyTurnContent = errors.New("turn content cannot be empty")
	ErrInvalidRole      = errors.New("invalid caller role")
)

// Turn represents a single message in a room's conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Validate performs validation on a Turn structure.
func (t *Turn) Validate() error {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return ErrInvalidTurnRole
	}
	if strings.TrimSpace(t.Content) == "" {
		return ErrEmptyTurnContent
	}
	return nil
}

// SessionMeta is the normalized view of room and participant metadata.
// The orchestrator produces it once at the boundary; everything downstream
// only ever sees these fields, never the raw heterogeneous maps.
type SessionMeta struct {
	Role       CallerRole `json:"role"`
	BusinessID string     `json:"businessId"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
}

// Identity is a resolved caller identity cached per room after onboarding or
// general-user registration completes.
type Identity struct {
	Role       CallerRole `json:"role"`
	Email      string     `json:"email"`
	BusinessID string     `json:"businessId"`
}

// Customer mirrors the backend CRM customer record.
type Customer struct {
	ID         string `json:"_id"`
	BusinessID string `json:"businessId,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Company    string `json:"company,omitempty"`
}

// GeneralUser mirrors the backend registration record for public callers.
type GeneralUser struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Location string `json:"location,omitempty"`
}

// Ticket mirrors the backend support ticket record.
type Ticket struct {
	ID          string `json:"_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	BusinessID  string `json:"businessId,omitempty"`
	CustomerID  string `json:"customerId,omitempty"`
}

// Meeting mirrors the backend meeting record.
type Meeting struct {
	ID        string   `json:"_id"`
	Title     string   `json:"title"`
	StartTime string   `json:"startTime"`
	Duration  int      `json:"duration"`
	Attendees []string `json:"attendees"`
	Status    string   `json:"status"`
}

// BusinessContext describes the business a caller is interacting with. It is
// injected into the system instructions so the assistant can speak for the
// business.
type BusinessContext struct {
	ID          string `json:"_id,omitempty"`
	Slug        string `json:"slug,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Products    string `json:"products,omitempty"`
	Policies    string `json:"policies,omitempty"`
	Tone        string `json:"tone,omitempty"`
}

// OwnerProfile describes the owner behind a business dashboard session.
type OwnerProfile struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	BusinessID string `json:"businessId,omitempty"`
}

// EmailCredentials holds the per-business sending configuration. The API key
// is only populated by the protected "full" endpoint.
type EmailCredentials struct {
	Email          string `json:"email"`
	SendGridAPIKey string `json:"sendgridApiKey,omitempty"`
}

// AnalyticsReport carries a metric payload through untouched; the assistant
// summarizes it, the agent does not interpret it.
type AnalyticsReport struct {
	Metric  string          `json:"metric"`
	Payload json.RawMessage `json:"payload"`
}

// ArchivedTurn is a durably stored conversation turn.
type ArchivedTurn struct {
	ID       string    `json:"id"`
	RoomName string    `json:"roomName"`
	Role     string    `json:"role"`
	Content  string    `json:"content"`
	Time     time.Time `json:"time"`
}
