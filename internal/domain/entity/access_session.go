// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"maps"
	"time"
)

// SessionStatus is the advisory lifecycle state of an access session.
// Only expiration by time is enforced by readers.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "ACTIVE"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusExpired    SessionStatus = "EXPIRED"
)

// Wizard steps tracked by an access session.
const (
	StepPreVerification = 0
	StepCompanyVerified = 1
	StepExamForm        = 2
	StepFinalize        = 3
)

// PartialDataCompanyKey is the partialData key holding the verified company snapshot.
const PartialDataCompanyKey = "company"

// AccessSession is the single resumable wizard session of a client.
type AccessSession struct {
	ID             string         `json:"id"` // EXM-XXXX-XXXX-XXXX, canonical uppercase
	CompanyID      string         `json:"companyId,omitempty"`
	CompanyName    string         `json:"companyName,omitempty"`
	Status         SessionStatus  `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	ExpiresAt      time.Time      `json:"expiresAt"` // always CreatedAt + session TTL, never renewed
	LastAccessedAt time.Time      `json:"lastAccessedAt"`
	CurrentStep    int            `json:"currentStep"`
	PartialData    map[string]any `json:"partialData"`
}

// IsExpired reports whether the session is past its expiry at the given instant.
func (s *AccessSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Remaining returns how long the session stays valid, never negative.
func (s *AccessSession) Remaining(now time.Time) time.Duration {
	if s.IsExpired(now) {
		return 0
	}

	return s.ExpiresAt.Sub(now)
}

// MergePartialData shallow-merges patch into the session's partial data.
func (s *AccessSession) MergePartialData(patch map[string]any) {
	if s.PartialData == nil {
		s.PartialData = make(map[string]any, len(patch))
	}
	maps.Copy(s.PartialData, patch)
}

// Clone returns a copy that does not share the partial data map.
func (s *AccessSession) Clone() *AccessSession {
	if s == nil {
		return nil
	}
	cloned := *s
	cloned.PartialData = maps.Clone(s.PartialData)

	return &cloned
}
