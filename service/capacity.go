package service

import (
	"fmt"

	"live-class/entities"
	"live-class/errs"
)

// CapacityGuard bounds the number of active participants of a session.
type CapacityGuard struct {
	// Ceiling is the largest maxParticipants a session may declare.
	Ceiling int
}

// ValidateLimit checks a requested maxParticipants at creation.
func (g CapacityGuard) ValidateLimit(n int) error {
	if n < 1 || (g.Ceiling > 0 && n > g.Ceiling) {
		return fmt.Errorf("%w: maxParticipants must be between 1 and %d", errs.ErrValidation, g.Ceiling)
	}
	return nil
}

// Admit reports whether userID may take a seat. A user who already holds an
// active seat is always admitted.
func (g CapacityGuard) Admit(s *entities.LiveSession, userID string) error {
	if s.ActiveParticipant(userID) != nil {
		return nil
	}
	limit := s.MaxParticipants
	if g.Ceiling > 0 && limit > g.Ceiling {
		limit = g.Ceiling
	}
	if s.ActiveCount() >= limit {
		return fmt.Errorf("%w: session %s is full (%d/%d)", errs.ErrCapacityExceeded, s.ID, s.ActiveCount(), limit)
	}
	return nil
}
