// Package policy decides whether an actor may perform an action on a live
// session. Decisions are pure functions of the actor and a session snapshot.
package policy

import (
	"fmt"

	"live-class/constant"
	"live-class/entities"
	"live-class/errs"
)

// Actor is the caller relative to one session. Enrolled carries the answer of
// the course catalog for the session's course and is only consulted when the
// session is private.
type Actor struct {
	UserID   string
	Enrolled bool
}

type Relation int

const (
	RelationAnonymous Relation = iota
	RelationOutsider
	RelationEnrolled
	RelationInstructor
)

func (r Relation) String() string {
	switch r {
	case RelationInstructor:
		return "instructor"
	case RelationEnrolled:
		return "enrolled"
	case RelationOutsider:
		return "outsider"
	default:
		return "anonymous"
	}
}

func RelationOf(a Actor, s *entities.LiveSession) Relation {
	switch {
	case a.UserID == "":
		return RelationAnonymous
	case a.UserID == s.InstructorId:
		return RelationInstructor
	case a.Enrolled:
		return RelationEnrolled
	default:
		return RelationOutsider
	}
}

// NeedsEnrollment reports whether Authorize would consult Actor.Enrolled for
// this call, letting callers skip the catalog lookup otherwise.
func NeedsEnrollment(userID string, s *entities.LiveSession, action constant.Action) bool {
	if userID == "" || userID == s.InstructorId {
		return false
	}
	if action != constant.ActionJoin && action != constant.ActionView {
		return false
	}
	return s.Visibility != constant.VisibilityPublic
}

func Authorize(a Actor, s *entities.LiveSession, action constant.Action) error {
	rel := RelationOf(a, s)
	if rel == RelationInstructor {
		return nil
	}

	switch action {
	case constant.ActionStart, constant.ActionEnd, constant.ActionCancel, constant.ActionRoster, constant.ActionRecord:
		return fmt.Errorf("%w: only the session instructor may %s", errs.ErrAuthorization, action)
	case constant.ActionJoin:
		if rel == RelationAnonymous {
			return fmt.Errorf("%w: anonymous callers cannot join", errs.ErrAuthorization)
		}
		if s.Visibility == constant.VisibilityPublic || rel == RelationEnrolled {
			return nil
		}
		return fmt.Errorf("%w: not enrolled in course %s", errs.ErrAuthorization, s.CourseId)
	case constant.ActionView:
		if s.Visibility == constant.VisibilityPublic || rel == RelationEnrolled {
			return nil
		}
		return fmt.Errorf("%w: session is private", errs.ErrAuthorization)
	}

	return fmt.Errorf("%w: unknown action %q", errs.ErrAuthorization, action)
}

// RoomRole maps the caller to a role inside a native room.
func RoomRole(userID string, s *entities.LiveSession) constant.RoomRole {
	if userID == s.InstructorId {
		return constant.RoomRoleHost
	}
	return constant.RoomRoleAudience
}
