package policy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"live-class/constant"
	"live-class/entities"
	"live-class/errs"
)

func session(visibility constant.Visibility, status constant.SessionStatus) *entities.LiveSession {
	return &entities.LiveSession{
		CourseId:     "course-1",
		InstructorId: "instructor-a",
		Visibility:   visibility,
		Status:       status,
	}
}

func TestAuthorize_InstructorMayDoEverything(t *testing.T) {
	actor := Actor{UserID: "instructor-a"}
	for _, vis := range []constant.Visibility{constant.VisibilityPublic, constant.VisibilityPrivate} {
		s := session(vis, constant.SessionStatusScheduled)
		for _, action := range []constant.Action{
			constant.ActionStart, constant.ActionEnd, constant.ActionCancel,
			constant.ActionJoin, constant.ActionView, constant.ActionRoster, constant.ActionRecord,
		} {
			require.NoError(t, Authorize(actor, s, action), "%s on %s", action, vis)
		}
	}
}

func TestAuthorize_OthersCannotControlSession(t *testing.T) {
	actors := []Actor{{}, {UserID: "student-b", Enrolled: true}, {UserID: "student-c"}}
	statuses := []constant.SessionStatus{
		constant.SessionStatusScheduled, constant.SessionStatusLive,
		constant.SessionStatusEnded, constant.SessionStatusCancelled,
	}
	for _, actor := range actors {
		for _, status := range statuses {
			s := session(constant.VisibilityPublic, status)
			for _, action := range []constant.Action{constant.ActionStart, constant.ActionEnd, constant.ActionCancel, constant.ActionRoster} {
				err := Authorize(actor, s, action)
				require.True(t, errors.Is(err, errs.ErrAuthorization), "%+v %s %s", actor, action, status)
			}
		}
	}
}

func TestAuthorize_Join(t *testing.T) {
	cases := []struct {
		name    string
		actor   Actor
		vis     constant.Visibility
		allowed bool
	}{
		{"public outsider", Actor{UserID: "student-c"}, constant.VisibilityPublic, true},
		{"public enrolled", Actor{UserID: "student-b", Enrolled: true}, constant.VisibilityPublic, true},
		{"private enrolled", Actor{UserID: "student-b", Enrolled: true}, constant.VisibilityPrivate, true},
		{"private outsider", Actor{UserID: "student-c"}, constant.VisibilityPrivate, false},
		{"public anonymous", Actor{}, constant.VisibilityPublic, false},
		{"private anonymous enrolled flag ignored", Actor{Enrolled: true}, constant.VisibilityPrivate, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, session(tc.vis, constant.SessionStatusLive), constant.ActionJoin)
			if tc.allowed {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, errs.ErrAuthorization)
			}
		})
	}
}

func TestAuthorize_View(t *testing.T) {
	require.NoError(t, Authorize(Actor{}, session(constant.VisibilityPublic, constant.SessionStatusLive), constant.ActionView))
	require.ErrorIs(t, Authorize(Actor{}, session(constant.VisibilityPrivate, constant.SessionStatusLive), constant.ActionView), errs.ErrAuthorization)
	require.NoError(t, Authorize(Actor{UserID: "s", Enrolled: true}, session(constant.VisibilityPrivate, constant.SessionStatusLive), constant.ActionView))
}

func TestNeedsEnrollment(t *testing.T) {
	private := session(constant.VisibilityPrivate, constant.SessionStatusLive)
	public := session(constant.VisibilityPublic, constant.SessionStatusLive)

	require.True(t, NeedsEnrollment("student-b", private, constant.ActionJoin))
	require.True(t, NeedsEnrollment("student-b", private, constant.ActionView))
	require.False(t, NeedsEnrollment("student-b", public, constant.ActionJoin))
	require.False(t, NeedsEnrollment("instructor-a", private, constant.ActionJoin))
	require.False(t, NeedsEnrollment("", private, constant.ActionJoin))
	require.False(t, NeedsEnrollment("student-b", private, constant.ActionStart))
}

func TestRelationAndRoomRole(t *testing.T) {
	s := session(constant.VisibilityPrivate, constant.SessionStatusLive)
	require.Equal(t, RelationInstructor, RelationOf(Actor{UserID: "instructor-a"}, s))
	require.Equal(t, RelationEnrolled, RelationOf(Actor{UserID: "b", Enrolled: true}, s))
	require.Equal(t, RelationOutsider, RelationOf(Actor{UserID: "c"}, s))
	require.Equal(t, RelationAnonymous, RelationOf(Actor{}, s))

	require.Equal(t, constant.RoomRoleHost, RoomRole("instructor-a", s))
	require.Equal(t, constant.RoomRoleAudience, RoomRole("b", s))
}
