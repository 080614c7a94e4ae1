package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingDirectory struct {
	Directory
	calls atomic.Int32
}

func (c *countingDirectory) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	c.calls.Add(1)
	return c.Directory.IsEnrolled(ctx, userID, courseID)
}

func (c *countingDirectory) IsInstructorOf(ctx context.Context, userID, courseID string) (bool, error) {
	c.calls.Add(1)
	return c.Directory.IsInstructorOf(ctx, userID, courseID)
}

func TestStatic(t *testing.T) {
	ctx := context.Background()
	s := NewStatic()
	s.AddInstructor("course-1", "instructor-a")
	s.Enroll("course-1", "student-b")

	ok, err := s.IsInstructorOf(ctx, "instructor-a", "course-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, _ = s.IsInstructorOf(ctx, "student-b", "course-1")
	require.False(t, ok)

	ok, _ = s.IsEnrolled(ctx, "student-b", "course-1")
	require.True(t, ok)

	s.Unenroll("course-1", "student-b")
	ok, _ = s.IsEnrolled(ctx, "student-b", "course-1")
	require.False(t, ok)

	ok, _ = s.IsEnrolled(ctx, "student-b", "course-unknown")
	require.False(t, ok)
}

func TestCached_MemoisesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	static := NewStatic()
	static.Enroll("course-1", "student-b")
	counting := &countingDirectory{Directory: static}
	cached := NewCached(counting, time.Minute)

	for i := 0; i < 3; i++ {
		ok, err := cached.IsEnrolled(ctx, "student-b", "course-1")
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.Equal(t, int32(1), counting.calls.Load())

	static.Unenroll("course-1", "student-b")
	cached.Invalidate("course-1", "student-b")
	ok, err := cached.IsEnrolled(ctx, "student-b", "course-1")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, int32(2), counting.calls.Load())
}

func TestCached_InvalidateCourse(t *testing.T) {
	ctx := context.Background()
	static := NewStatic()
	counting := &countingDirectory{Directory: static}
	cached := NewCached(counting, time.Minute)

	_, _ = cached.IsEnrolled(ctx, "u1", "course-1")
	_, _ = cached.IsInstructorOf(ctx, "u2", "course-1")
	_, _ = cached.IsEnrolled(ctx, "u1", "course-2")
	require.Equal(t, int32(3), counting.calls.Load())

	cached.Invalidate("course-1", "")

	_, _ = cached.IsEnrolled(ctx, "u1", "course-1")
	_, _ = cached.IsInstructorOf(ctx, "u2", "course-1")
	_, _ = cached.IsEnrolled(ctx, "u1", "course-2")
	require.Equal(t, int32(5), counting.calls.Load())
}

func TestClient(t *testing.T) {
	var failures atomic.Int32
	failures.Store(1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer svc-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/courses/course-1/instructors/instructor-a", "/courses/course-1/enrollments/student-b":
			w.WriteHeader(http.StatusOK)
		case "/courses/course-1/enrollments/flaky":
			if failures.Add(-1) >= 0 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/courses/course-1/enrollments/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	c := NewClient(srv.URL+"/", "svc-token", time.Second)

	ok, err := c.IsInstructorOf(ctx, "instructor-a", "course-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.IsInstructorOf(ctx, "student-b", "course-1")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.IsEnrolled(ctx, "student-b", "course-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.IsEnrolled(ctx, "flaky", "course-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = c.IsEnrolled(ctx, "forbidden", "course-1")
	require.Error(t, err)
}
