// Package catalog answers course ownership and enrollment questions. The
// course catalog itself is owned by another service.
package catalog

import (
	"context"
	"sync"
)

type Directory interface {
	IsInstructorOf(ctx context.Context, userID, courseID string) (bool, error)
	IsEnrolled(ctx context.Context, userID, courseID string) (bool, error)
}

// Static is an in-process directory for development and tests.
type Static struct {
	mu          sync.RWMutex
	instructors map[string]map[string]struct{}
	students    map[string]map[string]struct{}
}

func NewStatic() *Static {
	return &Static{
		instructors: make(map[string]map[string]struct{}),
		students:    make(map[string]map[string]struct{}),
	}
}

func (s *Static) AddInstructor(courseID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	add(s.instructors, courseID, userID)
}

func (s *Static) Enroll(courseID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	add(s.students, courseID, userID)
}

func (s *Static) Unenroll(courseID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.students[courseID], userID)
}

func (s *Static) IsInstructorOf(ctx context.Context, userID, courseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.instructors[courseID][userID]
	return ok, nil
}

func (s *Static) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.students[courseID][userID]
	return ok, nil
}

func add(m map[string]map[string]struct{}, courseID, userID string) {
	users, ok := m[courseID]
	if !ok {
		users = make(map[string]struct{})
		m[courseID] = users
	}
	users[userID] = struct{}{}
}
