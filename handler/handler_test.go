package handler

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

type invalidation struct{ course, user string }

type invalidatorSpy struct{ calls []invalidation }

func (s *invalidatorSpy) Invalidate(courseID, userID string) {
	s.calls = append(s.calls, invalidation{courseID, userID})
}

func TestCatalogMembershipHandler(t *testing.T) {
	spy := &invalidatorSpy{}
	deps := ConsumerDependencies{Catalog: spy}
	ctx := context.Background()

	err := CatalogMembershipHandler(ctx, amqp.Delivery{Body: []byte(`{"courseId":"course-1","userId":"student-b","kind":"enrollment.removed"}`)}, deps)
	require.NoError(t, err)
	err = CatalogMembershipHandler(ctx, amqp.Delivery{Body: []byte(`{"courseId":"course-2","kind":"course.reassigned"}`)}, deps)
	require.NoError(t, err)
	err = CatalogMembershipHandler(ctx, amqp.Delivery{Body: []byte(`{"kind":"noise"}`)}, deps)
	require.NoError(t, err)

	require.Equal(t, []invalidation{{"course-1", "student-b"}, {"course-2", ""}}, spy.calls)
}

func TestCatalogMembershipHandler_BadPayloadIsPermanent(t *testing.T) {
	err := CatalogMembershipHandler(context.Background(), amqp.Delivery{Body: []byte(`{`)}, ConsumerDependencies{Catalog: &invalidatorSpy{}})
	var permanent *backoff.PermanentError
	require.True(t, errors.As(err, &permanent))
}
