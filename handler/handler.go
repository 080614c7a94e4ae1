package handler

import (
	"context"
	"encoding/json"

	"github.com/cenkalti/backoff/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"live-class/dto"
)

// MembershipInvalidator drops cached catalog answers.
type MembershipInvalidator interface {
	Invalidate(courseID, userID string)
}

type ConsumerDependencies struct {
	Catalog MembershipInvalidator
}

func CatalogMembershipHandler(ctx context.Context, msg amqp.Delivery, deps ConsumerDependencies) error {
	var changed dto.MembershipChangedMessage
	if err := json.Unmarshal(msg.Body, &changed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal membership message")
		return backoff.Permanent(err)
	}
	if changed.CourseId == "" {
		zerolog.Ctx(ctx).Warn().Str("kind", changed.Kind).Msg("membership message without course id")
		return nil
	}

	deps.Catalog.Invalidate(changed.CourseId, changed.UserId)

	zerolog.Ctx(ctx).Info().
		Str("course_id", changed.CourseId).
		Str("user_id", changed.UserId).
		Str("kind", changed.Kind).
		Msg("catalog membership changed")
	return nil
}
