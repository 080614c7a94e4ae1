// Package credential issues the artifact a participant uses to rendezvous with
// the streaming provider of a session.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"live-class/constant"
	"live-class/entities"
	"live-class/errs"
)

type Credential struct {
	Provider  constant.Provider `json:"provider"`
	Role      constant.RoomRole `json:"role"`
	RoomID    string            `json:"roomId,omitempty"`
	Token     string            `json:"token,omitempty"`
	JoinURL   string            `json:"joinUrl,omitempty"`
	ExpiresAt *time.Time        `json:"expiresAt,omitempty"`
}

type Issuer interface {
	Issue(ctx context.Context, s *entities.LiveSession, userID string) (*Credential, error)
}

// Dispatcher routes issuance to the issuer registered for the session's provider.
type Dispatcher struct {
	issuers map[constant.Provider]Issuer
}

func NewDispatcher(native Issuer) *Dispatcher {
	link := LinkIssuer{}
	return &Dispatcher{
		issuers: map[constant.Provider]Issuer{
			constant.ProviderNativeRoom: native,
			constant.ProviderYouTube:    link,
			constant.ProviderMeet:       link,
			constant.ProviderCustom:     link,
		},
	}
}

func (d *Dispatcher) Issue(ctx context.Context, s *entities.LiveSession, userID string) (*Credential, error) {
	issuer, ok := d.issuers[s.Provider]
	if !ok || issuer == nil {
		return nil, fmt.Errorf("%w: no issuer for provider %q", errs.ErrProviderConfig, s.Provider)
	}
	return issuer.Issue(ctx, s, userID)
}

var validate = validator.New()

// ValidateURL checks that raw is an absolute http(s) URL.
func ValidateURL(raw string) error {
	if err := validate.Var(raw, "required,http_url"); err != nil {
		return fmt.Errorf("%w: %q is not an absolute http(s) URL", errs.ErrValidation, raw)
	}
	return nil
}

// ValidateProviderConfig checks the provider-specific fields at creation.
// Missing required fields match both errs.ErrValidation and errs.ErrProviderConfig.
func ValidateProviderConfig(provider constant.Provider, cfg entities.ProviderConfig) error {
	streamURL := strings.TrimSpace(cfg.StreamURL)
	switch provider {
	case constant.ProviderNativeRoom:
		if streamURL != "" {
			return fmt.Errorf("%w: native-room sessions do not take a stream URL", errs.ErrValidation)
		}
		return nil
	case constant.ProviderMeet, constant.ProviderCustom:
		if streamURL == "" {
			return fmt.Errorf("%w: %w: %s requires providerConfig.streamUrl", errs.ErrValidation, errs.ErrProviderConfig, provider)
		}
		return ValidateURL(streamURL)
	case constant.ProviderYouTube:
		if streamURL == "" {
			return nil
		}
		return ValidateURL(streamURL)
	}
	return fmt.Errorf("%w: unknown provider %q", errs.ErrValidation, provider)
}

// LinkIssuer hands out the stored provider URL. Access control is left to the
// external provider.
type LinkIssuer struct{}

func (LinkIssuer) Issue(ctx context.Context, s *entities.LiveSession, userID string) (*Credential, error) {
	if s.ProviderConfig.StreamURL == "" {
		return nil, fmt.Errorf("%w: %s session %s has no stream URL", errs.ErrProviderConfig, s.Provider, s.ID)
	}
	if err := ValidateURL(s.ProviderConfig.StreamURL); err != nil {
		return nil, errors.Join(errs.ErrProviderConfig, err)
	}
	role := constant.RoomRoleAudience
	if userID == s.InstructorId {
		role = constant.RoomRoleHost
	}
	return &Credential{
		Provider: s.Provider,
		Role:     role,
		JoinURL:  s.ProviderConfig.StreamURL,
	}, nil
}
