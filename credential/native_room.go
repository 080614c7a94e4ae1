package credential

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"live-class/clock"
	"live-class/constant"
	"live-class/entities"
	"live-class/errs"
	"live-class/policy"
)

// RoomClaims are carried by native-room tokens.
type RoomClaims struct {
	jwt.RegisteredClaims
	SessionID string            `json:"sid"`
	RoomID    string            `json:"room"`
	Role      constant.RoomRole `json:"role"`
}

type NativeRoomOptions struct {
	Secret string
	Issuer string
	// TTL bounds the token lifetime from the moment of issue.
	TTL time.Duration
	// Grace extends the hard expiry past the scheduled end of the session.
	Grace time.Duration
}

// NativeRoomIssuer mints short-lived HS256 tokens for the built-in room service.
type NativeRoomIssuer struct {
	opts  NativeRoomOptions
	clock clock.Clock
}

func NewNativeRoomIssuer(opts NativeRoomOptions, clk clock.Clock) *NativeRoomIssuer {
	return &NativeRoomIssuer{opts: opts, clock: clk}
}

func (n *NativeRoomIssuer) Issue(ctx context.Context, s *entities.LiveSession, userID string) (*Credential, error) {
	if s.ProviderConfig.RoomID == "" {
		return nil, fmt.Errorf("%w: native-room session %s has no room id", errs.ErrProviderConfig, s.ID)
	}

	now := n.clock.Now()
	hardExpiry := s.EndsAt().Add(n.opts.Grace)
	if !hardExpiry.After(now) {
		return nil, fmt.Errorf("%w: session window closed at %s", errs.ErrInvalidState, hardExpiry.Format(time.RFC3339))
	}
	expiresAt := now.Add(n.opts.TTL)
	if n.opts.TTL <= 0 || expiresAt.After(hardExpiry) {
		expiresAt = hardExpiry
	}

	role := policy.RoomRole(userID, s)
	claims := RoomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    n.opts.Issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.ProviderConfig.RoomID},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: s.ID.String(),
		RoomID:    s.ProviderConfig.RoomID,
		Role:      role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(n.opts.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign room token: %w", err)
	}

	return &Credential{
		Provider:  constant.ProviderNativeRoom,
		Role:      role,
		RoomID:    s.ProviderConfig.RoomID,
		Token:     token,
		ExpiresAt: &expiresAt,
	}, nil
}

// Verify parses a room token minted by this issuer. The room service shares the
// secret and performs the same check on connect.
func (n *NativeRoomIssuer) Verify(token string) (*RoomClaims, error) {
	claims := &RoomClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(n.opts.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(n.clock.Now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
