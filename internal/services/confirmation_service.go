package services

import (
	"errors"
	"fmt"
	"time"

	"infinite-experiment/keydrop/internal/common"
	"infinite-experiment/keydrop/internal/constants"
	"infinite-experiment/keydrop/internal/logging"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ConfirmAction string

const (
	ActionResetAllCooldowns ConfirmAction = "reset_all_cooldowns"
	ActionDeleteAllKeys     ConfirmAction = "delete_all_keys"
)

func (a ConfirmAction) Valid() bool {
	return a == ActionResetAllCooldowns || a == ActionDeleteAllKeys
}

// Proposal is the first half of a two-phase admin action
type Proposal struct {
	Token     string        `json:"token"`
	Action    ConfirmAction `json:"action"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type confirmClaims struct {
	Action  ConfirmAction `json:"action"`
	AdminID int64         `json:"adm"`
	jwt.RegisteredClaims
}

// ConfirmationService issues signed single-use tokens. The token id is parked
// in the cache on Propose and removed on Consume or Discard, so a token works once.
type ConfirmationService struct {
	secret []byte
	cache  common.CacheInterface
	ttl    time.Duration
	now    func() time.Time
}

func NewConfirmationService(secret string, cache common.CacheInterface, ttl time.Duration) *ConfirmationService {
	if secret == "" {
		// Tokens then only survive as long as the process
		secret = uuid.NewString()
		logging.Warn("CONFIRM_SECRET not set, using a per-process secret")
	}
	return &ConfirmationService{
		secret: []byte(secret),
		cache:  cache,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *ConfirmationService) Propose(adminID int64, action ConfirmAction) (*Proposal, error) {
	if !action.Valid() {
		return nil, &ValidationError{Field: "action", Input: string(action), Reason: "unknown action"}
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	tokenID := uuid.NewString()

	claims := confirmClaims{
		Action:  action,
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign confirmation: %w", err)
	}

	s.cache.Set(s.cacheKey(tokenID), string(action), s.ttl)
	logging.Info("Confirmation proposed", "admin_id", adminID, "action", action, "jti", tokenID)

	return &Proposal{Token: signed, Action: action, ExpiresAt: expiresAt}, nil
}

// Consume validates the token and burns it. A second call with the same token fails.
func (s *ConfirmationService) Consume(adminID int64, token string) (ConfirmAction, error) {
	claims, err := s.parse(token, true)
	if err != nil {
		return "", err
	}
	if claims.AdminID != adminID {
		return "", &NotFoundError{Entity: "confirmation", ID: claims.ID}
	}

	key := s.cacheKey(claims.ID)
	stored, found := common.GetString(s.cache, key)
	if !found || stored != string(claims.Action) {
		return "", &NotFoundError{Entity: "confirmation", ID: claims.ID}
	}
	s.cache.Delete(key)

	return claims.Action, nil
}

// Discard cancels a pending proposal. Expired tokens are accepted so a late cancel still cleans up.
func (s *ConfirmationService) Discard(token string) error {
	claims, err := s.parse(token, false)
	if err != nil {
		return err
	}
	s.cache.Delete(s.cacheKey(claims.ID))
	logging.Info("Confirmation discarded", "action", claims.Action, "jti", claims.ID)
	return nil
}

func (s *ConfirmationService) parse(token string, checkExpiry bool) (*confirmClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	claims := &confirmClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &NotFoundError{Entity: "confirmation", ID: "expired"}
		}
		return nil, &ValidationError{Field: "confirmation token", Reason: err.Error()}
	}
	if !parsed.Valid || !claims.Action.Valid() || claims.ID == "" {
		return nil, &ValidationError{Field: "confirmation token", Reason: "malformed claims"}
	}
	return claims, nil
}

func (s *ConfirmationService) cacheKey(tokenID string) string {
	return string(constants.CachePrefixConfirmation) + tokenID
}
