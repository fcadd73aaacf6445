package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/google/uuid"

	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Paper-Trading-Simulator-Backend/internal/model"
)

// SessionService issues and verifies session tokens. A token is a fernet-encrypted
// model.Session, so the server needs no session table.
type SessionService struct {
	keys     []*fernet.Key
	ttl      time.Duration
	profiles *ProfileService
}

// NewSessionService creates a SessionService.
//
// Parameters:
//   - encodedKey: base64 fernet key (32 bytes decoded), as produced by GenerateSessionKey
//   - ttl: token lifetime
//   - profiles: used to provision a profile when a session starts
func NewSessionService(encodedKey string, ttl time.Duration, profiles *ProfileService) (*SessionService, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid session key: %w", err)
	}
	return &SessionService{
		keys:     []*fernet.Key{key},
		ttl:      ttl,
		profiles: profiles,
	}, nil
}

// GenerateSessionKey returns a new random key suitable for SESSION_KEY.
func GenerateSessionKey() (string, error) {
	var k fernet.Key
	if err := k.Generate(); err != nil {
		return "", err
	}
	return k.Encode(), nil
}

// UserIDForEmail derives a stable user id from an email address. Addresses are
// compared case-insensitively.
func UserIDForEmail(email string) string {
	normalized := strings.ToLower(strings.TrimSpace(email))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+normalized)).String()
}

// StartSession resolves the user behind an email, provisions their profile on first
// use and returns a token for subsequent requests.
//
// No credential is checked: whoever names an email gets that user's session. This
// is a development identity adapter; a real identity provider replaces it.
func (s *SessionService) StartSession(ctx context.Context, email string) (string, model.Profile, error) {
	email = strings.TrimSpace(email)
	session := model.Session{UserID: UserIDForEmail(email), Email: email}

	profile, err := s.profiles.EnsureProfile(ctx, session)
	if err != nil {
		return "", model.Profile{}, err
	}

	token, err := s.Issue(session)
	if err != nil {
		return "", model.Profile{}, err
	}
	return token, profile, nil
}

// Issue encrypts and signs a session.
func (s *SessionService) Issue(session model.Session) (string, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return "", fmt.Errorf("failed to encode session: %w", err)
	}
	token, err := fernet.EncryptAndSign(payload, s.keys[0])
	if err != nil {
		return "", fmt.Errorf("failed to sign session: %w", err)
	}
	return string(token), nil
}

// Verify decodes a token. Tampered, foreign and expired tokens all fail with
// ErrInvalidSession; an empty token fails with ErrMissingSession.
func (s *SessionService) Verify(token string) (model.Session, error) {
	if strings.TrimSpace(token) == "" {
		return model.Session{}, apperrors.ErrMissingSession
	}

	payload := fernet.VerifyAndDecrypt([]byte(token), s.ttl, s.keys)
	if payload == nil {
		return model.Session{}, apperrors.ErrInvalidSession
	}

	var session model.Session
	if err := json.Unmarshal(payload, &session); err != nil || session.UserID == "" {
		return model.Session{}, apperrors.ErrInvalidSession
	}
	return session, nil
}
