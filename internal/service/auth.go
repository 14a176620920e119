package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aisessions/server/internal/config"
	apperrors "github.com/aisessions/server/internal/errors"
	"github.com/aisessions/server/internal/model"
	"github.com/aisessions/server/internal/repository"
	"github.com/aisessions/server/internal/util"
)

const (
	googleAuthEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenEndpoint    = "https://oauth2.googleapis.com/token"
	googleUserInfoEndpoint = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleEndpoints lets tests point the OAuth flow at a fake provider.
type GoogleEndpoints struct {
	Auth     string
	Token    string
	UserInfo string
}

func DefaultGoogleEndpoints() GoogleEndpoints {
	return GoogleEndpoints{
		Auth:     googleAuthEndpoint,
		Token:    googleTokenEndpoint,
		UserInfo: googleUserInfoEndpoint,
	}
}

type AuthService struct {
	cfg              *config.Config
	userRepo         repository.UserRepository
	loginSessionRepo repository.LoginSessionRepository
	admins           *AdminService
	states           *StateSigner
	endpoints        GoogleEndpoints
	httpClient       *http.Client
}

func NewAuthService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	loginSessionRepo repository.LoginSessionRepository,
	admins *AdminService,
	endpoints GoogleEndpoints,
) *AuthService {
	return &AuthService{
		cfg:              cfg,
		userRepo:         userRepo,
		loginSessionRepo: loginSessionRepo,
		admins:           admins,
		states:           NewStateSigner(cfg.SessionSecret, config.OAuthStateTTL),
		endpoints:        endpoints,
		httpClient:       &http.Client{Timeout: 10 * time.Second},
	}
}

// AuthURL returns the Google consent URL together with the state nonce the
// caller must remember for the callback.
func (s *AuthService) AuthURL() (authURL string, nonce string, err error) {
	if s.cfg.GoogleClientID == "" {
		return "", "", apperrors.Internal("Google sign-in is not configured")
	}

	state, nonce, err := s.states.Issue()
	if err != nil {
		return "", "", apperrors.Internal("failed to create OAuth state").WithCause(err)
	}

	params := url.Values{
		"client_id":     {s.cfg.GoogleClientID},
		"redirect_uri":  {s.cfg.OAuthRedirectURL()},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	if s.cfg.AllowedEmailDomain != "" {
		params.Set("hd", s.cfg.AllowedEmailDomain)
	}

	return s.endpoints.Auth + "?" + params.Encode(), nonce, nil
}

// HandleCallback finishes the OAuth round trip and opens a login session. It
// returns the raw session token; only its HMAC is stored.
func (s *AuthService) HandleCallback(ctx context.Context, code, state, expectedNonce string) (*model.User, string, error) {
	nonce, err := s.states.Verify(state)
	if err != nil || !util.TokensEqual(nonce, expectedNonce) {
		return nil, "", apperrors.InvalidState()
	}
	if code == "" {
		return nil, "", apperrors.MissingRequired("code")
	}

	profile, err := s.exchangeGoogleCode(ctx, code)
	if err != nil {
		return nil, "", apperrors.External("Google OAuth", err)
	}
	if !profile.EmailVerified {
		return nil, "", apperrors.UnverifiedEmail()
	}
	if !util.EmailInDomain(profile.Email, s.cfg.AllowedEmailDomain) {
		return nil, "", apperrors.EmailDomainNotAllowed(s.cfg.AllowedEmailDomain)
	}

	user, err := s.userRepo.Upsert(ctx, model.UpsertUserParams{
		GoogleID: profile.ID,
		Email:    util.NormalizeEmail(profile.Email),
		Name:     profile.Name,
	})
	if err != nil {
		return nil, "", apperrors.Database(fmt.Errorf("upsert user: %w", err))
	}

	if err := s.admins.Bootstrap(ctx, user, s.cfg.BootstrapAdminEmails); err != nil {
		return nil, "", err
	}

	token, err := s.createLoginSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}

	log.Info().
		Str("userId", user.ID).
		Str("email", user.Email).
		Msg("Google sign-in successful")

	return user, token, nil
}

func (s *AuthService) createLoginSession(ctx context.Context, userID string) (string, error) {
	token, err := util.NewToken()
	if err != nil {
		return "", apperrors.Internal("failed to generate session token").WithCause(err)
	}

	_, err = s.loginSessionRepo.Create(ctx, model.CreateLoginSessionParams{
		TokenHash: util.HashToken(s.cfg.SessionSecret, token),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.cfg.LoginSessionTTL()),
	})
	if err != nil {
		return "", apperrors.Database(fmt.Errorf("create login session: %w", err))
	}
	return token, nil
}

// CurrentUser resolves a session cookie value. It returns nil without error
// when the token is unknown or expired.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.loginSessionRepo.FindByTokenHash(ctx, util.HashToken(s.cfg.SessionSecret, token))
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find login session: %w", err))
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, apperrors.Database(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.loginSessionRepo.DeleteByTokenHash(ctx, util.HashToken(s.cfg.SessionSecret, token)); err != nil {
		return apperrors.Database(fmt.Errorf("delete login session: %w", err))
	}
	return nil
}

func (s *AuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.loginSessionRepo.DeleteExpired(ctx)
}

func (s *AuthService) exchangeGoogleCode(ctx context.Context, code string) (*model.GoogleProfile, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {s.cfg.GoogleClientID},
		"client_secret": {s.cfg.GoogleClientSecret},
		"redirect_uri":  {s.cfg.OAuthRedirectURL()},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoints.Token, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := s.doProviderRequest(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("token response has no access_token")
	}

	userReq, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoints.UserInfo, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	userReq.Header.Set("Authorization", "Bearer "+tokenResp.AccessToken)

	userBody, err := s.doProviderRequest(userReq)
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}

	var userInfo struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.Unmarshal(userBody, &userInfo); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}

	return &model.GoogleProfile{
		ID:            userInfo.ID,
		Email:         userInfo.Email,
		EmailVerified: userInfo.VerifiedEmail,
		Name:          userInfo.Name,
	}, nil
}

func (s *AuthService) doProviderRequest(req *http.Request) ([]byte, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("url", req.URL.Path).Msg("Google OAuth request failed")
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
