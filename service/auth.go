package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zlnvch/heartfolio/models"
	"github.com/zlnvch/heartfolio/mq"
	"github.com/zlnvch/heartfolio/store"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const ProviderEmail = "email"

// Auth error codes reported to clients.
const (
	CodeInvalidEmail       = "invalid-email"
	CodeUserNotFound       = "user-not-found"
	CodeWrongPassword      = "wrong-password"
	CodeEmailInUse         = "email-already-in-use"
	CodeWeakPassword       = "weak-password"
	CodeTooManyRequests    = "too-many-requests"
	CodeNetworkFailed      = "network-request-failed"
	CodeInvalidToken       = "invalid-token"
	CodeMissingCredentials = "missing-credentials"
)

var authMessages = map[string]string{
	CodeInvalidEmail:       "Invalid email address",
	CodeUserNotFound:       "No account found with this email",
	CodeWrongPassword:      "Incorrect password",
	CodeEmailInUse:         "Email already in use",
	CodeWeakPassword:       "Password is too weak",
	CodeTooManyRequests:    "Too many attempts. Please try again later",
	CodeNetworkFailed:      "Network error. Please check your connection",
	CodeInvalidToken:       "This link has expired",
	CodeMissingCredentials: "Please fill in all fields",
}

const unknownAuthMessage = "Something went wrong"

type AuthError struct {
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return "auth/" + e.Code + ": " + e.Err.Error()
	}
	return "auth/" + e.Code
}

func (e *AuthError) Unwrap() error { return e.Err }

func authErr(code string) *AuthError { return &AuthError{Code: code} }

// AuthMessage maps any error from the auth flow to a user-facing message.
func AuthMessage(err error) string {
	var ae *AuthError
	if errors.As(err, &ae) {
		if msg, ok := authMessages[ae.Code]; ok {
			return msg
		}
	}
	return unknownAuthMessage
}

const (
	minPasswordLength      = 6
	sessionTTL             = 24 * time.Hour
	resetTTL               = time.Hour
	loginAttemptsPerMinute = 5
	loginBurst             = 5
)

type tokenPurpose string

const (
	purposeSession tokenPurpose = "session"
	purposeReset   tokenPurpose = "reset"
)

// Provider-specific structs
type gitHubUser struct {
	Login string `json:"login"`
	ID    int    `json:"id"`
}

type googleUser struct {
	Email string `json:"email"`
	Sub   string `json:"sub"`
}

var oauthAPIs = map[string]struct {
	URL     string
	Headers map[string]string
}{
	"github": {
		URL: "https://api.github.com/user",
		Headers: map[string]string{
			"X-GitHub-Api-Version": "2022-11-28",
		},
	},
	"google": {
		URL:     "https://openidconnect.googleapis.com/v1/userinfo",
		Headers: map[string]string{},
	},
}

var oauthConfigsTemplate = map[string]*oauth2.Config{
	"github": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://github.com/login/oauth/authorize",
			TokenURL: "https://github.com/login/oauth/access_token",
		},
		Scopes: []string{"user:email"},
	},
	"google": {
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
		Scopes: []string{"openid", "email"},
	},
}

func addOauthEndpointsAndScopes(oauthConfigs map[string]*oauth2.Config) (map[string]*oauth2.Config, error) {
	for provider := range oauthConfigs {
		template, ok := oauthConfigsTemplate[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported provider: %s", provider)
		}
		oauthConfigs[provider].Endpoint = template.Endpoint
		oauthConfigs[provider].Scopes = template.Scopes
	}

	return oauthConfigs, nil
}

func (s *Service) HandleOauth(ctx context.Context, provider string, code string) (models.User, error) {
	conf, ok := s.OAuthConfigs[provider]
	if !ok {
		return models.User{}, fmt.Errorf("unsupported provider: %s", provider)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		log.Printf("OAuth exchange with %s failed: %v", provider, err)
		return models.User{}, err
	}

	client := conf.Client(ctx, tok)
	api := oauthAPIs[provider]

	req, err := http.NewRequestWithContext(ctx, "GET", api.URL, nil)
	if err != nil {
		return models.User{}, err
	}
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("OAuth user lookup with %s failed: %v", provider, err)
		return models.User{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.User{}, err
	}

	return parseUser(body, provider)
}

func parseUser(jsonData []byte, provider string) (models.User, error) {
	var u models.User
	u.Provider = provider

	switch provider {
	case "github":
		var gh gitHubUser
		if err := json.Unmarshal(jsonData, &gh); err != nil {
			return models.User{}, err
		}
		u.Email = gh.Login
		u.ProviderId = strconv.Itoa(gh.ID)
	case "google":
		var g googleUser
		if err := json.Unmarshal(jsonData, &g); err != nil {
			return models.User{}, err
		}
		u.Email = g.Email
		u.ProviderId = g.Sub
	default:
		return models.User{}, fmt.Errorf("unsupported provider: %s", provider)
	}

	if u.ProviderId == "" || u.ProviderId == "0" {
		return models.User{}, errors.New("provider returned no user id")
	}
	return u, nil
}

// TokenClaims is what a verified JWT says about its holder.
type TokenClaims struct {
	UserId     string
	Provider   string
	ProviderId string
	Expiry     time.Time
	purpose    tokenPurpose
	pwd        string
}

func (s *Service) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.JWTSecret)
}

func (s *Service) CreateJWT(id string, provider string, providerId string) (string, error) {
	return s.signToken(jwt.MapClaims{
		"id":         id,
		"provider":   provider,
		"providerId": providerId,
		"purpose":    string(purposeSession),
		"exp":        time.Now().Add(sessionTTL).Unix(),
		"iat":        time.Now().Unix(),
	})
}

// resetFingerprint ties a reset token to the password hash it was issued
// for, so the token stops working once it has been used.
func resetFingerprint(passwordHash string) string {
	if len(passwordHash) < 8 {
		return passwordHash
	}
	return passwordHash[len(passwordHash)-8:]
}

func (s *Service) createResetToken(user models.User) (string, error) {
	return s.signToken(jwt.MapClaims{
		"id":         user.Id,
		"provider":   user.Provider,
		"providerId": user.ProviderId,
		"purpose":    string(purposeReset),
		"pwd":        resetFingerprint(user.PasswordHash),
		"exp":        time.Now().Add(resetTTL).Unix(),
		"iat":        time.Now().Unix(),
	})
}

func (s *Service) VerifyJWT(tokenString string) (TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return TokenClaims{}, err
	}

	if !token.Valid {
		return TokenClaims{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, errors.New("invalid token claims")
	}

	var tc TokenClaims
	if tc.UserId, ok = claims["id"].(string); !ok {
		return TokenClaims{}, errors.New("missing id claim")
	}
	if tc.Provider, ok = claims["provider"].(string); !ok {
		return TokenClaims{}, errors.New("missing provider claim")
	}
	if tc.ProviderId, ok = claims["providerId"].(string); !ok {
		return TokenClaims{}, errors.New("missing providerId claim")
	}
	purpose, _ := claims["purpose"].(string)
	tc.purpose = tokenPurpose(purpose)
	tc.pwd, _ = claims["pwd"].(string)

	expFloat, ok := claims["exp"].(float64)
	if !ok {
		return TokenClaims{}, errors.New("missing exp claim")
	}
	tc.Expiry = time.Unix(int64(expFloat), 0)

	return tc, nil
}

func (s *Service) AuthenticateToken(ctx context.Context, token string) (models.User, error) {
	if len(token) == 0 {
		return models.User{}, errors.New("token not provided")
	}

	claims, err := s.VerifyJWT(token)
	if err != nil {
		return models.User{}, err
	}
	if claims.purpose != purposeSession {
		return models.User{}, errors.New("not a session token")
	}

	user, err := s.Store.GetUser(ctx, claims.Provider, claims.ProviderId)
	if err != nil {
		return models.User{}, err
	}

	return user, nil
}

// Login signs in through an OAuth provider, creating the account on first
// use.
func (s *Service) Login(ctx context.Context, provider, code string) (models.User, string, error) {
	user, err := s.HandleOauth(ctx, provider, code)
	if err != nil {
		return models.User{}, "", fmt.Errorf("oauth failed: %w", err)
	}

	createdUser, err := s.Store.CreateUser(ctx, user)
	if err != nil && !errors.Is(err, store.ErrUserExists) {
		return models.User{}, "", fmt.Errorf("create user failed: %w", err)
	}

	token, err := s.CreateJWT(createdUser.Id, createdUser.Provider, createdUser.ProviderId)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}

	return createdUser, token, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkCredentials(email string, password string) error {
	if email == "" || password == "" {
		return authErr(CodeMissingCredentials)
	}
	if !ValidEmail(email) {
		return authErr(CodeInvalidEmail)
	}
	return nil
}

// SignUp creates an email/password account and signs it in.
func (s *Service) SignUp(ctx context.Context, email string, password string) (models.User, string, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return models.User{}, "", err
	}
	if len(password) < minPasswordLength {
		return models.User{}, "", authErr(CodeWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		// Passwords over 72 bytes
		return models.User{}, "", &AuthError{Code: CodeWeakPassword, Err: err}
	}

	user, err := s.Store.CreateUser(ctx, models.User{
		Email:        email,
		Provider:     ProviderEmail,
		ProviderId:   email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, store.ErrUserExists) {
		return models.User{}, "", authErr(CodeEmailInUse)
	}
	if err != nil {
		return models.User{}, "", &AuthError{Code: CodeNetworkFailed, Err: err}
	}

	token, err := s.CreateJWT(user.Id, user.Provider, user.ProviderId)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}
	return user, token, nil
}

// SignIn checks an email/password pair. Attempts are rate limited per email.
func (s *Service) SignIn(ctx context.Context, email string, password string) (models.User, string, error) {
	email = normalizeEmail(email)
	if err := checkCredentials(email, password); err != nil {
		return models.User{}, "", err
	}
	if !s.loginLimiter.Allow(email) {
		return models.User{}, "", authErr(CodeTooManyRequests)
	}

	user, err := s.Store.GetUser(ctx, ProviderEmail, email)
	if errors.Is(err, store.ErrItemNotFound) {
		return models.User{}, "", authErr(CodeUserNotFound)
	}
	if err != nil {
		return models.User{}, "", &AuthError{Code: CodeNetworkFailed, Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, "", authErr(CodeWrongPassword)
	}

	token, err := s.CreateJWT(user.Id, user.Provider, user.ProviderId)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}
	return user, token, nil
}

// RequestPasswordReset queues a reset link for the mailer.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !ValidEmail(email) {
		return authErr(CodeInvalidEmail)
	}
	if !s.loginLimiter.Allow(email) {
		return authErr(CodeTooManyRequests)
	}

	user, err := s.Store.GetUser(ctx, ProviderEmail, email)
	if errors.Is(err, store.ErrItemNotFound) {
		return authErr(CodeUserNotFound)
	}
	if err != nil {
		return &AuthError{Code: CodeNetworkFailed, Err: err}
	}

	token, err := s.createResetToken(user)
	if err != nil {
		return fmt.Errorf("token generation failed: %w", err)
	}

	if err := s.MQ.Send(ctx, mq.Job{Type: mq.JobResetMail, UserId: user.Id, Email: email, Token: token}); err != nil {
		return &AuthError{Code: CodeNetworkFailed, Err: err}
	}
	return nil
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
// A token works once.
func (s *Service) ResetPassword(ctx context.Context, token string, newPassword string) error {
	claims, err := s.VerifyJWT(token)
	if err != nil || claims.purpose != purposeReset {
		return &AuthError{Code: CodeInvalidToken, Err: err}
	}
	if len(newPassword) < minPasswordLength {
		return authErr(CodeWeakPassword)
	}

	user, err := s.Store.GetUser(ctx, claims.Provider, claims.ProviderId)
	if errors.Is(err, store.ErrItemNotFound) {
		return authErr(CodeUserNotFound)
	}
	if err != nil {
		return &AuthError{Code: CodeNetworkFailed, Err: err}
	}
	if resetFingerprint(user.PasswordHash) != claims.pwd {
		return authErr(CodeInvalidToken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return &AuthError{Code: CodeWeakPassword, Err: err}
	}
	if err := s.Store.SetUserPassword(ctx, user.Provider, user.ProviderId, string(hash)); err != nil {
		return &AuthError{Code: CodeNetworkFailed, Err: err}
	}
	return nil
}

// attemptLimiter keeps one token bucket per key.
type attemptLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

const maxTrackedKeys = 10000

func newAttemptLimiter(perMinute int, burst int) *attemptLimiter {
	return &attemptLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
	}
}

func (l *attemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		if len(l.limiters) >= maxTrackedKeys {
			l.limiters = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	return lim.Allow()
}
