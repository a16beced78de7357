package identity

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// Delivery is the last message the in-memory provider would have sent to
// an identifier. Codes and links are logged instead of delivered.
type Delivery struct {
	Kind      OTPType
	Code      string
	TokenHash string
	Link      string
}

// Memory is an in-process provider for local development and tests.
type Memory struct {
	log         *slog.Logger
	now         func() time.Time
	ttl         time.Duration
	autoConfirm bool

	mu       sync.Mutex
	users    map[string]*memUser
	byEmail  map[string]string
	byPhone  map[string]string
	otps     map[string]string
	links    map[string]string
	codes    map[string]authCode
	access   map[string]accessGrant
	refresh  map[string]string
	outbox   map[string]Delivery
	minPwLen int
}

type memUser struct {
	user User
	hash []byte
}

type authCode struct {
	userID    string
	challenge string
}

type accessGrant struct {
	userID  string
	expires time.Time
}

type MemoryOption func(*Memory)

func WithMemoryLogger(l *slog.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.log = l
		}
	}
}

func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

func WithTokenTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithAutoConfirm controls whether sign up returns a session immediately.
func WithAutoConfirm(v bool) MemoryOption {
	return func(m *Memory) { m.autoConfirm = v }
}

func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		log:         logger.Nop(),
		now:         time.Now,
		ttl:         time.Hour,
		autoConfirm: true,
		users:       make(map[string]*memUser),
		byEmail:     make(map[string]string),
		byPhone:     make(map[string]string),
		otps:        make(map[string]string),
		links:       make(map[string]string),
		codes:       make(map[string]authCode),
		access:      make(map[string]accessGrant),
		refresh:     make(map[string]string),
		outbox:      make(map[string]Delivery),
		minPwLen:    6,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With(logger.Component("identity.memory"))
	return m
}

// LastDelivery returns the latest code or link issued to an email or phone.
func (m *Memory) LastDelivery(identifier string) (Delivery, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.outbox[normalize(identifier)]
	return d, ok
}

// CreateUser registers a confirmed account with a password.
func (m *Memory) CreateUser(email, password string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[normalize(email)]; ok {
		return nil, newError(http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
	}
	u, err := m.addUser(email, "", password)
	if err != nil {
		return nil, err
	}
	confirmed := m.now()
	u.user.EmailConfirmedAt = &confirmed
	out := u.user
	return &out, nil
}

func (m *Memory) SendOTP(_ context.Context, req OTPRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, index := normalize(req.Email), m.byEmail
	kind := OTPEmail
	if key == "" {
		key, index, kind = normalize(req.Phone), m.byPhone, OTPSMS
	}
	if key == "" {
		return ErrMissingRecipient
	}

	if _, ok := index[key]; !ok {
		if !req.CreateUser {
			return newError(http.StatusUnprocessableEntity, "otp_disabled", "Signups not allowed for otp")
		}
		if kind == OTPEmail {
			_, _ = m.addUser(key, "", "")
		} else {
			_, _ = m.addUser("", key, "")
		}
	}

	code, err := randomDigits(6)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	m.otps[key] = code

	d := Delivery{Kind: kind, Code: code}
	if kind == OTPEmail {
		d.TokenHash = uuid.NewString()
		m.links[d.TokenHash] = key
		if req.RedirectTo != "" {
			d.Link = withQuery(req.RedirectTo, "token_hash", d.TokenHash)
		}
	}
	m.outbox[key] = d

	m.log.Info("one-time code issued",
		slog.String("to", key),
		slog.String("channel", string(req.Channel)),
		slog.String("code", code),
		slog.String("link", d.Link),
	)
	return nil
}

func (m *Memory) VerifyOTP(_ context.Context, req VerifyRequest) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	invalid := newError(http.StatusForbidden, "otp_expired", "Token has expired or is invalid")

	if req.TokenHash != "" {
		email, ok := m.links[req.TokenHash]
		if !ok {
			return nil, invalid
		}
		delete(m.links, req.TokenHash)
		delete(m.otps, email)
		return m.issue(m.byEmail[email], true, false), nil
	}

	key, index, isEmail := normalize(req.Email), m.byEmail, true
	if key == "" {
		key, index, isEmail = normalize(req.Phone), m.byPhone, false
	}
	code, ok := m.otps[key]
	if !ok || req.Token == "" || code != req.Token {
		return nil, invalid
	}
	delete(m.otps, key)
	return m.issue(index[key], isEmail, !isEmail), nil
}

func (m *Memory) SignInWithPassword(_ context.Context, creds Credentials) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[normalize(creds.Email)]
	if !ok && creds.Phone != "" {
		id, ok = m.byPhone[normalize(creds.Phone)]
	}
	invalid := newError(http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
	if !ok {
		return nil, invalid
	}
	u := m.users[id]
	if len(u.hash) == 0 || bcrypt.CompareHashAndPassword(u.hash, []byte(creds.Password)) != nil {
		return nil, invalid
	}
	if u.user.EmailConfirmedAt == nil && u.user.PhoneConfirmedAt == nil {
		return nil, newError(http.StatusBadRequest, "email_not_confirmed", "Email not confirmed")
	}
	return m.issue(id, false, false), nil
}

func (m *Memory) SignUp(_ context.Context, req SignUpRequest) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalize(req.Email)
	if id, ok := m.byEmail[email]; ok && len(m.users[id].hash) > 0 {
		return nil, newError(http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
	}
	if len([]rune(req.Password)) < m.minPwLen {
		return nil, newError(http.StatusUnprocessableEntity, "weak_password",
			fmt.Sprintf("Password should be at least %d characters.", m.minPwLen))
	}

	var u *memUser
	if id, ok := m.byEmail[email]; ok {
		u = m.users[id]
		if err := u.setPassword(req.Password); err != nil {
			return nil, err
		}
	} else {
		var err error
		if u, err = m.addUser(email, "", req.Password); err != nil {
			return nil, err
		}
	}

	if m.autoConfirm {
		return m.issue(u.user.ID, true, false), nil
	}

	hash := uuid.NewString()
	m.links[hash] = email
	d := Delivery{Kind: OTPSignup, TokenHash: hash}
	if req.RedirectTo != "" {
		d.Link = withQuery(req.RedirectTo, "token_hash", hash)
	}
	m.outbox[email] = d
	m.log.Info("confirmation issued", slog.String("to", email), slog.String("link", d.Link))
	return nil, nil
}

func (m *Memory) Recover(_ context.Context, req RecoverRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := normalize(req.Email)
	id, ok := m.byEmail[email]
	if !ok {
		// Unknown addresses succeed silently so accounts cannot be probed.
		return nil
	}
	code := uuid.NewString()
	m.codes[code] = authCode{userID: id, challenge: req.CodeChallenge}
	d := Delivery{Kind: OTPRecovery, Code: code}
	if req.RedirectTo != "" {
		d.Link = withQuery(req.RedirectTo, "code", code)
	}
	m.outbox[email] = d
	m.log.Info("recovery issued", slog.String("to", email), slog.String("link", d.Link))
	return nil
}

func (m *Memory) ExchangeCode(_ context.Context, code, verifier string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ac, ok := m.codes[code]
	if !ok {
		return nil, newError(http.StatusNotFound, "flow_state_not_found", "invalid flow state, no valid flow state found")
	}
	if ac.challenge != "" && oauth2.S256ChallengeFromVerifier(verifier) != ac.challenge {
		return nil, newError(http.StatusBadRequest, "bad_code_verifier", "code challenge does not match previously saved code verifier")
	}
	delete(m.codes, code)
	return m.issue(ac.userID, false, false), nil
}

func (m *Memory) Refresh(_ context.Context, refreshToken string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.refresh[refreshToken]
	if !ok {
		return nil, newError(http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
	}
	delete(m.refresh, refreshToken)
	return m.issue(id, false, false), nil
}

func (m *Memory) GetUser(_ context.Context, accessToken string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.authorize(accessToken)
	if err != nil {
		return nil, err
	}
	out := u.user
	return &out, nil
}

func (m *Memory) UpdateUser(_ context.Context, accessToken string, upd UserUpdate) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.authorize(accessToken)
	if err != nil {
		return nil, err
	}
	if upd.Password != "" {
		if len([]rune(upd.Password)) < m.minPwLen {
			return nil, newError(http.StatusUnprocessableEntity, "weak_password",
				fmt.Sprintf("Password should be at least %d characters.", m.minPwLen))
		}
		if len(u.hash) > 0 && bcrypt.CompareHashAndPassword(u.hash, []byte(upd.Password)) == nil {
			return nil, newError(http.StatusUnprocessableEntity, "same_password",
				"New password should be different from the old password.")
		}
		if err := u.setPassword(upd.Password); err != nil {
			return nil, err
		}
	}
	if upd.Email != "" {
		delete(m.byEmail, normalize(u.user.Email))
		u.user.Email = normalize(upd.Email)
		m.byEmail[u.user.Email] = u.user.ID
	}
	out := u.user
	return &out, nil
}

func (m *Memory) Logout(_ context.Context, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, err := m.authorize(accessToken)
	if err != nil {
		return err
	}
	for tok, g := range m.access {
		if g.userID == u.user.ID {
			delete(m.access, tok)
		}
	}
	for tok, id := range m.refresh {
		if id == u.user.ID {
			delete(m.refresh, tok)
		}
	}
	return nil
}

// AuthorizeURL skips the consent screen: it signs in a fixed account for
// the provider and points straight back at RedirectTo with a code.
func (m *Memory) AuthorizeURL(req AuthorizeRequest) (string, error) {
	if req.Provider == "" || req.RedirectTo == "" {
		return "", fmt.Errorf("%w: provider and redirect are required", ErrInvalidConfig)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	email := req.Provider + "-user@example.com"
	id, ok := m.byEmail[email]
	if !ok {
		u, err := m.addUser(email, "", "")
		if err != nil {
			return "", err
		}
		now := m.now()
		u.user.EmailConfirmedAt = &now
		u.user.AppMetadata = map[string]any{"provider": req.Provider}
		id = u.user.ID
	}

	code := uuid.NewString()
	m.codes[code] = authCode{userID: id, challenge: req.CodeChallenge}
	return withQuery(req.RedirectTo, "code", code), nil
}

func (m *Memory) addUser(email, phone, password string) (*memUser, error) {
	u := &memUser{user: User{
		ID:        uuid.NewString(),
		Email:     normalize(email),
		Phone:     normalize(phone),
		Role:      "authenticated",
		CreatedAt: m.now(),
	}}
	if password != "" {
		if err := u.setPassword(password); err != nil {
			return nil, err
		}
	}
	m.users[u.user.ID] = u
	if u.user.Email != "" {
		m.byEmail[u.user.Email] = u.user.ID
	}
	if u.user.Phone != "" {
		m.byPhone[u.user.Phone] = u.user.ID
	}
	return u, nil
}

func (u *memUser) setPassword(pw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("identity: hash password: %w", err)
	}
	u.hash = hash
	return nil
}

func (m *Memory) authorize(accessToken string) (*memUser, error) {
	g, ok := m.access[accessToken]
	if !ok {
		return nil, newError(http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature")
	}
	if !m.now().Before(g.expires) {
		return nil, newError(http.StatusUnauthorized, "bad_jwt", "invalid JWT: token is expired")
	}
	u, ok := m.users[g.userID]
	if !ok {
		return nil, newError(http.StatusForbidden, "user_not_found", "User from sub claim in JWT does not exist")
	}
	return u, nil
}

// issue must be called with mu held.
func (m *Memory) issue(userID string, confirmEmail, confirmPhone bool) *Session {
	now := m.now()
	u := m.users[userID]
	if confirmEmail && u.user.EmailConfirmedAt == nil {
		u.user.EmailConfirmedAt = &now
	}
	if confirmPhone && u.user.PhoneConfirmedAt == nil {
		u.user.PhoneConfirmedAt = &now
	}
	u.user.LastSignInAt = &now

	access, refresh := "mem_"+uuid.NewString(), uuid.NewString()
	expires := now.Add(m.ttl)
	m.access[access] = accessGrant{userID: userID, expires: expires}
	m.refresh[refresh] = userID

	user := u.user
	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(m.ttl / time.Second),
		ExpiresAt:    expires.Unix(),
		User:         &user,
	}
}

func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
