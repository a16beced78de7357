package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GoTrue talks to a GoTrue compatible auth server (Supabase Auth) over its
// REST API under /auth/v1.
type GoTrue struct {
	base   string
	apiKey string
	client *http.Client
	now    func() time.Time
}

type GoTrueOption func(*GoTrue)

func WithHTTPClient(c *http.Client) GoTrueOption {
	return func(g *GoTrue) {
		if c != nil {
			g.client = c
		}
	}
}

func NewGoTrue(projectURL, apiKey string, opts ...GoTrueOption) (*GoTrue, error) {
	u, err := url.Parse(projectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: project url %q", ErrInvalidConfig, projectURL)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}

	g := &GoTrue{
		base:   strings.TrimRight(projectURL, "/") + "/auth/v1",
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

func (g *GoTrue) SendOTP(ctx context.Context, req OTPRequest) error {
	if req.Email == "" && req.Phone == "" {
		return ErrMissingRecipient
	}
	body := map[string]any{"create_user": req.CreateUser}
	if req.Email != "" {
		body["email"] = req.Email
	} else {
		body["phone"] = req.Phone
		if req.Channel != "" {
			body["channel"] = req.Channel
		}
	}
	return g.do(ctx, http.MethodPost, "/otp", redirectQuery(req.RedirectTo), "", body, nil)
}

func (g *GoTrue) VerifyOTP(ctx context.Context, req VerifyRequest) (*Session, error) {
	body := map[string]any{"type": req.Type}
	switch {
	case req.TokenHash != "":
		body["token_hash"] = req.TokenHash
	case req.Email != "":
		body["email"], body["token"] = req.Email, req.Token
	default:
		body["phone"], body["token"] = req.Phone, req.Token
	}
	return g.session(ctx, "/verify", nil, body)
}

func (g *GoTrue) SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error) {
	body := map[string]any{"password": creds.Password}
	if creds.Email != "" {
		body["email"] = creds.Email
	} else {
		body["phone"] = creds.Phone
	}
	return g.session(ctx, "/token", url.Values{"grant_type": {"password"}}, body)
}

func (g *GoTrue) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	var sess Session
	body := map[string]any{"email": req.Email, "password": req.Password}
	if err := g.do(ctx, http.MethodPost, "/signup", redirectQuery(req.RedirectTo), "", body, &sess); err != nil {
		return nil, err
	}
	// Without auto confirmation the server answers with the bare user.
	if sess.AccessToken == "" {
		return nil, nil
	}
	g.stamp(&sess)
	return &sess, nil
}

func (g *GoTrue) Recover(ctx context.Context, req RecoverRequest) error {
	body := map[string]any{"email": req.Email}
	if req.CodeChallenge != "" {
		body["code_challenge"] = req.CodeChallenge
		body["code_challenge_method"] = "s256"
	}
	return g.do(ctx, http.MethodPost, "/recover", redirectQuery(req.RedirectTo), "", body, nil)
}

func (g *GoTrue) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	body := map[string]any{"auth_code": code, "code_verifier": verifier}
	return g.session(ctx, "/token", url.Values{"grant_type": {"pkce"}}, body)
}

func (g *GoTrue) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]any{"refresh_token": refreshToken}
	return g.session(ctx, "/token", url.Values{"grant_type": {"refresh_token"}}, body)
}

func (g *GoTrue) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := g.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *GoTrue) UpdateUser(ctx context.Context, accessToken string, upd UserUpdate) (*User, error) {
	var u User
	if err := g.do(ctx, http.MethodPut, "/user", nil, accessToken, upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (g *GoTrue) Logout(ctx context.Context, accessToken string) error {
	return g.do(ctx, http.MethodPost, "/logout", nil, accessToken, nil, nil)
}

func (g *GoTrue) AuthorizeURL(req AuthorizeRequest) (string, error) {
	if req.Provider == "" {
		return "", fmt.Errorf("%w: oauth provider is required", ErrInvalidConfig)
	}
	q := url.Values{"provider": {req.Provider}}
	if req.RedirectTo != "" {
		q.Set("redirect_to", req.RedirectTo)
	}
	if req.Scopes != "" {
		q.Set("scopes", req.Scopes)
	}
	if req.CodeChallenge != "" {
		q.Set("code_challenge", req.CodeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return g.base + "/authorize?" + q.Encode(), nil
}

func (g *GoTrue) session(ctx context.Context, path string, q url.Values, body any) (*Session, error) {
	var sess Session
	if err := g.do(ctx, http.MethodPost, path, q, "", body, &sess); err != nil {
		return nil, err
	}
	g.stamp(&sess)
	return &sess, nil
}

func (g *GoTrue) stamp(s *Session) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = g.now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}

func (g *GoTrue) do(ctx context.Context, method, path string, q url.Values, token string, in, out any) error {
	target := g.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("identity: encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", ErrTransport, err)
	}
	return nil
}

// errorBody covers the error shapes GoTrue has used across versions.
type errorBody struct {
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// decodeError maps a failed response to a provider rejection. Server
// errors and bodies that are not JSON come from the server or a proxy in
// front of it and are reported as transport failures.
func decodeError(status int, raw []byte) error {
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrTransport, status)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return newError(status, "", "")
	}

	var b errorBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return fmt.Errorf("%w: status %d: decode error body: %w", ErrTransport, status, err)
	}

	code := b.ErrorCode
	if code == "" {
		code = b.Error
	}
	msg := b.Msg
	for _, m := range []string{b.Message, b.ErrorDescription, b.Error} {
		if msg != "" {
			break
		}
		msg = m
	}
	return newError(status, code, msg)
}

func redirectQuery(to string) url.Values {
	if to == "" {
		return nil
	}
	return url.Values{"redirect_to": {to}}
}
