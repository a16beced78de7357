package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Provider is the transport to the identity service. Implementations are
// stateless with respect to the browser; Client binds one to a cookie jar.
type Provider interface {
	SendOTP(ctx context.Context, req OTPRequest) error
	VerifyOTP(ctx context.Context, req VerifyRequest) (*Session, error)
	SignInWithPassword(ctx context.Context, creds Credentials) (*Session, error)
	// SignUp returns a nil session when the account awaits email confirmation.
	SignUp(ctx context.Context, req SignUpRequest) (*Session, error)
	Recover(ctx context.Context, req RecoverRequest) error
	ExchangeCode(ctx context.Context, code, verifier string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	UpdateUser(ctx context.Context, accessToken string, upd UserUpdate) (*User, error)
	Logout(ctx context.Context, accessToken string) error
	AuthorizeURL(req AuthorizeRequest) (string, error)
}

const (
	DriverGoTrue = "gotrue"
	DriverMemory = "memory"
)

// Config selects and configures the provider.
type Config struct {
	Driver  string        `env:"IDENTITY_DRIVER" envDefault:"gotrue"`
	URL     string        `env:"SUPABASE_URL"`
	AnonKey string        `env:"SUPABASE_ANON_KEY"`
	Timeout time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig builds the provider named by cfg.Driver.
func NewFromConfig(cfg Config, log *slog.Logger) (Provider, error) {
	switch cfg.Driver {
	case DriverGoTrue, "":
		return NewGoTrue(cfg.URL, cfg.AnonKey,
			WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		)
	case DriverMemory:
		return NewMemory(WithMemoryLogger(log)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Handle is a process scoped, lazily built provider. The first Get builds
// it; later calls return the same instance or the same error.
type Handle struct {
	build func() (Provider, error)

	mu       sync.Mutex
	once     *sync.Once
	provider Provider
	err      error
}

func NewHandle(build func() (Provider, error)) *Handle {
	return &Handle{build: build, once: new(sync.Once)}
}

func (h *Handle) Get() (Provider, error) {
	h.mu.Lock()
	once := h.once
	h.mu.Unlock()

	once.Do(func() {
		p, err := h.build()
		h.mu.Lock()
		h.provider, h.err = p, err
		h.mu.Unlock()
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.provider, h.err
}

// MustGet panics when the provider cannot be built.
func (h *Handle) MustGet() Provider {
	p, err := h.Get()
	if err != nil {
		panic(err)
	}
	return p
}

// Reset forgets the built provider so the next Get builds a new one.
func (h *Handle) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.once = new(sync.Once)
	h.provider, h.err = nil, nil
}
