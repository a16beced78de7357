package identity

import "time"

// User is the provider's account record. Only presence matters to most
// callers; the remaining fields are informational.
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	Role             string         `json:"role,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	PhoneConfirmedAt *time.Time     `json:"phone_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Session is an issued token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// Expiry returns the access token expiry, deriving it from ExpiresIn when
// the provider omitted an absolute timestamp.
func (s *Session) Expiry(issued time.Time) time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return issued.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// OTPType selects the verification flow.
type OTPType string

const (
	OTPEmail     OTPType = "email"
	OTPSMS       OTPType = "sms"
	OTPMagicLink OTPType = "magiclink"
	OTPRecovery  OTPType = "recovery"
	OTPSignup    OTPType = "signup"
)

// Channel is the phone delivery channel.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

// OTPRequest asks the provider to send a one-time code or magic link to
// exactly one of Email or Phone.
type OTPRequest struct {
	Email      string
	Phone      string
	Channel    Channel
	CreateUser bool
	RedirectTo string
}

// VerifyRequest verifies a code for an identifier, or a link token hash.
type VerifyRequest struct {
	Type      OTPType
	Email     string
	Phone     string
	Token     string
	TokenHash string
}

type Credentials struct {
	Email    string
	Phone    string
	Password string
}

type SignUpRequest struct {
	Email      string
	Password   string
	RedirectTo string
}

// RecoverRequest starts a password reset. The emailed link carries a code
// that is exchanged with the verifier matching CodeChallenge.
type RecoverRequest struct {
	Email         string
	RedirectTo    string
	CodeChallenge string
}

type UserUpdate struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// AuthorizeRequest starts an OAuth handshake with PKCE.
type AuthorizeRequest struct {
	Provider      string
	RedirectTo    string
	CodeChallenge string
	Scopes        string
}
