package auth

// Signals is the client state of an auth view. The browser sends the full
// store with every action; the server answers with patches.
type Signals struct {
	Form            string `json:"form"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	OTP             string `json:"otp"`
	OTPSent         bool   `json:"otpSent"`
	// OTPIdentifier is the email or phone a code was sent to. It is set by
	// the server when step one succeeds and is the only value used for
	// verification, so edits to the visible field cannot redirect step two.
	OTPIdentifier string `json:"otpIdentifier"`
	Busy          bool   `json:"busy"`
	OAuthError    string `json:"oauthError"`
}

// initialSignals seeds the store rendered into the page.
func initialSignals(f Form) Signals {
	return Signals{Form: f.String()}
}

// otpSentPatch switches the current form to its code entry step.
type otpSentPatch struct {
	OTPSent       bool   `json:"otpSent"`
	OTPIdentifier string `json:"otpIdentifier"`
	OTP           string `json:"otp"`
}

// formPatch resets per form state after a switch.
type formPatch struct {
	Form            string `json:"form"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	OTP             string `json:"otp"`
	OTPSent         bool   `json:"otpSent"`
	OTPIdentifier   string `json:"otpIdentifier"`
}

type oauthErrorPatch struct {
	OAuthError string `json:"oauthError"`
}
