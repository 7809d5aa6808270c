package types

// ProviderStatus is the derived authentication state
type ProviderStatus int

const (
	StatusUnauthorized ProviderStatus = 0
	StatusRequires2FA  ProviderStatus = 1
	StatusAuthorized   ProviderStatus = 2
)

// String returns the string representation of the status
func (s ProviderStatus) String() string {
	switch s {
	case StatusUnauthorized:
		return "unauthorized"
	case StatusRequires2FA:
		return "requires_2fa"
	case StatusAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Account is the authenticated identity held in the account slot
type Account struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// User is the provider user profile derived from the account slot
type User struct {
	Identifier string         `json:"identifier"`
	Username   string         `json:"username"`
	Avatar     string         `json:"avatar"`
	Status     ProviderStatus `json:"status"`
}
