package enums

// AuthStatus is the state of the shopper's credential session.
type AuthStatus string

const (
	AuthStatusAnonymous      AuthStatus = "anonymous"
	AuthStatusAuthenticating AuthStatus = "authenticating"
	AuthStatusAuthenticated  AuthStatus = "authenticated"
)

// String implements fmt.Stringer.
func (a AuthStatus) String() string {
	return string(a)
}
