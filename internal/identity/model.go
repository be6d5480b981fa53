package identity

// TokenBundle is the opaque credential set returned by the identity
// provider. The gateway never parses or verifies any of the tokens; they
// are stored and forwarded as-is.
//
// When the provider requires additional authentication steps it returns a
// challenge name and a provider session instead of tokens. The gateway
// treats that as a non-terminal success that yields no usable profile; it
// does not implement the follow-up challenge legs.
type TokenBundle struct {
	AccessToken  string `json:"accessToken,omitempty"`
	IDToken      string `json:"idToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	TokenType    string `json:"tokenType,omitempty"`
	ExpiresIn    int32  `json:"expiresIn,omitempty"`

	ChallengeName string `json:"challengeName,omitempty"`
	Session       string `json:"session,omitempty"`
}

// HasAccessToken reports whether the bundle carries a usable access token,
// i.e. authentication completed without a pending challenge.
func (t TokenBundle) HasAccessToken() bool {
	return t.AccessToken != ""
}

// Profile holds the resolved identity attributes for a principal. Username
// and Email are always present on a resolved profile (the user pool uses
// the email address as the username); GivenName and FamilyName are
// optional and empty when the pool has no value for them.
type Profile struct {
	Username      string `json:"username"`
	Email         string `json:"email"`
	GivenName     string `json:"givenName,omitempty"`
	FamilyName    string `json:"familyName,omitempty"`
	EmailVerified bool   `json:"emailVerified,omitempty"`
}

// Identifier returns the stable identifier of the principal.
func (p Profile) Identifier() string {
	if p.Email != "" {
		return p.Email
	}

	return p.Username
}
