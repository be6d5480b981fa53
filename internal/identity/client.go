// Package identity wraps the two Cognito operations the gateway needs:
// password-based authentication and access-token-to-profile resolution.
// The client is stateless; expected authentication failures are returned
// as serviceerr values, not raised.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/serviceerr"
)

// CognitoAPI is the subset of the Cognito identity provider API the client
// uses, extracted as an interface to enable mock injection for testing.
type CognitoAPI interface {
	InitiateAuth(
		ctx context.Context,
		params *cognitoidentityprovider.InitiateAuthInput,
		optFns ...func(*cognitoidentityprovider.Options),
	) (*cognitoidentityprovider.InitiateAuthOutput, error)
	GetUser(
		ctx context.Context,
		params *cognitoidentityprovider.GetUserInput,
		optFns ...func(*cognitoidentityprovider.Options),
	) (*cognitoidentityprovider.GetUserOutput, error)
}

type Client struct {
	api      CognitoAPI
	clientID string
}

// NewClient creates an identity client for the given user pool client.
func NewClient(cfg aws.Config, clientID string) *Client {
	return &Client{
		api:      cognitoidentityprovider.NewFromConfig(cfg),
		clientID: clientID,
	}
}

// NewClientWithAPI creates an identity client on top of an existing API
// implementation. Used by tests.
func NewClientWithAPI(api CognitoAPI, clientID string) *Client {
	return &Client{api: api, clientID: clientID}
}

// Authenticate performs a USER_PASSWORD_AUTH flow and returns the token
// bundle. A single call is made per invocation; transient provider
// failures surface directly to the caller.
func (c *Client) Authenticate(ctx context.Context, username, password string) (TokenBundle, error) {
	if username == "" || password == "" {
		return TokenBundle{}, serviceerr.ErrInvalidRequest.WithDescription("username and password are required")
	}

	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": username,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return TokenBundle{}, classifyAuthError(err)
	}

	bundle := TokenBundle{
		ChallengeName: string(out.ChallengeName),
		Session:       aws.ToString(out.Session),
	}
	if result := out.AuthenticationResult; result != nil {
		bundle.AccessToken = aws.ToString(result.AccessToken)
		bundle.IDToken = aws.ToString(result.IdToken)
		bundle.RefreshToken = aws.ToString(result.RefreshToken)
		bundle.TokenType = aws.ToString(result.TokenType)
		bundle.ExpiresIn = result.ExpiresIn
	}

	if bundle.ChallengeName != "" {
		slogctx.Info(ctx, "Authentication requires an additional challenge", "challenge", bundle.ChallengeName)
	}

	return bundle, nil
}

// ResolveProfile returns the full attribute mapping for the principal
// owning the given access token. The profile is never partially
// populated: a response missing a required attribute is an error.
func (c *Client) ResolveProfile(ctx context.Context, accessToken string) (Profile, error) {
	if accessToken == "" {
		return Profile{}, serviceerr.ErrInvalidRequest.WithDescription("access token is required")
	}

	out, err := c.api.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(accessToken),
	})
	if err != nil {
		return Profile{}, classifyProfileError(err)
	}

	profile := Profile{Username: aws.ToString(out.Username)}
	for _, attr := range out.UserAttributes {
		switch aws.ToString(attr.Name) {
		case "email":
			profile.Email = aws.ToString(attr.Value)
		case "given_name":
			profile.GivenName = aws.ToString(attr.Value)
		case "family_name":
			profile.FamilyName = aws.ToString(attr.Value)
		case "email_verified":
			profile.EmailVerified = aws.ToString(attr.Value) == "true"
		}
	}

	if profile.Email == "" {
		return Profile{}, fmt.Errorf("profile for %q is missing the required email attribute", profile.Username)
	}

	return profile, nil
}

// classifyAuthError maps provider errors onto the service taxonomy:
// rejected credentials are a credential error carrying the provider's
// message, anything that never reached the provider API is a transport
// failure.
func classifyAuthError(err error) error {
	var notAuthorized *types.NotAuthorizedException
	var userNotFound *types.UserNotFoundException
	var notConfirmed *types.UserNotConfirmedException
	var resetRequired *types.PasswordResetRequiredException

	switch {
	case errors.As(err, &notAuthorized):
		return serviceerr.ErrInvalidCredentials.WithDescription(aws.ToString(notAuthorized.Message))
	case errors.As(err, &userNotFound):
		return serviceerr.ErrInvalidCredentials.WithDescription(aws.ToString(userNotFound.Message))
	case errors.As(err, &notConfirmed):
		return serviceerr.ErrInvalidCredentials.WithDescription(aws.ToString(notConfirmed.Message))
	case errors.As(err, &resetRequired):
		return serviceerr.ErrInvalidCredentials.WithDescription(aws.ToString(resetRequired.Message))
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return serviceerr.ErrUnknown.WithDescription(apiErr.ErrorMessage())
	}

	return serviceerr.ErrProviderUnavailable.WithDescription(err.Error())
}

func classifyProfileError(err error) error {
	var notAuthorized *types.NotAuthorizedException
	if errors.As(err, &notAuthorized) {
		return serviceerr.ErrUnauthorized.WithDescription(aws.ToString(notAuthorized.Message))
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return serviceerr.ErrUnknown.WithDescription(apiErr.ErrorMessage())
	}

	return serviceerr.ErrProviderUnavailable.WithDescription(err.Error())
}
