// Package provision bootstraps the emulated Cognito user pool the
// gateway authenticates against: pool, hosted domain, app client and a
// test user with a permanent password. It is idempotent enough for demo
// use (rerunning creates a fresh pool; the emulator holds no state
// worth preserving).
package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	slogctx "github.com/veqryn/slog-context"
)

const (
	PoolName   = "oauth-test-pool"
	DomainName = "oauth-test-domain"
	ClientName = "oauth-test-client"

	TestUsername          = "testuser@example.com"
	TestPassword          = "TestPass123!"
	testTemporaryPassword = "TempPass123!"
)

// CognitoAdminAPI is the subset of the Cognito admin client the
// provisioner calls.
type CognitoAdminAPI interface {
	CreateUserPool(ctx context.Context, params *cip.CreateUserPoolInput, optFns ...func(*cip.Options)) (*cip.CreateUserPoolOutput, error)
	CreateUserPoolDomain(ctx context.Context, params *cip.CreateUserPoolDomainInput, optFns ...func(*cip.Options)) (*cip.CreateUserPoolDomainOutput, error)
	CreateUserPoolClient(ctx context.Context, params *cip.CreateUserPoolClientInput, optFns ...func(*cip.Options)) (*cip.CreateUserPoolClientOutput, error)
	AdminCreateUser(ctx context.Context, params *cip.AdminCreateUserInput, optFns ...func(*cip.Options)) (*cip.AdminCreateUserOutput, error)
	AdminSetUserPassword(ctx context.Context, params *cip.AdminSetUserPasswordInput, optFns ...func(*cip.Options)) (*cip.AdminSetUserPasswordOutput, error)
}

type Provisioner struct {
	api CognitoAdminAPI
}

func NewProvisioner(awsConfig aws.Config) *Provisioner {
	return &Provisioner{api: cip.NewFromConfig(awsConfig)}
}

func NewProvisionerWithAPI(api CognitoAdminAPI) *Provisioner {
	return &Provisioner{api: api}
}

// Result carries the identifiers callers need to configure the gateway
// against the freshly provisioned pool.
type Result struct {
	UserPoolID   string
	ClientID     string
	ClientSecret string
	Domain       string
}

// Setup provisions the pool end to end and returns its identifiers.
func (p *Provisioner) Setup(ctx context.Context) (Result, error) {
	pool, err := p.api.CreateUserPool(ctx, &cip.CreateUserPoolInput{
		PoolName: aws.String(PoolName),
		Policies: &ciptypes.UserPoolPolicyType{
			PasswordPolicy: &ciptypes.PasswordPolicyType{
				MinimumLength:    aws.Int32(8),
				RequireUppercase: false,
				RequireLowercase: false,
				RequireNumbers:   false,
				RequireSymbols:   false,
			},
		},
		AutoVerifiedAttributes: []ciptypes.VerifiedAttributeType{ciptypes.VerifiedAttributeTypeEmail},
		UsernameAttributes:     []ciptypes.UsernameAttributeType{ciptypes.UsernameAttributeTypeEmail},
		Schema: []ciptypes.SchemaAttributeType{
			schemaAttribute("email", true),
			schemaAttribute("given_name", false),
			schemaAttribute("family_name", false),
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating user pool: %w", err)
	}
	userPoolID := aws.ToString(pool.UserPool.Id)
	slogctx.Info(ctx, "Created user pool", "user_pool_id", userPoolID)

	if _, err := p.api.CreateUserPoolDomain(ctx, &cip.CreateUserPoolDomainInput{
		Domain:     aws.String(DomainName),
		UserPoolId: aws.String(userPoolID),
	}); err != nil {
		return Result{}, fmt.Errorf("creating user pool domain: %w", err)
	}
	slogctx.Info(ctx, "Created user pool domain", "domain", DomainName)

	client, err := p.api.CreateUserPoolClient(ctx, &cip.CreateUserPoolClientInput{
		UserPoolId:     aws.String(userPoolID),
		ClientName:     aws.String(ClientName),
		GenerateSecret: true,
		CallbackURLs:   []string{"http://localhost:9000/oauth2/callback"},
		LogoutURLs:     []string{"http://localhost:9000/oauth2/sign_out"},
		AllowedOAuthFlows: []ciptypes.OAuthFlowType{
			ciptypes.OAuthFlowTypeCode,
		},
		AllowedOAuthScopes:              []string{"openid", "email", "profile"},
		AllowedOAuthFlowsUserPoolClient: true,
		SupportedIdentityProviders:      []string{"COGNITO"},
		ExplicitAuthFlows: []ciptypes.ExplicitAuthFlowsType{
			ciptypes.ExplicitAuthFlowsTypeAllowUserPasswordAuth,
			ciptypes.ExplicitAuthFlowsTypeAllowRefreshTokenAuth,
			ciptypes.ExplicitAuthFlowsTypeAllowUserSrpAuth,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("creating user pool client: %w", err)
	}
	clientID := aws.ToString(client.UserPoolClient.ClientId)
	slogctx.Info(ctx, "Created user pool client", "client_id", clientID)

	if _, err := p.api.AdminCreateUser(ctx, &cip.AdminCreateUserInput{
		UserPoolId: aws.String(userPoolID),
		Username:   aws.String(TestUsername),
		UserAttributes: []ciptypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(TestUsername)},
			{Name: aws.String("given_name"), Value: aws.String("Test")},
			{Name: aws.String("family_name"), Value: aws.String("User")},
			{Name: aws.String("email_verified"), Value: aws.String("true")},
		},
		TemporaryPassword: aws.String(testTemporaryPassword),
		MessageAction:     ciptypes.MessageActionTypeSuppress,
	}); err != nil {
		return Result{}, fmt.Errorf("creating test user: %w", err)
	}

	if _, err := p.api.AdminSetUserPassword(ctx, &cip.AdminSetUserPasswordInput{
		UserPoolId: aws.String(userPoolID),
		Username:   aws.String(TestUsername),
		Password:   aws.String(TestPassword),
		Permanent:  true,
	}); err != nil {
		return Result{}, fmt.Errorf("setting test user password: %w", err)
	}
	slogctx.Info(ctx, "Created test user", "username", TestUsername)

	return Result{
		UserPoolID:   userPoolID,
		ClientID:     clientID,
		ClientSecret: aws.ToString(client.UserPoolClient.ClientSecret),
		Domain:       DomainName,
	}, nil
}

func schemaAttribute(name string, required bool) ciptypes.SchemaAttributeType {
	return ciptypes.SchemaAttributeType{
		AttributeDataType: ciptypes.AttributeDataTypeString,
		Name:              aws.String(name),
		Required:          aws.Bool(required),
		Mutable:           aws.Bool(true),
	}
}
