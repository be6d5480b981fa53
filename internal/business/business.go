// Package business wires configuration into running components: the
// gateway API server, the session housekeeper and the pool provisioner.
package business

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/valkey-io/valkey-go"

	slogctx "github.com/veqryn/slog-context"

	"github.com/opsdemo/cognito-gateway/internal/awsdemo"
	"github.com/opsdemo/cognito-gateway/internal/business/server"
	"github.com/opsdemo/cognito-gateway/internal/config"
	"github.com/opsdemo/cognito-gateway/internal/identity"
	"github.com/opsdemo/cognito-gateway/internal/provision"
	"github.com/opsdemo/cognito-gateway/internal/session"
	sessionmemory "github.com/opsdemo/cognito-gateway/internal/session/memory"
	sessionvalkey "github.com/opsdemo/cognito-gateway/internal/session/valkey"
)

// Main starts the public HTTP API server.
func Main(ctx context.Context, cfg *config.Config) error {
	gateway, closeFn, err := initGateway(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialising the gateway: %w", err)
	}
	defer closeFn()

	return server.StartHTTPServer(ctx, cfg, gateway.sessionManager, gateway.demoService, gateway.directory)
}

// SetupMain provisions the emulated user pool and prints the resulting
// identifiers, then exits.
func SetupMain(ctx context.Context, cfg *config.Config) error {
	awsConfig, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	result, err := provision.NewProvisioner(awsConfig).Setup(ctx)
	if err != nil {
		return fmt.Errorf("provisioning the user pool: %w", err)
	}

	slogctx.Info(ctx, "User pool provisioned",
		"user_pool_id", result.UserPoolID,
		"client_id", result.ClientID,
		"domain", result.Domain,
	)

	return nil
}

type gateway struct {
	sessionManager *session.Manager
	demoService    *awsdemo.Service
	directory      *identity.Directory
}

func initGateway(ctx context.Context, cfg *config.Config) (_ *gateway, closeFn func(), _ error) {
	awsConfig, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("loading AWS config: %w", err)
	}

	clientID, err := cfg.Cognito.ClientID.Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving cognito client id: %w", err)
	}

	userPoolID, err := cfg.Cognito.UserPoolID.Resolve()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving cognito user pool id: %w", err)
	}

	sessionRepo, closeFn, err := initSessionRepository(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialising the session repository: %w", err)
	}

	identityClient := identity.NewClient(awsConfig, clientID)
	sessionManager := session.NewManager(cfg, identityClient, sessionRepo)
	demoService := awsdemo.NewService(awsConfig, cfg.AWS.EndpointURL, cfg.AWS.UsePathStyle)
	directory := identity.NewDirectory(awsConfig, userPoolID)

	return &gateway{
		sessionManager: sessionManager,
		demoService:    demoService,
		directory:      directory,
	}, closeFn, nil
}

func initSessionRepository(cfg *config.Config) (session.Repository, func(), error) {
	switch cfg.SessionStore.Backend {
	case "", "memory":
		repo := sessionmemory.NewRepository(cfg.SessionStore.TTL, cfg.SessionStore.CleanupInterval)
		return repo, func() {}, nil

	case "valkey":
		host, err := cfg.SessionStore.ValKey.Host.Resolve()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving valkey host: %w", err)
		}

		user, err := cfg.SessionStore.ValKey.User.Resolve()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving valkey username: %w", err)
		}

		password, err := cfg.SessionStore.ValKey.Password.Resolve()
		if err != nil {
			return nil, nil, fmt.Errorf("resolving valkey password: %w", err)
		}

		valkeyClient, err := valkey.NewClient(valkey.ClientOption{
			InitAddress: []string{host},
			Username:    user,
			Password:    password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("creating a valkey client: %w", err)
		}

		return sessionvalkey.NewRepository(valkeyClient, cfg.SessionStore.ValKey.Prefix), valkeyClient.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown session store backend: %q", cfg.SessionStore.Backend)
	}
}

// loadAWSConfig builds an SDK config pointed at the configured endpoint.
// The emulator accepts any static credentials; "testing" is the
// conventional pair.
func loadAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	accessKeyID, err := cfg.AWS.AccessKeyID.ResolveOr("testing")
	if err != nil {
		return aws.Config{}, fmt.Errorf("resolving AWS access key id: %w", err)
	}

	secretAccessKey, err := cfg.AWS.SecretAccessKey.ResolveOr("testing")
	if err != nil {
		return aws.Config{}, fmt.Errorf("resolving AWS secret access key: %w", err)
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWS.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		),
		awsconfig.WithBaseEndpoint(cfg.AWS.EndpointURL),
	)
	if err != nil {
		return aws.Config{}, err
	}

	return awsConfig, nil
}
