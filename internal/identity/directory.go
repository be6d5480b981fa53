package identity

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	slogctx "github.com/veqryn/slog-context"
)

const listPageSize = 10

// CognitoDirectoryAPI is the subset of the Cognito client used for the
// read-only pool introspection behind the config endpoint.
type CognitoDirectoryAPI interface {
	ListUserPools(ctx context.Context, params *cip.ListUserPoolsInput, optFns ...func(*cip.Options)) (*cip.ListUserPoolsOutput, error)
	ListUserPoolClients(ctx context.Context, params *cip.ListUserPoolClientsInput, optFns ...func(*cip.Options)) (*cip.ListUserPoolClientsOutput, error)
}

// Directory exposes the provider's pool and client listings.
type Directory struct {
	api        CognitoDirectoryAPI
	userPoolID string
}

func NewDirectory(awsConfig aws.Config, userPoolID string) *Directory {
	return &Directory{
		api:        cip.NewFromConfig(awsConfig),
		userPoolID: userPoolID,
	}
}

func NewDirectoryWithAPI(api CognitoDirectoryAPI, userPoolID string) *Directory {
	return &Directory{api: api, userPoolID: userPoolID}
}

type PoolSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ClientSummary struct {
	ID   string `json:"client_id"`
	Name string `json:"client_name"`
}

type DirectoryInfo struct {
	UserPools []PoolSummary   `json:"user_pools"`
	Clients   []ClientSummary `json:"clients"`
}

// Describe lists the pools and the configured pool's clients. Listing
// failures degrade to empty slices; the endpoint this feeds is purely
// informational.
func (d *Directory) Describe(ctx context.Context) DirectoryInfo {
	info := DirectoryInfo{
		UserPools: []PoolSummary{},
		Clients:   []ClientSummary{},
	}

	pools, err := d.api.ListUserPools(ctx, &cip.ListUserPoolsInput{
		MaxResults: aws.Int32(listPageSize),
	})
	if err != nil {
		slogctx.Warn(ctx, "Could not list user pools", "error", err)
	} else {
		for _, pool := range pools.UserPools {
			info.UserPools = append(info.UserPools, PoolSummary{
				ID:   aws.ToString(pool.Id),
				Name: aws.ToString(pool.Name),
			})
		}
	}

	clients, err := d.api.ListUserPoolClients(ctx, &cip.ListUserPoolClientsInput{
		UserPoolId: aws.String(d.userPoolID),
		MaxResults: aws.Int32(listPageSize),
	})
	if err != nil {
		slogctx.Warn(ctx, "Could not list user pool clients", "error", err)
	} else {
		for _, client := range clients.UserPoolClients {
			info.Clients = append(info.Clients, ClientSummary{
				ID:   aws.ToString(client.ClientId),
				Name: aws.ToString(client.ClientName),
			})
		}
	}

	return info
}
