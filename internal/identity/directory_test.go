package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ciptypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectoryAPI struct {
	pools          []ciptypes.UserPoolDescriptionType
	clients        []ciptypes.UserPoolClientDescription
	listPoolsErr   error
	listClientsErr error

	clientsInput *cip.ListUserPoolClientsInput
}

func (f *fakeDirectoryAPI) ListUserPools(_ context.Context, _ *cip.ListUserPoolsInput, _ ...func(*cip.Options)) (*cip.ListUserPoolsOutput, error) {
	if f.listPoolsErr != nil {
		return nil, f.listPoolsErr
	}
	return &cip.ListUserPoolsOutput{UserPools: f.pools}, nil
}

func (f *fakeDirectoryAPI) ListUserPoolClients(_ context.Context, params *cip.ListUserPoolClientsInput, _ ...func(*cip.Options)) (*cip.ListUserPoolClientsOutput, error) {
	if f.listClientsErr != nil {
		return nil, f.listClientsErr
	}
	f.clientsInput = params
	return &cip.ListUserPoolClientsOutput{UserPoolClients: f.clients}, nil
}

func TestDirectory_Describe(t *testing.T) {
	t.Run("lists pools and the configured pool's clients", func(t *testing.T) {
		api := &fakeDirectoryAPI{
			pools: []ciptypes.UserPoolDescriptionType{
				{Id: aws.String("us-east-1_test"), Name: aws.String("oauth-test-pool")},
			},
			clients: []ciptypes.UserPoolClientDescription{
				{ClientId: aws.String("client-123"), ClientName: aws.String("oauth-test-client")},
			},
		}
		directory := NewDirectoryWithAPI(api, "us-east-1_test")

		info := directory.Describe(t.Context())

		require.Len(t, info.UserPools, 1)
		assert.Equal(t, "us-east-1_test", info.UserPools[0].ID)
		assert.Equal(t, "oauth-test-pool", info.UserPools[0].Name)

		require.Len(t, info.Clients, 1)
		assert.Equal(t, "client-123", info.Clients[0].ID)

		require.NotNil(t, api.clientsInput)
		assert.Equal(t, "us-east-1_test", aws.ToString(api.clientsInput.UserPoolId))
	})

	t.Run("listing failures degrade to empty slices", func(t *testing.T) {
		api := &fakeDirectoryAPI{
			listPoolsErr:   errors.New("emulator down"),
			listClientsErr: errors.New("emulator down"),
		}
		directory := NewDirectoryWithAPI(api, "us-east-1_test")

		info := directory.Describe(t.Context())

		assert.Empty(t, info.UserPools)
		assert.Empty(t, info.Clients)
		assert.NotNil(t, info.UserPools)
		assert.NotNil(t, info.Clients)
	})
}
