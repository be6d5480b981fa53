package apiserver

import (
	"github.com/spf13/cobra"

	"github.com/opsdemo/cognito-gateway/internal/business"
	"github.com/opsdemo/cognito-gateway/internal/cmdutils"
)

func Cmd() *cobra.Command {
	return cmdutils.CobraCommand(
		"api-server",
		"Cognito Gateway API server",
		"Serves the public HTTP API: the authorization-code handshake, forward-auth verification and the AWS demo endpoints.",
		cmdutils.RunAsService,
		business.Main,
	)
}
