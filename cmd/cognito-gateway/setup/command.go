package setup

import (
	"github.com/spf13/cobra"

	"github.com/opsdemo/cognito-gateway/internal/business"
	"github.com/opsdemo/cognito-gateway/internal/cmdutils"
)

func Cmd() *cobra.Command {
	return cmdutils.CobraCommand(
		"setup",
		"Provision the emulated user pool",
		"Creates the user pool, hosted domain, app client and test user the gateway authenticates against.",
		cmdutils.RunAsJob,
		business.SetupMain,
	)
}
