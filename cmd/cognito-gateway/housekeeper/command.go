package housekeeper

import (
	"github.com/spf13/cobra"

	"github.com/opsdemo/cognito-gateway/internal/business"
	"github.com/opsdemo/cognito-gateway/internal/cmdutils"
)

func Cmd() *cobra.Command {
	return cmdutils.CobraCommand(
		"housekeeper",
		"Cognito Gateway housekeeper",
		"Periodically purges expired sessions from the session store.",
		cmdutils.RunAsJob,
		business.HousekeeperMain,
	)
}
