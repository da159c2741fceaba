package cli

import (
	"fmt"

	"skillmatch/internal/common"
	"skillmatch/internal/roles"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the role presets",
	Long: `List the role presets and their skills. The built-in presets can be
extended or replaced by the YAML file set in roles.file.`,
	Args:    cobra.NoArgs,
	PreRunE: outputPreRun(&rolesConfig),
	RunE:    runRoles,
}

var rolesConfig common.CommandConfig

func init() {
	addOutputFlags(rolesCmd, &rolesConfig)
}

func runRoles(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	catalog, err := roles.NewCatalog(cfg.Roles.File, logger)
	if err != nil {
		return fmt.Errorf("failed to load roles: %w", err)
	}

	return common.NewOutputHandler(logger, cmd.OutOrStdout()).HandleOutput(catalog.List(), rolesConfig)
}
