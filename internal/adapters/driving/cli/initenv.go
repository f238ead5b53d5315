package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitbook-qa/gitbook-qa/internal/config"
)

var initEnvCmd = &cobra.Command{
	Use:   "init-env",
	Short: "Write a .env template",
	Long: `Writes a .env file listing every setting gitbook-qa reads, with
placeholders for the API keys and database connection.

The file named by --env-file is written. An existing file is kept unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: runInitEnv,
}

func init() {
	initEnvCmd.Flags().Bool("force", false, "Overwrite an existing file")
	rootCmd.AddCommand(initEnvCmd)
}

func runInitEnv(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("getting force flag: %w", err)
	}

	if err := config.WriteEnvTemplate(envFile, force); err != nil {
		return err
	}

	cmd.Printf("Wrote %s. Edit it to add your API key and database connection.\n", envFile)
	return nil
}
