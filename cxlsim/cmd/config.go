package cmd

import (
	"github.com/spf13/cobra"

	"github.com/sarchlab/cxlsim/config"
)

func newConfigCmd() *cobra.Command {
	var configFile string

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML.",
		Long: `config prints the default configuration, or the one built ` +
			`from --config and the CXLSIM_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()

			if configFile != "" {
				var err error

				cfg, err = config.Load(configFile)
				if err != nil {
					return err
				}
			}

			data, err := cfg.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	configCmd.Flags().StringVar(&configFile, "config", "",
		"Configuration file to load")

	return configCmd
}
