package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "fhecity",
		Short: "Play the confidential city from the command line",
		Long: `fhecity talks to a confidential city server.

Balances, tiles and placement outcomes are stored encrypted. Commands that
read them print ciphertext summaries unless --decrypt is given, in which case
the values are decrypted through the server's gateway for the current player.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.LoadToken(); err != nil {
				return err
			}

			client = NewClient(cfg.ServerURL, cfg.Token)
			client.httpClient.Timeout = cfg.Timeout
			client.verbose = cfg.Verbose
			return nil
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: "+EnvServer+")")
	flags.StringVar(&cfg.Token, "token", cfg.Token, "Session token (env: "+EnvToken+")")
	flags.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "Session file path (env: "+EnvTokenFile+")")
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", cfg.Verbose, "Log each request to stderr")
	flags.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Request timeout")

	rootCmd.AddCommand(
		newPlayerCmd(),
		newCityCmd(),
		newDecryptCmd(),
		newEventsCmd(),
		newHealthCmd(),
	)

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
