package main

import (
	"errors"
	"os"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sqldirectory",
		Short:         "SQL-backed external identity directory",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)

	rootCmd.AddCommand(
		newServeCommand(),
		newValidateCommand(),
		newSchemaCommand(),
		newUsersCommand(),
		newVerifyPasswordCommand(),
		newIssueTokenCommand(),
	)
	return rootCmd
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("driver-class", defaults.GetString("store.driver_class"), "Store driver name or driver class alias")
	cmd.PersistentFlags().String("connection-url", defaults.GetString("store.connection_url"), "Store connection URL or DSN")
	cmd.PersistentFlags().String("db-user", "", "Store user")
	cmd.PersistentFlags().String("db-password", "", "Store password (overrides env)")
	cmd.PersistentFlags().String("validation-query", defaults.GetString("store.validation_query"), "Query used to validate the store connection")
	cmd.PersistentFlags().String("password-encoding", defaults.GetString("store.password_encoding"), "Stored password encoding (plain, bcrypt)")
	cmd.PersistentFlags().String("signing-secret", "", "Host token signing secret (overrides env)")
	cmd.PersistentFlags().Bool("metrics", defaults.GetBool("metrics.enabled"), "Record Prometheus metrics")

	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "store.driver_class", "driver-class")
	bindFlag(cmd, "store.connection_url", "connection-url")
	bindFlag(cmd, "store.db_user", "db-user")
	bindFlag(cmd, "store.db_password", "db-password")
	bindFlag(cmd, "store.validation_query", "validation-query")
	bindFlag(cmd, "store.password_encoding", "password-encoding")
	bindFlag(cmd, "host.signing_secret", "signing-secret")
	bindFlag(cmd, "metrics.enabled", "metrics")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	flags := cmd.PersistentFlags()
	if flags.Lookup(flag) == nil {
		flags = cmd.Flags()
	}
	if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}
