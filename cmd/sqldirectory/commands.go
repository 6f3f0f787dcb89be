package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/config"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/directory"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/logging"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/metrics"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/provider"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const defaultCLIRealm = "cli"

// bindProvider wires a factory into a registry and binds it to the configured store.
func bindProvider(appConfig config.AppConfig, logger *zap.Logger) (provider.Binding, *provider.Factory, error) {
	factory := provider.NewFactory(provider.FactoryConfig{
		Logger:  logger,
		Metrics: metrics.Init(appConfig.MetricsEnabled),
	})
	registry, err := provider.NewRegistry(factory)
	if err != nil {
		return provider.Binding{}, nil, err
	}
	binding, err := registry.Bind(factory.ID(), appConfig.Provider)
	if err != nil {
		return provider.Binding{}, nil, err
	}
	return binding, factory, nil
}

// commandEnv loads configuration and a logger for a one-shot command.
func commandEnv() (config.AppConfig, *zap.Logger, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return config.AppConfig{}, nil, err
	}
	return appConfig, logger, nil
}

// withDirectory opens a provider for the duration of fn.
func withDirectory(cmd *cobra.Command, fn func(directory.Provider, directory.Realm) error) error {
	appConfig, logger, err := commandEnv()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	binding, _, err := bindProvider(appConfig, logger)
	if err != nil {
		return err
	}
	opened, err := binding.Open(cmd.Context())
	if err != nil {
		return err
	}
	defer opened.Close()

	realm, err := cmd.Flags().GetString("realm")
	if err != nil {
		return err
	}
	return fn(opened, directory.Realm(realm))
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Connect to the store and run the validation query",
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := commandEnv()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			_, factory, err := bindProvider(appConfig, logger)
			if err != nil {
				return err
			}
			if err := factory.ValidateConfiguration(cmd.Context(), appConfig.Provider); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the provider configuration schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeJSON(cmd.OutOrStdout(), provider.Schema())
		},
	}
}

func newUsersCommand() *cobra.Command {
	usersCmd := &cobra.Command{
		Use:   "users",
		Short: "Query the user directory",
	}
	usersCmd.PersistentFlags().String("realm", defaultCLIRealm, "Realm name recorded in logs")

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDirectory(cmd, func(users directory.Provider, realm directory.Realm) error {
				count, err := users.CountUsers(cmd.Context(), realm)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatInt(count, 10))
				return nil
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users ordered by username",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			first, _ := cmd.Flags().GetInt("first")
			limit, _ := cmd.Flags().GetInt("max")
			return withDirectory(cmd, func(users directory.Provider, realm directory.Realm) error {
				identities, err := users.ListUsersPage(cmd.Context(), realm, first, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), identityViews(identities))
			})
		},
	}

	searchCmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search users by SQL LIKE pattern on username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			first, _ := cmd.Flags().GetInt("first")
			limit, _ := cmd.Flags().GetInt("max")
			return withDirectory(cmd, func(users directory.Provider, realm directory.Realm) error {
				identities, err := users.SearchUsersPage(cmd.Context(), realm, args[0], first, limit)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), identityViews(identities))
			})
		},
	}

	for _, windowed := range []*cobra.Command{listCmd, searchCmd} {
		windowed.Flags().Int("first", 0, "Offset of the first result")
		windowed.Flags().Int("max", directory.DefaultPageSize, "Maximum number of results")
	}

	getCmd := &cobra.Command{
		Use:   "get <id|username>",
		Short: "Look up a user by composite id or username",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byEmail, _ := cmd.Flags().GetBool("email")
			return withDirectory(cmd, func(users directory.Provider, realm directory.Realm) error {
				var (
					identity *directory.Identity
					err      error
				)
				if byEmail {
					identity, err = users.LookupByEmail(cmd.Context(), realm, args[0])
				} else {
					identity, err = users.LookupByID(cmd.Context(), realm, args[0])
				}
				if err != nil {
					return err
				}
				if identity == nil {
					return fmt.Errorf("user %q not found", args[0])
				}
				return writeJSON(cmd.OutOrStdout(), newIdentityView(identity))
			})
		},
	}
	getCmd.Flags().Bool("email", false, "Treat the argument as an email address")

	usersCmd.AddCommand(countCmd, listCmd, searchCmd, getCmd)
	return usersCmd
}

func newVerifyPasswordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-password <id|username>",
		Short: "Check a password against the stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := cmd.Flags().GetString("password")
			if err != nil {
				return err
			}
			return withDirectory(cmd, func(users directory.Provider, realm directory.Realm) error {
				identity, err := users.LookupByID(cmd.Context(), realm, args[0])
				if err != nil {
					return err
				}
				valid := false
				if identity != nil {
					valid, err = users.ValidateCredential(cmd.Context(), realm, identity, directory.CredentialInput{
						Kind:   directory.CredentialKindPassword,
						Secret: password,
					})
					if err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(valid))
				return nil
			})
		},
	}
	cmd.Flags().String("realm", defaultCLIRealm, "Realm name recorded in logs")
	cmd.Flags().String("password", "", "Password to verify")
	return cmd
}

func newIssueTokenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issue-token <subject>",
		Short: "Issue a host service token for the HTTP bridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			if err := appConfig.RequireHostSecret(); err != nil {
				return err
			}
			issuer, err := newTokenIssuer(appConfig)
			if err != nil {
				return err
			}
			token, expiresIn, err := issuer.IssueHostToken(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"access_token": token,
				"expires_in":   expiresIn,
				"token_type":   "Bearer",
			})
		},
	}
	return cmd
}

type identityView struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	Attributes map[string][]string `json:"attributes"`
}

func newIdentityView(identity *directory.Identity) identityView {
	return identityView{
		ID:         identity.ID(),
		Username:   identity.Username(),
		Attributes: identity.Attributes(),
	}
}

func identityViews(identities []*directory.Identity) []identityView {
	views := make([]identityView, 0, len(identities))
	for _, identity := range identities {
		views = append(views, newIdentityView(identity))
	}
	return views
}

func writeJSON(out io.Writer, value any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
