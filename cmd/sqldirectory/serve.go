package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MarcoPoloResearchLab/sqldirectory/internal/auth"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/config"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/logging"
	"github.com/MarcoPoloResearchLab/sqldirectory/internal/server"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the directory to host processes over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
	defaults := config.NewViper()
	cmd.Flags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.Flags().Int("token-ttl-minutes", defaults.GetInt("host.token_ttl_minutes"), "Host token TTL in minutes")
	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "host.token_ttl_minutes", "token-ttl-minutes")
	return cmd
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if err := appConfig.RequireHostSecret(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	binding, _, err := bindProvider(appConfig, logger)
	if err != nil {
		return err
	}

	tokenIssuer, err := newTokenIssuer(appConfig)
	if err != nil {
		return err
	}

	var metricsHandler http.Handler
	if appConfig.MetricsEnabled {
		metricsHandler = promhttp.Handler()
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Directory:      binding,
		Tokens:         tokenIssuer,
		Logger:         logger,
		MetricsHandler: metricsHandler,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              appConfig.HTTPAddress,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.Object("configuration", appConfig.Provider),
		)
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func newTokenIssuer(appConfig config.AppConfig) (*auth.TokenIssuer, error) {
	return auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.HostSigningSecret),
		Issuer:        appConfig.HostIssuer,
		Audience:      appConfig.HostAudience,
		TokenTTL:      appConfig.HostTokenTTL,
	})
}
