// Package main is the storefront server and its operator commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/app"
	"storefront/internal/config"
	"storefront/pkg/signing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "storefront",
		Short:         "Signed-request storefront for digital and physical goods",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	rootCmd.RunE = serveCmd.RunE

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild product and order index entries from primary records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd.Context(), cmd.OutOrStdout(), configPath)
		},
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a secp256k1 keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := signing.GenerateKeys()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), keys)
		},
	}

	var privateKey, message string
	signCmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message with a private key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, err := signing.KeysFromPrivateKey(privateKey)
			if err != nil {
				return err
			}
			signature, err := signing.Sign(keys, message)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"pubKey":    keys.PubKey,
				"message":   message,
				"signature": signature,
			})
		},
	}
	signCmd.Flags().StringVar(&privateKey, "private-key", "", "hex private key")
	signCmd.Flags().StringVar(&message, "message", "", "message to sign")
	_ = signCmd.MarkFlagRequired("private-key")
	_ = signCmd.MarkFlagRequired("message")

	rootCmd.AddCommand(serveCmd, reindexCmd, keygenCmd, signCmd)
	return rootCmd
}

func runServe(configPath string) error {
	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	server, err := app.Build(cfg, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.AppPort), zap.String("env", cfg.AppEnv))
		listenErr <- server.Fiber.Listen(cfg.AppPort)
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")
	if err := server.Fiber.Shutdown(); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server gracefully stopped")
	return nil
}

func runReindex(ctx context.Context, out io.Writer, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(viper.New(), configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, closeStore, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	result, err := app.New(cfg, app.Deps{Store: store}, logger).Reindex.Reindex(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.AppEnv == "development" {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
