package main

import (
	"TryOnGolang/database/postgres"
	"TryOnGolang/internal/config"
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/internal/tryon/scene"
	"TryOnGolang/internal/tryon/session"
	"TryOnGolang/pkg/detector"
	"TryOnGolang/pkg/log"
	"context"
	"errors"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
)

const Version = "0.1.0"

var (
	envFile string
	logger  *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:          "tryonctl",
	Short:        "Operator tools for the eyewear try-on service",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a missing env file is fine, the variables may come from the shell
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		logger = log.NewLogger()
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file to load before running")
}

func openDB() (*sqlx.DB, error) {
	db, err := postgres.New()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newController builds a session controller that renders to surface and
// reads models from the local asset source. There is no catalog, so models
// are selected by path.
func newController(onEvent func(session.Event), surface scene.Surface) (*session.Controller, error) {
	loader, err := config.NewAssetLoader(logger, nil, nil)
	if err != nil {
		return nil, err
	}

	cfg := detector.ConfigFromEnv()
	newDetector := func() session.Detector {
		return detector.New(cfg, logger)
	}

	opts := []session.Option{session.WithEventHandler(onEvent)}
	if path := os.Getenv("DEFAULT_GLASSES_PATH"); path != "" {
		opts = append(opts, session.WithDefaultAssetPath(path))
	}

	return session.NewController(logger, loader, noCatalog{}, newDetector, surface, opts...), nil
}

type noCatalog struct{}

func (noCatalog) AssetPath(_ context.Context, glassesID string) (string, error) {
	return "", fmt.Errorf("%w: catalog lookups need the server, select %q by path", asset.ErrNotFound, glassesID)
}
