package config

import (
	"TryOnGolang/database/postgres"
	authHandler "TryOnGolang/internal/api/auth/handler"
	authService "TryOnGolang/internal/api/auth/service"
	catalogHandler "TryOnGolang/internal/api/catalog/handler"
	catalogRepository "TryOnGolang/internal/api/catalog/repository"
	catalogService "TryOnGolang/internal/api/catalog/service"
	tryonHandler "TryOnGolang/internal/api/tryon/handler"
	tryonService "TryOnGolang/internal/api/tryon/service"
	"TryOnGolang/internal/entity"
	"TryOnGolang/internal/middleware"
	"TryOnGolang/internal/tryon/asset"
	"TryOnGolang/internal/tryon/session"
	"TryOnGolang/pkg/bcrypt"
	"TryOnGolang/pkg/detector"
	"TryOnGolang/pkg/redis"
	"TryOnGolang/pkg/s3"
	"TryOnGolang/pkg/utils"
	"context"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"os"
	"strconv"
	"time"
)

const shutdownTimeout = 10 * time.Second

type ServerOption func(*Server) error

type Server struct {
	engine       *fiber.App
	db           *sqlx.DB
	log          *logrus.Logger
	middleware   middleware.Middleware
	validator    *validator.Validate
	utils        utils.IUtils
	bcryptUtils  bcrypt.IBcrypt
	handlers     []handler
	redisServer  redis.IRedis
	s3Client     s3.ItfS3
	admin        entity.Admin
	detectorCfg  detector.Config
	tryonCfg     tryonService.Config
	assetLoader  asset.Loader
	tryonService tryonService.ITryOnService
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		detectorCfg: detector.DefaultConfig(),
		tryonCfg:    tryonService.DefaultConfig(),
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.assetLoader == nil {
		return nil, fmt.Errorf("asset loader is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithBcryptUtils() ServerOption {
	return func(s *Server) error {
		s.bcryptUtils = bcrypt.New()
		return nil
	}
}

// WithAdmin reads the admin credentials. An empty hash leaves login
// disabled rather than failing startup.
func WithAdmin() ServerOption {
	return func(s *Server) error {
		s.admin = entity.Admin{
			Username:     os.Getenv("ADMIN_USERNAME"),
			PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		}
		if s.admin.PasswordHash == "" && s.log != nil {
			s.log.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled")
		}
		return nil
	}
}

func WithDetectorConfig(cfg detector.Config) ServerOption {
	return func(s *Server) error {
		s.detectorCfg = cfg
		return nil
	}
}

func WithTryOnConfig() ServerOption {
	return func(s *Server) error {
		cfg := tryonService.DefaultConfig()

		if path := os.Getenv("DEFAULT_GLASSES_PATH"); path != "" {
			cfg.DefaultAssetPath = path
		}
		if v, err := strconv.ParseUint(os.Getenv("STILL_MAX_WIDTH"), 10, 32); err == nil && v > 0 {
			cfg.StillMaxWidth = uint(v)
		}
		if v, err := strconv.ParseUint(os.Getenv("STILL_MAX_HEIGHT"), 10, 32); err == nil && v > 0 {
			cfg.StillMaxHeight = uint(v)
		}
		if v, err := strconv.Atoi(os.Getenv("TRYON_MAX_CONNECTIONS")); err == nil && v > 0 {
			cfg.MaxConnections = v
		}
		if v, err := time.ParseDuration(os.Getenv("ASSET_LOAD_TIMEOUT")); err == nil && v > 0 {
			cfg.LoadTimeout = v
		}

		s.tryonCfg = cfg
		return nil
	}
}

// WithAssetLoader picks the model source with NewAssetLoader. Apply after
// WithS3Client and WithRedisServer.
func WithAssetLoader() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before asset loader")
		}

		loader, err := NewAssetLoader(s.log, s.s3Client, s.redisServer)
		if err != nil {
			return err
		}
		s.assetLoader = loader
		return nil
	}
}

// NewAssetLoader builds the loader selected by ASSET_SOURCE (file or s3)
// and, when cache is non-nil, caches model metadata in it for
// ASSET_CACHE_TTL.
func NewAssetLoader(log *logrus.Logger, store s3.ItfS3, cache redis.IRedis) (asset.Loader, error) {
	var loader asset.Loader
	switch source := os.Getenv("ASSET_SOURCE"); source {
	case "", "file":
		root := os.Getenv("ASSET_ROOT")
		if root == "" {
			root = "./public"
		}
		loader = asset.NewFileLoader(root, os.Getenv("ASSET_PUBLIC_PATH"), log)
	case "s3":
		if store == nil {
			return nil, fmt.Errorf("ASSET_SOURCE=s3 requires the S3 client")
		}
		loader = asset.NewS3Loader(store, log)
	default:
		return nil, fmt.Errorf("unknown ASSET_SOURCE %q", source)
	}

	if cache != nil {
		ttl := 10 * time.Minute
		if v, err := time.ParseDuration(os.Getenv("ASSET_CACHE_TTL")); err == nil && v > 0 {
			ttl = v
		}
		loader = asset.NewCachedLoader(loader, cache, ttl, log)
	}

	return loader, nil
}

func (s *Server) RegisterHandler() {
	// Auth Domain
	authServices := authService.New(s.log, s.admin, s.redisServer, s.bcryptUtils)
	authHandlers := authHandler.New(s.log, authServices, s.validator, s.middleware)

	// Catalog
	catalogRepo := catalogRepository.New(s.db, s.log)
	catalogServices := catalogService.NewCatalogService(s.log, catalogRepo, s.utils)
	catalogHandlers := catalogHandler.New(s.log, s.validator, s.middleware, catalogServices)

	// Try-on
	detectorCfg := s.detectorCfg
	newDetector := func() session.Detector {
		return detector.New(detectorCfg, s.log)
	}
	s.tryonService = tryonService.NewTryOnService(s.log, s.assetLoader, catalogServices, newDetector, s.utils, s.tryonCfg)
	tryonHandlers := tryonHandler.New(s.log, s.validator, s.middleware, s.tryonService)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, authHandlers, catalogHandlers, tryonHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown closes live try-on sessions before the listener and the
// database so that clients see a clean close.
func (s *Server) Shutdown() error {
	if s.tryonService != nil {
		s.tryonService.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := s.engine.ShutdownWithContext(ctx)

	if s.db != nil {
		if dbErr := s.db.Close(); dbErr != nil && err == nil {
			err = dbErr
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message":     "Server is Healthy!",
			"connections": s.tryonService.GetConnections().Total,
		})
	})
}
