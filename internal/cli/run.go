package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openendpoint/openendpoint/internal/access"
	"github.com/openendpoint/openendpoint/internal/api"
	"github.com/openendpoint/openendpoint/internal/auth"
	"github.com/openendpoint/openendpoint/internal/config"
	"github.com/openendpoint/openendpoint/internal/engine"
	"github.com/openendpoint/openendpoint/internal/events"
	"github.com/openendpoint/openendpoint/internal/iam"
	"github.com/openendpoint/openendpoint/internal/lifecycle"
	"github.com/openendpoint/openendpoint/internal/metadata/pebble"
	"github.com/openendpoint/openendpoint/internal/mgmt"
	"github.com/openendpoint/openendpoint/internal/middleware"
	"github.com/openendpoint/openendpoint/internal/multipart"
	"github.com/openendpoint/openendpoint/internal/storage/flatfile"
)

var (
	flagHostname string
	flagPort     int
	flagStorage  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the object storage server",
	RunE:  runServer,
}

func init() {
	runCmd.Flags().StringVar(&flagHostname, "hostname", "127.0.0.1", "bind hostname")
	runCmd.Flags().IntVar(&flagPort, "port", 8080, "bind port")
	runCmd.Flags().StringVar(&flagStorage, "storage", "./data", "storage root directory")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cmd.Flags().Changed("hostname") {
		cfg.Server.Host = flagHostname
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = flagPort
	}
	if cmd.Flags().Changed("storage") {
		cfg.Storage.DataDir = flagStorage
	}
	cfg.SetDefaults()
	cfg.Normalize()

	zapLogger, err := buildLogger(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer zapLogger.Sync()
	logger := zapLogger.Sugar()

	dataDir := cfg.GetDataDir()
	objectDir := filepath.Join(dataDir, "objects")
	metadataDir := filepath.Join(dataDir, "metadata")
	multipartDBPath := filepath.Join(dataDir, "multipart.db")
	iamPath := filepath.Join(dataDir, "iam.json")

	backend, err := flatfile.New(objectDir, logger)
	if err != nil {
		return fmt.Errorf("open storage backend: %w", err)
	}
	defer backend.Close()

	store, err := pebble.New(metadataDir)
	if err != nil {
		return fmt.Errorf("open metadata index: %w", err)
	}
	defer store.Close()

	eng := engine.New(backend, store, logger)

	mp, err := multipart.New(multipartDBPath, backend, store, logger)
	if err != nil {
		return fmt.Errorf("open multipart coordinator: %w", err)
	}
	defer mp.Close()
	eng.SetMultipartCoordinator(mp)
	eng.SetEventNotifier(events.NewEventNotifier())

	iamMgr, err := iam.LoadManager(iamPath)
	if err != nil {
		return fmt.Errorf("load iam state: %w", err)
	}
	if len(iamMgr.ListUsers()) == 0 {
		accessKey, secretKey, err := seedAdminCredential(cfg)
		if err != nil {
			return fmt.Errorf("seed admin credential: %w", err)
		}
		if err := iamMgr.SeedAccessKey("admin", accessKey, secretKey); err != nil {
			return fmt.Errorf("seed admin access key: %w", err)
		}
		if err := iamMgr.Save(iamPath); err != nil {
			return fmt.Errorf("save iam state: %w", err)
		}
		logger.Infow("seeded admin credential", "accessKey", accessKey)
	}

	policyEval := iam.NewPolicyEvaluator()
	accessEval := access.New(policyEval, store, cfg.Auth.TestPrincipalBypass, cfg.Auth.AdminBypassUnauthenticated)
	authSvc := auth.New(cfg.Auth)

	apiRouter := api.NewRouter(eng, authSvc, accessEval, logger, cfg)
	mgmtRouter := mgmt.NewRouter(eng, logger, cfg)

	janitorInterval := time.Duration(cfg.Janitor.Interval) * time.Second
	if janitorInterval <= 0 {
		janitorInterval = 5 * time.Minute
	}
	abortAfter := time.Duration(cfg.Janitor.MultipartAbortAfter) * time.Second
	if abortAfter <= 0 {
		abortAfter = 24 * time.Hour
	}
	processor := lifecycle.NewProcessor(eng, mp, logger, janitorInterval, abortAfter)
	processor.Start()
	defer processor.Stop()

	mux := http.NewServeMux()
	mux.Handle("/_mgmt/", mgmtRouter)
	mux.Handle("/", apiRouter)

	handler := middleware.Common(logger)(mux)

	server := &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("server starting", "addr", server.Addr, "storage", dataDir)
		serveErr <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-sigCh:
		logger.Infow("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// seedAdminCredential returns the admin credential to seed on first run:
// the configured auth.access_key/secret_key if both are set, otherwise the
// literal (admin, password) fallback (§6 "Environment").
func seedAdminCredential(cfg *config.Config) (accessKey, secretKey string, err error) {
	if cfg.Auth.AccessKey != "" && cfg.Auth.SecretKey != "" {
		return cfg.Auth.AccessKey, cfg.Auth.SecretKey, nil
	}

	accessKey = "admin"
	secretKey = "password"
	cfg.Auth.AccessKey = accessKey
	cfg.Auth.SecretKey = secretKey
	return accessKey, secretKey, nil
}
