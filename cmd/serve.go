package cmd

import (
	"context"
	"database/sql"
	"net"

	"github.com/vibast-solutions/ms-go-desk-lookup/app/controller"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/middleware"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/repository"
	"github.com/vibast-solutions/ms-go-desk-lookup/app/service"
	"github.com/vibast-solutions/ms-go-desk-lookup/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the lookup service, build the initial snapshots, and optionally watch the export directory for changes.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	var (
		indexService      *service.IndexService
		userSearchService *service.UserSearchService
		matcher           service.PlanMatcher
	)

	if cfg.Data.Source == config.SourceWarehouse {
		db, err := sql.Open("mysql", cfg.Data.MySQLDSN)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to connect to warehouse")
		}
		defer db.Close()
		if err = db.Ping(); err != nil {
			logrus.WithError(err).Fatal("Failed to ping warehouse")
		}

		repo := repository.NewWarehouseRepository(db)
		indexService = service.NewIndexService(repo)
		userSearchService = service.NewUserSearchService(repo)
		// The warehouse variant pushes the superset filter down instead
		// of matching against the in-memory snapshot.
		matcher = service.NewRemoteMatchService(repo)
	} else {
		store := repository.NewCSVStore(cfg.Data)
		indexService = service.NewIndexService(store)
		userSearchService = service.NewUserSearchService(store)
		matcher = service.NewMatchService(indexService)
	}

	sessionService := service.NewSessionService(cfg)

	loadSnapshots(cfg, indexService, userSearchService)

	if cfg.Data.Watch && cfg.Data.Source == config.SourceCSV {
		watcher, err := service.NewExportWatcher(cfg.Data.Dir, cfg.Data.LoadTimeout,
			func(ctx context.Context) error {
				_, err := indexService.Rebuild(ctx)
				return err
			},
			func(ctx context.Context) error {
				_, err := userSearchService.Rebuild(ctx)
				return err
			},
		)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to watch export directory")
		}
		defer watcher.Close()
	}

	startHTTPServer(cfg, sessionService, indexService, matcher, userSearchService)
}

// loadSnapshots builds both snapshots up front. A failure is not fatal:
// the service starts and answers 503 until a rebuild succeeds.
func loadSnapshots(cfg *config.Config, indexService *service.IndexService, userSearchService *service.UserSearchService) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Data.LoadTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := indexService.Rebuild(ctx)
		return err
	})
	g.Go(func() error {
		_, err := userSearchService.Rebuild(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		logrus.WithError(err).Warn("Initial snapshot build failed, serving without it")
	}
}

func startHTTPServer(
	cfg *config.Config,
	sessionService *service.SessionService,
	indexService *service.IndexService,
	matcher service.PlanMatcher,
	userSearchService *service.UserSearchService,
) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	sessionController := controller.NewSessionController(sessionService)
	lookupController := controller.NewLookupController(indexService, matcher, userSearchService)
	sessionMiddleware := middleware.NewSessionMiddleware(sessionService)

	e.POST("/session", sessionController.Login)

	protected := e.Group("")
	protected.Use(sessionMiddleware.RequireSession)
	protected.GET("/plans/letters", lookupController.Letters)
	protected.GET("/plans", lookupController.PlansByLetter)
	protected.POST("/plans/search", lookupController.SearchPlans)
	protected.GET("/users/search", lookupController.SearchUsers)
	protected.POST("/index/rebuild", lookupController.Rebuild)

	httpAddr := net.JoinHostPort(cfg.HTTP.Host, cfg.HTTP.Port)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}

func configureLogging(cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)

	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	return nil
}
