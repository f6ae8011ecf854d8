package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinic-booking/internal/appointment"
	"clinic-booking/internal/auditlog"
	"clinic-booking/internal/auth"
	"clinic-booking/internal/configs"
	"clinic-booking/internal/database"
	"clinic-booking/internal/logging"
	"clinic-booking/internal/metrics"
	"clinic-booking/internal/schedule"
	"clinic-booking/internal/sweeper"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var configPath string

// dependencies holds the resources shared by the commands. release frees all of them.
type dependencies struct {
	config  configs.Config
	logger  *zerolog.Logger
	dbConn  database.Connection
	store   auditlog.Store
	locker  sweeper.Locker
	release []func(ctx context.Context)
}

func (d *dependencies) close(ctx context.Context) {
	for i := len(d.release) - 1; i >= 0; i-- {
		d.release[i](ctx)
	}
}

// loadDependencies loads the configurations and opens the database, the audit log store and the
// sweeper lock.
func loadDependencies(ctx context.Context) (*dependencies, error) {
	if configPath == "" {
		return nil, errors.New("no config file path was given")
	}
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()
	config, err := configs.Load(configPath)
	if err != nil {
		return nil, err
	}
	deps := &dependencies{
		config: config,
		logger: logging.New(os.Stdout, config.LogLevel()),
	}

	deps.dbConn, err = database.NewConnection(config, deps.logger)
	if err != nil {
		return nil, err
	}
	deps.release = append(deps.release, func(context.Context) { deps.dbConn.Close() })

	if deps.store, err = openAuditLogStore(ctx, deps); err != nil {
		deps.close(ctx)
		return nil, err
	}

	if config.RedisAddr() != "" {
		client := redis.NewClient(&redis.Options{Addr: config.RedisAddr(), Password: config.RedisPassword()})
		deps.release = append(deps.release, func(context.Context) { _ = client.Close() })
		if err = client.Ping(ctx).Err(); err != nil {
			deps.logger.Warn().Err(err).Str("addr", config.RedisAddr()).Msg("redis is not reachable, sweeping without the lock")
		} else {
			deps.locker = sweeper.NewRedisLocker(client)
		}
	}
	return deps, nil
}

// openAuditLogStore opens the configured audit log backend.
func openAuditLogStore(ctx context.Context, deps *dependencies) (auditlog.Store, error) {
	if deps.config.AuditLogStore() != configs.AuditLogMongo {
		return auditlog.NewPostgresStore(deps.dbConn), nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(deps.config.MongoURI()))
	if err != nil {
		return nil, fmt.Errorf("could not connect to mongo: %w", err)
	}
	if err = client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo is not reachable: %w", err)
	}
	deps.release = append(deps.release, func(ctx context.Context) { _ = client.Disconnect(ctx) })
	collection := client.Database(deps.config.MongoDatabase()).Collection(auditlog.CollectionName)
	return auditlog.NewMongoStore(collection), nil
}

func newSweeper(deps *dependencies) *sweeper.Sweeper {
	var opts []sweeper.Option
	if deps.locker != nil {
		opts = append(opts, sweeper.WithLocker(deps.locker))
	}
	return sweeper.New(deps.config, deps.dbConn, deps.store, deps.logger, opts...)
}

// newRouter setups the HTTP router with every route of the system.
func newRouter(deps *dependencies) *chi.Mux {
	authorizer := auth.NewService(deps.config, deps.dbConn)

	router := chi.NewRouter()
	router.Use(middleware.Heartbeat("/health"))
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logging.RequestLogger(deps.logger))
	router.Use(middleware.Recoverer)
	router.Use(metrics.PrometheusMiddleware)
	router.Use(middleware.SetHeader("Content-type", "application/json"))

	router.Handle("/metrics", metrics.Handler())

	auth.Setup(router, deps.logger, deps.config, deps.dbConn)
	schedule.Setup(router, deps.logger, authorizer, deps.config, deps.dbConn)
	appointment.Setup(router, deps.logger, authorizer, deps.config, deps.dbConn)
	auditlog.Setup(router, deps.logger, authorizer, deps.store)
	return router
}

func serve(ctx context.Context) error {
	deps, err := loadDependencies(ctx)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", deps.config.ServerPort()),
		Handler:      newRouter(deps),
		ErrorLog:     logging.StdLogger(deps.logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	// stops the sweeper and the HTTP server on SIGINT or SIGTERM
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeperDone := make(chan struct{})
	go func() {
		newSweeper(deps).Start(ctx)
		close(sweeperDone)
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	logging.PrintlnInfo(deps.logger, fmt.Sprint("server started listing at ", deps.config.ServerPort()))

	select {
	case <-ctx.Done():
		logging.PrintlnWarn(deps.logger, "server stopped")
	case err = <-serverErr:
		stop()
		logging.PrintlnError(deps.logger, err)
	}

	// Creates a timeout to handle resources release
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer func() {
		<-sweeperDone
		deps.close(shutdownCtx)
		cancel()
	}()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("an error occurred while server is shutting down: %w", shutdownErr)
	}
	logging.PrintlnInfo(deps.logger, "server shutdown successfully")
	return err
}

func sweepOnce(ctx context.Context) error {
	deps, err := loadDependencies(ctx)
	if err != nil {
		return err
	}
	defer deps.close(context.Background())

	result, err := newSweeper(deps).RunOnce(ctx)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the clinic booking API server and the missed appointments sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Move the missed appointments to No-show once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return sweepOnce(cmd.Context())
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "restapi",
		Short:        "Clinic booking API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(sweepCmd())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
