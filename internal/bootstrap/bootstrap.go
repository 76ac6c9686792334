package bootstrap

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appControllers "github.com/yigit/electivepro/internal/app/controllers"
	appMigrations "github.com/yigit/electivepro/internal/app/migrations"
	"github.com/yigit/electivepro/internal/app/models"
	appRepos "github.com/yigit/electivepro/internal/app/repositories"
	appRoutes "github.com/yigit/electivepro/internal/app/routes"
	appServices "github.com/yigit/electivepro/internal/app/services"
	"github.com/yigit/electivepro/internal/config"
	"github.com/yigit/electivepro/internal/db"
	appMiddleware "github.com/yigit/electivepro/internal/middleware"
	pkgAuth "github.com/yigit/electivepro/internal/pkg/auth"
	"github.com/yigit/electivepro/internal/pkg/email"
	"github.com/yigit/electivepro/internal/pkg/filestorage"
	"github.com/yigit/electivepro/internal/pkg/helpers"
	"github.com/yigit/electivepro/internal/pkg/logger"
	"github.com/yigit/electivepro/internal/pkg/metrics"
	"github.com/yigit/electivepro/internal/pkg/ratelimit"
	"github.com/yigit/electivepro/internal/pkg/tenantcache"
	"github.com/yigit/electivepro/internal/seed"
)

const (
	uploadsRoute          = "/uploads"
	cacheEvictionInterval = time.Minute
	limiterSweepInterval  = 5 * time.Minute
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Repos        *appRepos.Repositories
	JWTService   *pkgAuth.JWTService
	TenantCache  *tenantcache.Cache
	FileStorage  *filestorage.LocalStorage
	LoginLimiter *ratelimit.KeyedLimiter
	Registry     *prometheus.Registry
	HTTPMetrics  *metrics.HTTPMetrics
	Controllers  appRoutes.Controllers
	Middlewares  appRoutes.Middlewares
	Logger       zerolog.Logger

	redis    *goredis.Client
	stoppers []func()
}

// Close stops background work and releases external clients
func (d *Dependencies) Close() {
	for _, stop := range d.stoppers {
		stop()
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close redis client")
		}
	}
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := config.GetEnv("CONFIG_PATH", filepath.Join("configs", "config.yaml"))
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	lgr := logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: strings.ToLower(cfg.Logging.Format) == "text",
	})

	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection, runs migrations and seeds default data.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	lgr.Info().Msg("Running database migrations...")
	if err := appMigrations.NewMigrator(dbPool).Run(ctx); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		dbPool.Close()
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}
	lgr.Info().Msg("Database migrations successfully applied.")

	if cfg.Seed.Enabled {
		seeder := seed.NewSeeder(
			appRepos.NewPlanRepository(dbPool),
			appRepos.NewInstitutionRepository(dbPool),
			appRepos.NewUserRepository(dbPool),
			lgr,
		)
		err := seeder.CreateDefaultData(ctx, seed.Options{
			SuperAdminEmail:    cfg.Seed.SuperAdminEmail,
			SuperAdminPassword: cfg.Seed.SuperAdminPassword,
			DemoSubdomain:      cfg.Seed.DemoSubdomain,
			DemoAdminEmail:     cfg.Seed.DemoAdminEmail,
			DemoAdminPassword:  cfg.Seed.DemoAdminPassword,
		})
		if err != nil {
			lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
		}
	}

	return dbPool, nil
}

// setupRedis connects the optional second cache layer. A failed connection
// leaves the tenant cache memory-only.
func setupRedis(cfg *config.Config, lgr zerolog.Logger) *goredis.Client {
	if !cfg.Redis.Enabled {
		lgr.Info().Msg("Redis disabled, tenant cache runs in memory only")
		return nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lgr.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, tenant cache runs in memory only")
		_ = client.Close()
		return nil
	}

	lgr.Info().Str("addr", cfg.Redis.Addr).Msg("Redis connected")
	return client
}

// BuildDependencies initializes application repositories, services, and controllers.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}
	clock := clockwork.NewRealClock()

	deps.Registry = prometheus.NewRegistry()
	deps.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deps.HTTPMetrics = metrics.NewHTTPMetrics(deps.Registry)

	deps.Repos = appRepos.NewRepositories(dbPool)

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Server.StoragePath, strings.TrimRight(cfg.Server.PublicURL, "/")+uploadsRoute)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.redis = setupRedis(cfg, lgr)
	cacheOpts := tenantcache.Options{
		MemTTL:   helpers.ParseDuration(cfg.Tenancy.CacheTTL, 5*time.Minute),
		RedisTTL: helpers.ParseDuration(cfg.Redis.CacheTTL, time.Hour),
		Clock:    clock,
		Metrics:  metrics.NewCacheMetrics(deps.Registry),
	}
	if deps.redis != nil {
		cacheOpts.Redis = deps.redis
	}
	deps.TenantCache = tenantcache.New(deps.Repos.InstitutionRepository, cacheOpts)
	deps.stoppers = append(deps.stoppers, deps.TenantCache.StartEvictionTimer(cacheEvictionInterval))

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenExp:  helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, time.Hour),
		RefreshTokenExp: helpers.ParseDuration(cfg.JWT.RefreshTokenExpiration, 720*time.Hour),
		TokenIssuer:     cfg.JWT.Issuer,
	})

	deps.LoginLimiter = ratelimit.NewPerMinute(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst, clock)
	deps.stoppers = append(deps.stoppers, sweepLimiter(deps.LoginLimiter, clock))

	notifier := email.NewNotifier(email.NewSender(email.Config{
		SendGridAPIKey: cfg.Email.SendGridAPIKey,
		FromEmail:      cfg.Email.FromEmail,
		FromName:       cfg.Email.FromName,
	}, lgr), lgr)

	repos := deps.Repos
	institutionService := appServices.NewInstitutionService(
		repos.InstitutionRepository,
		repos.PlanRepository,
		deps.TenantCache,
		deps.FileStorage,
		notifier,
		appServices.InstitutionConfig{RootDomain: cfg.Tenancy.RootDomain, Scheme: cfg.Tenancy.Scheme},
		lgr,
	)
	loginURL := func(inst *models.Institution) string {
		return institutionService.URL(inst) + "/login"
	}

	offeringDeps := appServices.OfferingDeps{
		Offerings:    repos.OfferingRepository,
		Selections:   repos.SelectionRepository,
		Courses:      repos.CourseRepository,
		Universities: repos.UniversityRepository,
		Institutions: repos.InstitutionRepository,
		Plans:        repos.PlanRepository,
	}

	authService := appServices.NewAuthService(repos.UserRepository, repos.TokenRepository, deps.JWTService, clock, lgr)
	planService := appServices.NewPlanService(repos.PlanRepository, lgr)
	userService := appServices.NewUserService(repos.UserRepository, repos.InstitutionRepository, repos.PlanRepository, notifier, loginURL, lgr)
	courseService := appServices.NewCourseService(repos.CourseRepository, lgr)
	universityService := appServices.NewUniversityService(repos.UniversityRepository, lgr)
	dashboardService := appServices.NewDashboardService(repos.UserRepository, repos.OfferingRepository, repos.SelectionRepository)

	packs := appServices.NewOfferingService(models.KindElective, offeringDeps, clock, lgr)
	packSelections := appServices.NewSelectionService(models.KindElective, offeringDeps, notifier, clock, lgr)
	programs := appServices.NewOfferingService(models.KindExchange, offeringDeps, clock, lgr)
	programSelections := appServices.NewSelectionService(models.KindExchange, offeringDeps, notifier, clock, lgr)

	devHeader := cfg.Tenancy.DevHeader
	if cfg.IsProduction() {
		devHeader = ""
	}
	deps.Middlewares = appRoutes.Middlewares{
		Auth:       appMiddleware.NewAuthMiddleware(deps.JWTService),
		Tenant:     appMiddleware.NewTenantMiddleware(deps.TenantCache, appMiddleware.TenantConfig{RootDomain: cfg.Tenancy.RootDomain, DevHeader: devHeader}, lgr),
		LoginLimit: appMiddleware.RateLimit(deps.LoginLimiter),
	}

	deps.Controllers = appRoutes.Controllers{
		Auth:        appControllers.NewAuthController(authService, lgr),
		Plan:        appControllers.NewPlanController(planService, lgr),
		Institution: appControllers.NewInstitutionController(institutionService, lgr),
		User:        appControllers.NewUserController(userService, lgr),
		Course:      appControllers.NewCourseController(courseService, lgr),
		University:  appControllers.NewUniversityController(universityService, lgr),
		Pack:        appControllers.NewOfferingController(packs, packSelections, lgr),
		Program:     appControllers.NewOfferingController(programs, programSelections, lgr),
		Dashboard:   appControllers.NewDashboardController(dashboardService),
		Health:      appControllers.NewHealthController(dbPool),
	}

	return deps, nil
}

// sweepLimiter periodically forgets idle rate-limit keys
func sweepLimiter(limiter *ratelimit.KeyedLimiter, clock clockwork.Clock) func() {
	ticker := clock.NewTicker(limiterSweepInterval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.Chan():
				limiter.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	if err := appMiddleware.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		appMiddleware.RequestLogger(lgr),
		deps.HTTPMetrics.Middleware(),
		appMiddleware.CORS(cfg.Tenancy.RootDomain, !cfg.IsProduction(), cfg.Tenancy.DevHeader),
		deps.Middlewares.Tenant.ResolveTenant(),
	)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	router.Static(uploadsRoute, deps.FileStorage.BasePath())

	appRoutes.SetupRouter(router, deps.Controllers, deps.Middlewares)

	return router, nil
}
