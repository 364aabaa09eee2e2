// Package app assembles the console's services and HTTP router from
// already-opened infrastructure.
package app

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-console/internal/config"
	consultationHandler "github.com/jwalitptl/clinic-console/internal/handler/consultation"
	"github.com/jwalitptl/clinic-console/internal/handler/health"
	"github.com/jwalitptl/clinic-console/internal/handler/wizard"
	"github.com/jwalitptl/clinic-console/internal/middleware"
	"github.com/jwalitptl/clinic-console/internal/repository"
	"github.com/jwalitptl/clinic-console/internal/repository/postgres"
	"github.com/jwalitptl/clinic-console/internal/router"
	"github.com/jwalitptl/clinic-console/internal/service/commit"
	consultationService "github.com/jwalitptl/clinic-console/internal/service/consultation"
	"github.com/jwalitptl/clinic-console/internal/service/draft"
	"github.com/jwalitptl/clinic-console/internal/service/event"
	"github.com/jwalitptl/clinic-console/internal/service/identity"
	"github.com/jwalitptl/clinic-console/internal/service/media"
	"github.com/jwalitptl/clinic-console/internal/service/staff"
	"github.com/jwalitptl/clinic-console/internal/service/taxonomy"
	"github.com/jwalitptl/clinic-console/internal/storage"
	"github.com/jwalitptl/clinic-console/pkg/auth"
	"github.com/jwalitptl/clinic-console/pkg/logger"
	"github.com/jwalitptl/clinic-console/pkg/messaging"
	"github.com/jwalitptl/clinic-console/pkg/metrics"
	"github.com/jwalitptl/clinic-console/pkg/validator"
)

type Repositories struct {
	Operators     repository.OperatorRepository
	Clinics       repository.ClinicRepository
	Doctors       repository.DoctorRepository
	Hours         repository.BusinessHourRepository
	Treatments    repository.TreatmentRepository
	Feedback      repository.FeedbackRepository
	Consultations repository.ConsultationRepository
}

func PostgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Operators:     postgres.NewOperatorRepository(db),
		Clinics:       postgres.NewClinicRepository(db),
		Doctors:       postgres.NewDoctorRepository(db),
		Hours:         postgres.NewBusinessHourRepository(db),
		Treatments:    postgres.NewTreatmentRepository(db),
		Feedback:      postgres.NewFeedbackRepository(db),
		Consultations: postgres.NewConsultationRepository(db),
	}
}

// Infra is everything the console needs from the outside world.
type Infra struct {
	Repos  Repositories
	Store  storage.ObjectStore
	Drafts draft.Store
	Broker messaging.Publisher
	// Registry collects engine and HTTP metrics and serves them.
	Registry *prometheus.Registry
	Checks   map[string]health.Check
	Logger   *logger.Logger
}

// App is the wired console.
type App struct {
	Router      *router.Router
	Coordinator *commit.Coordinator
	Metrics     *metrics.Metrics
}

func New(cfg *config.Config, infra Infra) (*App, error) {
	location, err := time.LoadLocation(cfg.Server.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}

	log := infra.Logger
	m := metrics.NewMetrics("clinic", infra.Registry)
	repos := infra.Repos

	manager := media.NewManager(infra.Store, media.Limits{
		MaxFileBytes:   cfg.Upload.MaxFileBytes,
		AllowedTypes:   cfg.Upload.AllowedTypes,
		GalleryMin:     cfg.Upload.GalleryMin,
		GallerySoftMax: cfg.Upload.GallerySoftMax,
	}, log, m)

	identitySvc := identity.NewService(repos.Operators, log)

	coord := commit.NewCoordinator(commit.Deps{
		Drafts:           infra.Drafts,
		Loader:           draft.NewLoader(repos.Clinics, repos.Doctors, repos.Hours, repos.Treatments),
		Identity:         identitySvc,
		Clinics:          repos.Clinics,
		Hours:            repos.Hours,
		Treatments:       repos.Treatments,
		Feedback:         repos.Feedback,
		Media:            manager,
		Staff:            staff.NewReconciler(repos.Doctors, manager, log),
		Taxonomy:         taxonomy.NewResolver(repos.Treatments, log, m),
		Events:           event.NewEventService(infra.Broker, log),
		Validator:        validator.New(),
		Logger:           log,
		Metrics:          m,
		MaxCompensations: cfg.Commit.MaxCompensations,
	})

	consultations := consultationService.NewService(repos.Consultations, location)

	var limit rate.Limit
	if cfg.RateLimit.Enabled {
		limit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
	}

	var registerer prometheus.Registerer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if infra.Registry != nil {
		registerer, gatherer = infra.Registry, infra.Registry
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.AllowedOrigins

	r := router.NewRouter(
		middleware.NewAuthMiddleware(auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer)),
		health.NewHandler(gatherer, infra.Checks),
		wizard.NewHandler(coord, identitySvc),
		consultationHandler.NewHandler(consultations, identitySvc),
		router.RouterConfig{
			Mode:           cfg.Server.Mode,
			RateLimit:      limit,
			RateBurst:      cfg.RateLimit.Burst,
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			CORSConfig:     cors,
			MetricsPrefix:  "clinic_http",
			Registerer:     registerer,
		},
	)
	r.Setup()

	return &App{Router: r, Coordinator: coord, Metrics: m}, nil
}
