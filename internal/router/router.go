package router

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/abhijit-arora/cockatiel-companion/internal/events"
	"github.com/abhijit-arora/cockatiel-companion/internal/handlers"
	"github.com/abhijit-arora/cockatiel-companion/internal/middleware"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
	"github.com/abhijit-arora/cockatiel-companion/internal/validation"
	"github.com/abhijit-arora/cockatiel-companion/pkg/config"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/push"
)

// Dependencies are the collaborators the routes are built from.
type Dependencies struct {
	Config   *config.Config
	Store    docstore.Store
	Media    mediastore.Store
	Push     push.Sender
	Verifier middleware.TokenVerifier
	Log      logrus.FieldLogger
}

// NewEcho creates the Echo instance with validation, callable error rendering, global
// middleware and all routes.
func NewEcho(deps Dependencies) (*echo.Echo, *events.ImageLabels) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = handlers.ErrorHandler(deps.Log)

	config.SetupMiddleware(e, deps.Config, deps.Log)
	imageLabels := SetupRoutes(e, deps)
	return e, imageLabels
}

// SetupRoutes configures all application routes and injects dependencies. It returns the image
// label dispatcher so the caller can also attach it to a store watcher.
func SetupRoutes(e *echo.Echo, deps Dependencies) *events.ImageLabels {
	log := deps.Log

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	userRepo := repositories.NewUserRepository(deps.Store)
	postRepo := repositories.NewPostRepository(deps.Store)
	notificationRepo := repositories.NewNotificationRepository(deps.Store)

	// --- Initialize Services ---
	invitationService := services.NewInvitationService(deps.Store, log.WithField("service", "invitations"))
	aviaryService := services.NewAviaryService(deps.Store, log.WithField("service", "aviaries"))
	communityService := services.NewCommunityService(deps.Store, log.WithField("service", "community"))
	feedService := services.NewFeedService(deps.Store, deps.Media, postRepo, userRepo, log.WithField("service", "feed"))
	chirpService := services.NewChirpService(deps.Store, deps.Media, postRepo, userRepo, log.WithField("service", "chirps"))
	reportService := services.NewReportService(deps.Store, log.WithField("service", "reports"))
	notificationService := services.NewNotificationService(deps.Store, log.WithField("service", "notifications"))
	moderationService := services.NewModerationService(
		deps.Store, deps.Media, postRepo, notificationRepo, userRepo, deps.Push,
		log.WithField("service", "moderation"),
	)
	imageLabels := events.NewImageLabels(moderationService, log.WithField("worker", "imageLabels"))

	// --- Callable routes (require a Firebase ID token) ---
	api := e.Group("")
	api.Use(middleware.FirebaseAuthMiddleware(deps.Verifier))
	api.Use(config.RateLimiter(deps.Config))

	handlers.NewInvitationHandler(invitationService).RegisterInvitationRoutes(api)
	handlers.NewAviaryHandler(aviaryService).RegisterAviaryRoutes(api)
	handlers.NewCommunityHandler(communityService).RegisterCommunityRoutes(api)
	handlers.NewFeedHandler(feedService).RegisterFeedRoutes(api)
	handlers.NewChirpHandler(chirpService).RegisterChirpRoutes(api)
	handlers.NewReportHandler(reportService).RegisterReportRoutes(api)
	handlers.NewNotificationHandler(notificationService).RegisterNotificationRoutes(api)
	log.Debug("Callable routes configured.")

	// --- Pushed events ---
	if deps.Config.EventPushToken != "" {
		eventGroup := e.Group("/events")
		eventGroup.Use(middleware.EventTokenMiddleware(deps.Config.EventPushToken))
		handlers.NewEventHandler(deps.Store, imageLabels).RegisterEventRoutes(eventGroup)
		log.Debug("Event routes configured.")
	}

	log.Info("All routes configured.")
	return imageLabels
}
