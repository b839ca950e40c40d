package router

import (
	"github.com/anonto42/yatube/backend/internal/cache"
	"github.com/anonto42/yatube/backend/internal/handlers"
	"github.com/anonto42/yatube/backend/internal/metrics"
	"github.com/anonto42/yatube/backend/internal/middleware"
	"github.com/anonto42/yatube/backend/internal/repositories"
	"github.com/anonto42/yatube/backend/internal/storage"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Repositories bundles the data access layer handed to the handlers.
type Repositories struct {
	Users    repositories.UserRepository
	Groups   repositories.GroupRepository
	Posts    repositories.PostRepository
	Comments repositories.CommentRepository
	Follows  repositories.FollowRepository
}

// NewPostgresRepositories builds every repository on one gorm connection.
func NewPostgresRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Users:    repositories.NewPostgresUserRepository(db),
		Groups:   repositories.NewPostgresGroupRepository(db),
		Posts:    repositories.NewPostgresPostRepository(db),
		Comments: repositories.NewPostgresCommentRepository(db),
		Follows:  repositories.NewPostgresFollowRepository(db),
	}
}

// Dependencies is everything SetupRoutes wires into handlers.
type Dependencies struct {
	Repos     Repositories
	Images    storage.ImageStore
	PageCache cache.PageCache
	Verifier  handlers.IdentityVerifier // nil disables Firebase login
	Session   handlers.SessionConfig
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	logger := deps.Logger
	if deps.Images == nil {
		deps.Images = storage.DisabledImageStore{}
	}
	if deps.PageCache == nil {
		deps.PageCache = cache.NopPageCache{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}

	e.HTTPErrorHandler = handlers.NewHTTPErrorHandler(logger)
	e.Use(deps.Metrics.Middleware())
	e.Use(middleware.SessionAuthMiddleware(deps.Session.Secret, deps.Repos.Users, logger))
	loginRequired := middleware.LoginRequired()

	e.GET("/health", handlers.HealthCheck)

	site := e.Group("")

	authHandler := handlers.NewAuthHandler(deps.Repos.Users, deps.Verifier, deps.Session, logger)
	authHandler.RegisterAuthRoutes(e.Group("/auth"))
	logger.Debug("Auth routes configured")

	postHandler := handlers.NewPostHandler(
		deps.Repos.Posts,
		deps.Repos.Comments,
		deps.Repos.Groups,
		deps.Repos.Users,
		deps.Repos.Follows,
		deps.Images,
		deps.PageCache,
		deps.Metrics,
		logger,
	)
	postHandler.RegisterPostRoutes(site, loginRequired)
	logger.Debug("Post routes configured")

	commentHandler := handlers.NewCommentHandler(deps.Repos.Comments, deps.Repos.Posts, deps.Metrics, logger)
	commentHandler.RegisterCommentRoutes(site, loginRequired)
	logger.Debug("Comment routes configured")

	followHandler := handlers.NewFollowHandler(deps.Repos.Follows, deps.Repos.Users, deps.Repos.Posts, deps.Metrics, logger)
	followHandler.RegisterFollowRoutes(site, loginRequired)
	logger.Debug("Follow routes configured")

	mediaHandler := handlers.NewMediaHandler(deps.Images)
	mediaHandler.RegisterMediaRoutes(site)
	logger.Debug("Media routes configured")

	logger.Info("All routes configured")
}
