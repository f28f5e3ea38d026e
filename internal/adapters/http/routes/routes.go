package routes

import (
	"time"

	"ibc-intranet/internal/adapters/http/handlers"
	"ibc-intranet/internal/adapters/http/middleware"
	"ibc-intranet/internal/adapters/session"
	"ibc-intranet/internal/config"
	"ibc-intranet/internal/core/domain"
	"ibc-intranet/internal/core/services"
	"ibc-intranet/internal/pkg/metrics"
	"ibc-intranet/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup configures all routes for the application
func Setup(
	app *fiber.App,
	db *gorm.DB,
	store session.Store,
	svc *services.Container,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) {
	v := validation.New()
	httpLogger := logger.Named("http")

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cfg.AppMode)
	authHandler := handlers.NewAuthHandler(svc.Auth, svc.CSRF, v, httpLogger)
	userHandler := handlers.NewUserHandler(svc.Users, v, httpLogger)
	inventoryHandler := handlers.NewInventoryHandler(svc.Inventory, v, httpLogger)
	invitationHandler := handlers.NewInvitationHandler(svc.Invitations, v, httpLogger)
	eventHandler := handlers.NewEventHandler(svc.Events, v, httpLogger)
	projectHandler := handlers.NewProjectHandler(svc.Projects, v, httpLogger)
	dashboardHandler := handlers.NewDashboardHandler(svc.Dashboard, httpLogger)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	if m != nil {
		app.Get("/metrics", adaptor.HTTPHandler(m.Handler()))
	}

	// Swagger documentation
	app.Get("/swagger/*", middleware.PublicCacheHeaders(time.Hour), swagger.HandlerDefault)

	// API v1 group: every request carries the session, every write the CSRF token
	apiV1 := app.Group("/api/v1",
		middleware.NoCacheHeaders(),
		middleware.Session(store, cfg.Session, httpLogger),
		middleware.CSRF(svc.CSRF),
	)
	apiV1.Get("/", healthHandler.APIInfo)

	requireAuth := middleware.RequireAuth(svc.Auth)

	setupAuthRoutes(apiV1.Group("/auth"), authHandler, requireAuth)
	setupInvitationRoutes(apiV1.Group("/invitations"), invitationHandler, requireAuth)

	setupUserRoutes(apiV1.Group("/users", requireAuth, middleware.RequireRole(domain.RoleAdmin)), userHandler)
	setupProfileRoutes(apiV1.Group("/profile", requireAuth), userHandler)
	setupInventoryRoutes(apiV1.Group("/inventory", requireAuth, middleware.RequirePermission(domain.PermViewInventory)), inventoryHandler)
	setupEventRoutes(apiV1.Group("/events", requireAuth), eventHandler)
	setupProjectRoutes(apiV1.Group("/projects", requireAuth), projectHandler)
	apiV1.Get("/dashboard", requireAuth, middleware.RequirePermission(domain.PermViewDashboard), dashboardHandler.GetDashboard)
}

// setupAuthRoutes configures authentication routes
func setupAuthRoutes(router fiber.Router, handler *handlers.AuthHandler, requireAuth fiber.Handler) {
	router.Get("/csrf", handler.CSRFToken)
	router.Post("/login", middleware.AuthRateLimiter(), handler.Login)
	router.Post("/logout", handler.Logout)

	router.Get("/me", requireAuth, handler.Me)
}

// setupInvitationRoutes configures invitation routes. Registration is public.
func setupInvitationRoutes(router fiber.Router, handler *handlers.InvitationHandler, requireAuth fiber.Handler) {
	router.Post("/register", middleware.StrictRateLimiter(), handler.Register)

	invite := middleware.RequirePermission(domain.PermInviteMembers)
	router.Get("/", requireAuth, invite, handler.List)
	router.Post("/", requireAuth, invite, handler.Issue)
}

// setupUserRoutes configures user management routes (Admin only)
func setupUserRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.ListUsers)
	router.Get("/:id", handler.GetUser)
	router.Put("/:id", handler.UpdateUser)
	router.Delete("/:id", handler.DeleteUser)
}

// setupProfileRoutes configures profile routes (Authenticated)
func setupProfileRoutes(router fiber.Router, handler *handlers.UserHandler) {
	router.Get("/", handler.GetProfile)
	router.Put("/", handler.UpdateProfile)
	router.Put("/password", handler.ChangePassword)
}

// setupInventoryRoutes configures inventory routes. Members browse and borrow, managers maintain.
func setupInventoryRoutes(router fiber.Router, handler *handlers.InventoryHandler) {
	router.Get("/items", handler.ListItems)
	router.Get("/items/:id", handler.GetItem)
	router.Get("/checkouts/mine", handler.MyCheckouts)
	router.Post("/checkouts", handler.Checkout)
	router.Post("/checkouts/:id/checkin", handler.Checkin)

	manage := middleware.RequirePermission(domain.PermManageInventory)
	router.Post("/items", manage, handler.CreateItem)
	router.Put("/items/:id", manage, handler.UpdateItem)
	router.Delete("/items/:id", manage, handler.DeleteItem)
	router.Get("/items/:id/history", manage, handler.History)
	router.Post("/items/:id/adjust", manage, handler.AdjustStock)
	router.Post("/items/:id/write-off", manage, handler.WriteOff)
	router.Get("/low-stock", manage, handler.LowStock)
	router.Get("/checkouts", manage, handler.ActiveCheckouts)
}

// setupEventRoutes configures event routes
func setupEventRoutes(router fiber.Router, handler *handlers.EventHandler) {
	router.Get("/", handler.ListUpcoming)
	router.Get("/:id", handler.GetEvent)
	router.Post("/slots/:slotId/signup", handler.Signup)
	router.Delete("/slots/:slotId/signup", handler.CancelSignup)

	router.Post("/", middleware.RequirePermission(domain.PermManageEvents), handler.CreateEvent)
}

// setupProjectRoutes configures project routes
func setupProjectRoutes(router fiber.Router, handler *handlers.ProjectHandler) {
	manage := middleware.RequirePermission(domain.PermManageProjects)

	router.Get("/", handler.ListProjects)
	router.Get("/:id", handler.GetProject)
	router.Post("/:id/applications", handler.Apply)

	router.Post("/", manage, handler.CreateProject)
	router.Post("/:id/close", manage, handler.CloseProject)
	router.Get("/:id/applications", manage, handler.ListApplications)
	router.Post("/applications/:id/review", manage, handler.Review)
}
