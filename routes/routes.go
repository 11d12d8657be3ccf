package routes

import (
	"leadflow/config"
	controller "leadflow/controllers"
	"leadflow/middleware"
	"leadflow/store"
	"leadflow/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
)

// Dependencies are the shared services handed to the controllers
type Dependencies struct {
	Store  *store.Store
	Hub    *utils.ActivityHub
	Mailer utils.Mailer
	Config config.Config
	// AccessLog enables fiber's request logger
	AccessLog bool
}

const accessLogFormat = "[${time}] ${status} - ${latency} ${method} ${path}\n"

func SetupLeadRoutes(router fiber.Router, deps Dependencies) {
	leadController := controller.NewLeadController(deps.Store, utils.Component("leads"))

	lead := router.Group("/leads")
	lead.Post("/", leadController.CreateLead)
	lead.Get("/", leadController.GetLeads)
	lead.Get("/:id", leadController.GetLead)
	lead.Put("/:id", leadController.UpdateLead)
	lead.Delete("/:id", leadController.DeleteLead)
	lead.Post("/:id/claim", leadController.ClaimLead)
}

func SetupSequenceRoutes(router fiber.Router, deps Dependencies) {
	sequenceController := controller.NewSequenceController(deps.Store, deps.Mailer, utils.Component("sequences"))

	sequence := router.Group("/sequences")
	sequence.Post("/", sequenceController.CreateSequence)
	sequence.Get("/", sequenceController.GetSequences)
	sequence.Get("/:id", sequenceController.GetSequence)
	sequence.Delete("/:id", sequenceController.DeleteSequence)
	sequence.Post("/:id/add-leads", sequenceController.AddLeads)
	sequence.Post("/:id/pause", sequenceController.PauseSequence)
	sequence.Post("/:id/resume", sequenceController.ResumeSequence)

	// Outbound webhook called by the frontend, rate limited per client IP
	limiterStorage := middleware.RateLimitStorage(deps.Config.Redis)
	router.Post("/sequence",
		middleware.WebhookRateLimiter(deps.Config.WebhookRateLimit, limiterStorage),
		sequenceController.HandleSequenceWebhook,
	)
}

func SetupActivityRoutes(router fiber.Router, deps Dependencies) {
	activityController := controller.NewActivityController(deps.Store, deps.Hub, utils.Component("activity"))
	dashboardController := controller.NewDashboardController(deps.Store, utils.Component("dashboard"))

	router.Get("/activity", activityController.GetActivity)
	router.Get("/dashboard/stats", dashboardController.GetDashboardStats)

	// WebSocket feed of committed activity entries
	router.Get("/ws/activity", controller.RequireUpgrade, websocket.New(activityController.StreamActivity))
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		if sqlDB, err := deps.Store.DB().DB(); err != nil || sqlDB.PingContext(c.UserContext()) != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	var api fiber.Router = app
	if deps.AccessLog {
		api = app.Group("", logger.New(logger.Config{
			Format: accessLogFormat,
		}))
	}

	SetupLeadRoutes(api, deps)
	SetupSequenceRoutes(api, deps)
	SetupActivityRoutes(api, deps)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Not Found", nil)
	})
}
