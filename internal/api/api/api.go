package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"hackhub/cmd/middleware"
	"hackhub/internal/auth"
	"hackhub/internal/dto"
	"hackhub/internal/service"
)

type Routers struct {
	Service      service.Service
	Log          *zerolog.Logger
	Mode         string
	AllowOrigins []string
	// Debug exposes internal error detail in responses.
	Debug        bool
}

type handlers struct {
	svc   service.Service
	log   *zerolog.Logger
	debug bool
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	cfg.MaxAge = 12 * time.Hour
	return cfg
}

func NewRouters(r *Routers) *ginext.Engine {
	mode := r.Mode
	if mode == "" {
		mode = "release"
	}
	app := ginext.New(mode)

	app.Use(middleware.LoggingMiddleware(r.Log))
	app.Use(cors.New(corsConfig(r.AllowOrigins)))

	h := &handlers{svc: r.Service, log: r.Log, debug: r.Debug}
	manager := middleware.RequireRole(r.Service, auth.RoleManager, r.Log)
	student := middleware.RequireRole(r.Service, auth.RoleStudent, r.Log)

	app.GET("/health", func(c *ginext.Context) {
		dto.SuccessResponse(c, dto.HealthResponse{Status: "ok", Time: time.Now().UTC()})
	})

	authGroup := app.Group("/auth")
	authGroup.POST("/register", h.registerManager)
	authGroup.POST("/login", h.loginManager)
	authGroup.GET("/me", manager, h.me)

	studentGroup := app.Group("/student")
	studentGroup.POST("/register", h.registerStudent)
	studentGroup.POST("/login", h.loginStudent)
	studentGroup.GET("/profile", student, h.studentProfile)

	events := app.Group("/events")
	events.GET("", h.listEvents)
	events.POST("", manager, h.createEvent)
	events.GET("/manager", manager, h.listManagerEvents)
	events.GET("/:id", middleware.OptionalRole(r.Service, auth.RoleManager), h.getEvent)
	events.PUT("/:id", manager, h.updateEvent)
	events.DELETE("/:id", manager, h.deleteEvent)
	events.GET("/:id/stats", manager, h.eventStats)
	events.POST("/:id/publish", manager, h.publish)
	events.POST("/:id/unpublish", manager, h.unpublish)
	events.POST("/:id/share-link", manager, h.regenerateShareLink)
	events.GET("/:id/teams", manager, h.listTeams)
	events.GET("/:id/export-csv", manager, h.exportCSV)
	events.GET("/:id/export-pdf", manager, h.exportPDF)
	events.GET("/:id/certificate/:teamId", manager, h.certificates)

	public := app.Group("/public")
	public.GET("/events", h.listPublicEvents)
	public.GET("/events/:identifier", h.publicEvent)
	public.POST("/events/:identifier/register", h.registerTeamPublic)

	teams := app.Group("/teams")
	teams.POST("/register/:eventId", h.registerTeam)
	teams.PUT("/:teamId", manager, h.updateTeam)
	teams.PUT("/:teamId/payment-status", manager, h.verifyPayment)
	teams.GET("/:teamId/payment-history", manager, h.paymentHistory)
	teams.DELETE("/:teamId", manager, h.deleteTeam)

	return app
}
