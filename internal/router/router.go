package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/ohfdesk/ohfdesk/docs"
	"github.com/ohfdesk/ohfdesk/internal/config"
	"github.com/ohfdesk/ohfdesk/internal/infra/authn"
	"github.com/ohfdesk/ohfdesk/internal/middleware"
	"github.com/ohfdesk/ohfdesk/internal/modules/handler"
	"github.com/ohfdesk/ohfdesk/internal/modules/model"
	"github.com/ohfdesk/ohfdesk/internal/modules/serializer"
	"github.com/ohfdesk/ohfdesk/internal/telemetry"
)

type RouterDeps struct {
	Config           *config.Config
	Log              *zap.Logger
	Verifier         authn.Verifier
	Profiles         middleware.ProfileResolver
	ProfileHandler   *handler.ProfileHandler
	TicketHandler    *handler.TicketHandler
	ActivityHandler  *handler.ActivityHandler
	AIHandler        *handler.AIHandler
	ProjectHandler   *handler.ProjectHandler
	TemplateHandler  *handler.TemplateHandler
	AnalyticsHandler *handler.AnalyticsHandler
	RealtimeHandler  *handler.RealtimeHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	// Initialize logger for serializer package
	serializer.SetLogger(d.Log)
	if err := middleware.RegisterValidators(); err != nil {
		d.Log.Fatal("register validators", zap.Error(err))
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if d.Config.S3.MaxUploadMB > 0 {
		r.MaxMultipartMemory = int64(d.Config.S3.MaxUploadMB) << 20
	}

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(telemetry.GinMiddleware(d.Config.App.Name))
		// Add trace ID to response header
		r.Use(telemetry.TraceIDMiddleware())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// swagger
	r.GET("/swagger", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	staff := middleware.RequireRole(model.RoleEmployee, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/api/v1")
	{
		v1.Use(middleware.SupabaseAuth(d.Verifier, d.Profiles))

		v1.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "pong"}) })

		v1.GET("/me", d.ProfileHandler.GetMe)
		v1.PATCH("/me", d.ProfileHandler.UpdateMe)

		tickets := v1.Group("/tickets")
		{
			tickets.GET("", d.TicketHandler.GetTickets)
			tickets.POST("", d.TicketHandler.CreateTicket)
			tickets.GET("/board", d.TicketHandler.GetBoard)
			tickets.POST("/voice", d.TicketHandler.CreateVoiceTicket)
			tickets.POST("/chat", d.TicketHandler.CreateChatTicket)

			tickets.POST("/bulk/status", staff, d.TicketHandler.BulkUpdateStatus)
			tickets.POST("/bulk/archive", staff, d.TicketHandler.BulkArchive)
			tickets.POST("/bulk/unarchive", staff, d.TicketHandler.BulkUnarchive)

			tickets.GET("/:id", d.TicketHandler.GetTicket)
			tickets.PATCH("/:id", d.TicketHandler.UpdateTicket)
			tickets.PATCH("/:id/status", staff, d.TicketHandler.UpdateTicketStatus)
			tickets.POST("/:id/move", staff, d.TicketHandler.MoveTicket)
			tickets.POST("/:id/claim", staff, d.TicketHandler.ClaimTicket)
			tickets.PATCH("/:id/assign", admin, d.TicketHandler.AssignTicket)

			tickets.GET("/:id/activities", d.ActivityHandler.GetActivities)
			tickets.POST("/:id/activities", d.ActivityHandler.CreateActivity)
			tickets.POST("/:id/activities/media", d.ActivityHandler.UploadMedia)
			tickets.POST("/:id/work_sessions", staff, d.ActivityHandler.SaveWorkSession)
			tickets.GET("/:id/summaries", d.ActivityHandler.GetSummaries)
			tickets.POST("/:id/summaries", staff, d.ActivityHandler.CreateSummary)
		}

		v1.DELETE("/activities/:id", d.ActivityHandler.DeleteActivity)

		aiGroup := v1.Group("/ai")
		{
			aiGroup.POST("/chat", d.AIHandler.Chat)
			aiGroup.POST("/transcribe", d.AIHandler.Transcribe)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("", d.ProjectHandler.GetProjects)
			projects.POST("", staff, d.ProjectHandler.CreateProject)
			projects.GET("/:id", d.ProjectHandler.GetProject)
			projects.PATCH("/:id", staff, d.ProjectHandler.UpdateProject)
			projects.DELETE("/:id", admin, d.ProjectHandler.DeleteProject)

			projects.GET("/:id/members", d.ProjectHandler.GetMembers)
			projects.POST("/:id/members", staff, d.ProjectHandler.AddMember)
			projects.PATCH("/:id/members/:user_id", staff, d.ProjectHandler.UpdateMember)
			projects.DELETE("/:id/members/:user_id", staff, d.ProjectHandler.RemoveMember)

			projects.GET("/:id/invites", staff, d.ProjectHandler.GetProjectInvites)
			projects.POST("/:id/invites", staff, d.ProjectHandler.CreateInvite)
		}

		invites := v1.Group("/invites")
		{
			invites.GET("", d.ProjectHandler.GetMyInvites)
			invites.POST("/accept_token", d.ProjectHandler.AcceptInviteToken)
			invites.POST("/:id/accept", d.ProjectHandler.AcceptInvite)
			invites.POST("/:id/reject", d.ProjectHandler.RejectInvite)
		}

		templates := v1.Group("/templates", staff)
		{
			templates.GET("", d.TemplateHandler.GetTemplates)
			templates.POST("", d.TemplateHandler.CreateTemplate)
			templates.GET("/:id", d.TemplateHandler.GetTemplate)
			templates.PUT("/:id", d.TemplateHandler.UpdateTemplate)
			templates.DELETE("/:id", d.TemplateHandler.DeleteTemplate)
			templates.POST("/:id/render", d.TemplateHandler.RenderTemplate)
		}

		v1.GET("/analytics/dashboard", staff, d.AnalyticsHandler.GetDashboard)
		v1.GET("/realtime/tickets", d.RealtimeHandler.StreamTickets)

		adminGroup := v1.Group("/admin", admin)
		{
			adminGroup.GET("/profiles", d.ProfileHandler.GetProfiles)
			adminGroup.PATCH("/profiles/:id/role", d.ProfileHandler.UpdateProfileRole)
			adminGroup.POST("/digests/send", d.ProfileHandler.SendDigests)
		}
	}

	return r
}
