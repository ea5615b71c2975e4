package router

import (
	"elective-allocation/internal/api/handlers"
	"elective-allocation/internal/api/middleware"
	serviceInterfaces "elective-allocation/internal/interfaces/service"
	"elective-allocation/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP API is built on.
type Dependencies struct {
	Allocations    serviceInterfaces.AllocationService
	Snapshots      serviceInterfaces.SnapshotService
	Preferences    serviceInterfaces.PreferenceService
	ChangeRequests serviceInterfaces.ChangeRequestService
	Idempotency    handlers.Idempotency
	Tokens         *token.Manager
	Health         map[string]handlers.HealthCheckFunc
	Version        string
	AllowedOrigins []string
}

func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(middleware.Logger())
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))
	r.Use(gin.Recovery())
	r.Use(middleware.IdempotencyMiddleware())

	allocationHandler := handlers.NewAllocationHandler(deps.Allocations, deps.Snapshots, deps.Idempotency)
	studentHandler := handlers.NewStudentHandler(deps.Preferences)
	changeRequestHandler := handlers.NewChangeRequestHandler(deps.ChangeRequests, deps.Idempotency)
	healthHandler := handlers.NewHealthHandler(deps.Version, deps.Health)

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/ready", healthHandler.ReadinessCheck)
	r.GET("/live", healthHandler.LivenessCheck)

	admin := middleware.RequireRole(token.RoleAdmin)
	staff := middleware.RequireRole(token.RoleAdmin, token.RoleFaculty)
	studentOrAdmin := middleware.RequireRole(token.RoleStudent, token.RoleAdmin)

	v1 := r.Group("/api/v1", middleware.Auth(deps.Tokens))
	{
		allocations := v1.Group("/allocations")
		{
			allocations.POST("/run", admin, allocationHandler.RunAllocation)
			allocations.GET("", staff, allocationHandler.ListAllocations)
			allocations.GET("/waitlists", staff, allocationHandler.GetWaitlists)
			allocations.POST("/rollback", admin, allocationHandler.RollbackAll)
		}

		snapshots := v1.Group("/snapshots", admin)
		{
			snapshots.GET("", allocationHandler.ListSnapshots)
			snapshots.POST("/:snapshot_id/rollback", allocationHandler.RollbackToSnapshot)
		}

		students := v1.Group("/students", studentOrAdmin)
		{
			students.PUT("/:student_id/preferences", studentHandler.SubmitPreferences)
			students.GET("/:student_id/allocation", studentHandler.GetAllocation)
		}

		changeRequests := v1.Group("/change-requests")
		{
			changeRequests.POST("", middleware.RequireRole(token.RoleStudent), changeRequestHandler.Create)
			changeRequests.GET("", staff, changeRequestHandler.List)
			changeRequests.POST("/:request_id/decision", staff, changeRequestHandler.Decide)
		}
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", middleware.IdempotencyHeader, middleware.RequestIDHeader)
	cfg.ExposeHeaders = []string{middleware.RequestIDHeader}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
