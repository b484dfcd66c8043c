package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"go.uber.org/zap"

	"booking/internal/handler"
	"booking/internal/metrics"
	"booking/internal/middleware"
	"booking/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	OrderHandler      *handler.OrderHandler
	InvitationHandler *handler.InvitationHandler
	MemberHandler     *handler.MemberHandler
	UserHandler       *handler.UserHandler
	LedgerHandler     *handler.LedgerHandler
	ResponseCache     redis.ResponseCacheInterface
	AllowedOrigins    []string
	NewRelicApp       *newrelic.Application
	Logger            *zap.Logger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))
	router.Use(middleware.MetricsMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.ErrorLogger(deps.Logger))
	router.Use(middleware.IdempotencyMiddleware(deps.ResponseCache, deps.Logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	{
		orders := api.Group("/orders")
		{
			orders.GET("", deps.OrderHandler.ListOrders)
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.PATCH("/:id", deps.OrderHandler.UpdateOrder)
			orders.POST("/:id/status", deps.OrderHandler.UpdateStatus)
			orders.POST("/:id/cancel", deps.OrderHandler.CancelOrder)
		}

		api.POST("/users", deps.UserHandler.Register)

		userManagement := api.Group("/user-management")
		{
			userManagement.POST("/invitations", deps.InvitationHandler.CreateInvitation)
			userManagement.GET("/invitations", deps.InvitationHandler.ListInvitations)
			userManagement.DELETE("/invitations", deps.InvitationHandler.CancelInvitation)
			userManagement.GET("/accept-invitation", deps.InvitationHandler.GetInvitation)
			userManagement.POST("/accept-invitation", deps.InvitationHandler.AcceptInvitation)
			userManagement.GET("/members", deps.MemberHandler.ListMembers)
			userManagement.PATCH("/members", deps.MemberHandler.UpdateMemberStatus)
			userManagement.DELETE("/members", deps.MemberHandler.RemoveMember)
		}

		ledger := api.Group("/ledger/:clientId")
		{
			ledger.GET("/transactions", deps.LedgerHandler.GetTransactions)
			ledger.POST("/transactions", deps.LedgerHandler.SaveTransaction)
			ledger.POST("/transactions/dedupe", deps.LedgerHandler.RemoveDuplicates)
			ledger.GET("/transactions/:id", deps.LedgerHandler.GetTransaction)
			ledger.PATCH("/transactions/:id", deps.LedgerHandler.UpdateTransaction)
			ledger.POST("/transactions/:id/status", deps.LedgerHandler.UpdateTransactionStatus)
			ledger.POST("/orders/:orderId/sync", deps.LedgerHandler.SyncOrder)
			ledger.GET("/vehicles", deps.LedgerHandler.GetVehicles)
			ledger.POST("/vehicles", deps.LedgerHandler.SaveVehicle)
			ledger.DELETE("/vehicles/:id", deps.LedgerHandler.RemoveVehicle)
		}
	}

	return router
}
