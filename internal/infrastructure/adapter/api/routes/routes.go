package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreport "github.com/amirhossein-jamali/settlement-engine/internal/domain/port/core"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/settlement-engine/internal/infrastructure/adapter/api/middleware"
)

// Handlers groups the HTTP handlers. Chain and MetricsHandler may be nil, in which
// case their routes are not registered.
type Handlers struct {
	Account        *handler.AccountHandler
	Settlement     *handler.SettlementHandler
	Chain          *handler.ChainHandler
	Health         *handler.HealthHandler
	MetricsHandler http.Handler
	MetricsPath    string
}

// SetupRoutes configures all the routes for the API
func SetupRoutes(router *gin.Engine, h Handlers) {
	users := router.Group("/users")
	{
		users.POST("", h.Account.CreateAccount)
		users.GET("", h.Account.ListAccounts)
		users.GET("/:userId", h.Account.GetAccount)
		users.PUT("/:userId/wallet", h.Account.LinkWallet)
		users.POST("/:userId/intents", h.Settlement.SubmitIntent)
		users.GET("/:userId/transactions", h.Settlement.ListUserTransactions)
	}

	transactions := router.Group("/transactions")
	{
		transactions.GET("", h.Settlement.ListTransactions)
		transactions.GET("/:id", h.Settlement.GetTransaction)
	}

	router.GET("/queue/status", h.Settlement.QueueStatus)
	router.GET("/health", h.Health.Health)
	router.GET("/chain/info", h.Account.ChainInfo)

	if h.Chain != nil {
		router.POST("/chain/events", h.Chain.PublishEvent)
	}
	if h.MetricsHandler != nil {
		path := h.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(h.MetricsHandler))
	}
}

// SetupMiddlewares configures global middlewares for the API. recorder may be nil.
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger, timeProvider coreport.TimeProvider, recorder middleware.RequestRecorder) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger, timeProvider))
	if recorder != nil {
		router.Use(middleware.Metrics(recorder))
	}
}
