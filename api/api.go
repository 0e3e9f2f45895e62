package api

import (
	"github.com/gin-gonic/gin"

	"github.com/chairside/chairside"
	"github.com/chairside/chairside/api/middleware"
	"github.com/chairside/chairside/config"
)

type Api struct {
	chairside *chairside.Chairside
	verifier  *chairside.SignatureVerifier
	router    *gin.Engine
	secure    bool
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/webhooks/square", a.SquareWebhook)

	admin := router.Group("/admin")
	if a.secure {
		// Square cannot send the admin key; webhooks authenticate by
		// signature inside their handler instead.
		admin.Use(middleware.SecretKeyAuthMiddleware())
	}
	admin.GET("/runs", a.GetRuns)
	admin.GET("/runs/:correlation_id", a.GetRun)
	admin.GET("/runs/:correlation_id/logs", a.GetRunLogs)
	admin.GET("/customers/:id", a.GetCustomer)
	admin.GET("/referral-codes/:code", a.GetCustomerByReferralCode)
	admin.GET("/gift-cards/:correlation_id", a.GetGiftCard)
	admin.POST("/rewards", a.ManualReward)
	return a.router
}

func NewAPI(c *chairside.Chairside) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{
		chairside: c,
		verifier:  chairside.NewSignatureVerifier(conf),
		router:    r,
		secure:    conf.Server.Secure,
	}
}
