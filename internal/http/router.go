package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/vitalwatch/flagreview-backend/internal/http/handlers"
	httpMW "github.com/vitalwatch/flagreview-backend/internal/http/middleware"
	"github.com/vitalwatch/flagreview-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler   *httpH.HealthHandler
	FlagHandler     *httpH.FlagHandler
	FeedbackHandler *httpH.FeedbackHandler
	PagesHandler    *httpH.PagesHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestID())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// JSON API
	if cfg.FlagHandler != nil {
		r.GET("/flags", cfg.FlagHandler.ListUnreviewed)
		r.GET("/flags/:prediction_id", cfg.FlagHandler.GetFlag)
	}
	if cfg.FeedbackHandler != nil {
		r.POST("/feedback", cfg.FeedbackHandler.Submit)
	}

	// Server-rendered pages
	if cfg.PagesHandler != nil {
		r.GET("/", cfg.PagesHandler.Index)
		r.GET("/review/:prediction_id", cfg.PagesHandler.ReviewGet)
		r.POST("/review/:prediction_id", cfg.PagesHandler.ReviewPost)
		r.GET("/metrics", cfg.PagesHandler.Metrics)
	}

	return r
}
