package router

import (
	"myGreenInsight/internal/rest"

	"github.com/labstack/echo/v4"
)

func SetupConversionRoutes(api *echo.Group, handler *rest.ConversionHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	conversions := api.Group("/conversions", authRequired)
	conversions.POST("", handler.Track)
	conversions.GET("", handler.List)
	conversions.GET("/:id", handler.Get)
	conversions.DELETE("/:id", handler.Delete, adminOnly)

	goals := api.Group("/goals", authRequired)
	goals.POST("", handler.CreateGoal, adminOnly)
	goals.GET("", handler.ListGoals)
}

func SetupAttributionRoutes(api *echo.Group, handler *rest.AttributionHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	attributions := api.Group("/attributions", authRequired)
	attributions.POST("/resolve/:session_id", handler.Resolve)
	attributions.POST("/campaigns/refresh", handler.RefreshCampaigns, adminOnly)
	attributions.GET("", handler.List)
	attributions.GET("/:session_id", handler.Get)
	attributions.PUT("/:session_id", handler.SetManual)
	attributions.DELETE("/:session_id", handler.Delete, adminOnly)
}

func SetupScoreRoutes(api *echo.Group, handler *rest.ScoreHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	scores := api.Group("/scores", authRequired)
	scores.POST("/calculate", handler.Calculate)
	scores.POST("/recalculate", handler.Recalculate, adminOnly)
	scores.GET("", handler.List)
	scores.GET("/:person_id/:type", handler.Get)
	scores.DELETE("/:person_id/:type", handler.Delete, adminOnly)

	nps := api.Group("/nps", authRequired)
	nps.POST("/responses", handler.RecordNPS)
}

func SetupSegmentRoutes(api *echo.Group, handler *rest.SegmentHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	segments := api.Group("/segments", authRequired)
	segments.POST("", handler.Create)
	segments.GET("", handler.List)
	segments.POST("/build", handler.BuildAll, adminOnly)
	segments.GET("/:id", handler.Get)
	segments.PUT("/:id", handler.Update)
	segments.DELETE("/:id", handler.Delete, adminOnly)
	segments.POST("/:id/build", handler.Build)
	segments.GET("/:id/members", handler.Members)
	segments.GET("/:id/evaluate/:person_id", handler.Evaluate)
}

func SetupExperimentRoutes(api *echo.Group, handler *rest.ExperimentHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	experiments := api.Group("/experiments", authRequired)
	experiments.POST("", handler.Create)
	experiments.GET("", handler.List)
	experiments.GET("/:id", handler.Get)
	experiments.PUT("/:id", handler.Update)
	experiments.DELETE("/:id", handler.Delete, adminOnly)
	experiments.GET("/:id/results", handler.Results)
	experiments.POST("/:id/assign", handler.Assign)
	experiments.POST("/:id/exposures", handler.Exposure)
	experiments.POST("/:id/conversions", handler.Conversion)
}

func SetupForecastRoutes(api *echo.Group, handler *rest.ForecastHandler, authRequired echo.MiddlewareFunc, adminOnly echo.MiddlewareFunc) {
	forecasts := api.Group("/forecasts", authRequired)
	forecasts.POST("", handler.Create)
	forecasts.GET("", handler.List)
	forecasts.GET("/accuracy", handler.AccuracyAll, adminOnly)
	forecasts.GET("/:id", handler.Get)
	forecasts.PUT("/:id", handler.Update)
	forecasts.DELETE("/:id", handler.Delete, adminOnly)
	forecasts.GET("/:id/accuracy", handler.Accuracy)
}

func SetupJourneyRoutes(api *echo.Group, handler *rest.JourneyHandler, authRequired echo.MiddlewareFunc) {
	journey := api.Group("/journey", authRequired)
	journey.POST("/events", handler.RecordEvent)
	journey.GET("/timeline/:person_id", handler.Timeline)
	journey.GET("/funnel", handler.Funnel)
}

func SetupPublishRoutes(api *echo.Group, handler *rest.PublishHandler, authRequired echo.MiddlewareFunc) {
	publish := api.Group("/publish", authRequired)
	publish.POST("/retry-plan", handler.RetryPlan)
}
