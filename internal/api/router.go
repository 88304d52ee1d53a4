package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hualin/rednote-studio/internal/api/handler"
	"github.com/hualin/rednote-studio/internal/api/middleware"
	"github.com/hualin/rednote-studio/internal/logger"
	"github.com/hualin/rednote-studio/internal/logstore"
	"github.com/hualin/rednote-studio/internal/render"
	"github.com/hualin/rednote-studio/internal/service"
	"github.com/hualin/rednote-studio/internal/store"
)

// Deps bundles everything the HTTP surface needs.
type Deps struct {
	Generate *service.GenerateService
	Export   *service.ExportService
	Raster   *render.Rasterizer
	Results  *store.Results
	Images   *store.Images
	LogBuf   *logstore.Buffer
	CORS     middleware.CORSConfig
	Log      *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Log))
	r.Use(middleware.CORS(deps.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	generateHandler := handler.NewGenerateHandler(deps.Generate, deps.Results)
	cardHandler := handler.NewCardHandler(deps.Raster, deps.Results, deps.Images)
	exportHandler := handler.NewExportHandler(deps.Export)
	logsHandler := handler.NewLogsHandler(deps.LogBuf)

	// Health check
	r.GET("/health", healthHandler.Health)

	// Server-side capture path, kept at its historical route for frontend
	// compatibility. Preflight OPTIONS is answered by the CORS middleware.
	r.POST("/api/generate-card", cardHandler.GenerateCard)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Generation and the working set
		v1.POST("/generate", generateHandler.Generate)
		v1.GET("/results", generateHandler.ListResults)
		v1.PUT("/results/:id", generateHandler.UpdateContent)

		// Per-card images
		v1.POST("/results/:id/image", generateHandler.SwapImage)
		v1.GET("/results/:id/image/task", generateHandler.ImageTask)
		v1.GET("/results/:id/card", cardHandler.RenderResult)
		v1.GET("/images/:id", cardHandler.ServeImage)

		// Batch export
		v1.POST("/export", exportHandler.Export)

		// Activity log
		v1.GET("/logs", logsHandler.Logs)
	}

	return r
}
