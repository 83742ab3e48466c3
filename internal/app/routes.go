package app

import (
	"Tasklist/internal/config"
	"Tasklist/internal/handlers"
	"Tasklist/internal/service"

	_ "Tasklist/docs"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, store *service.TaskStore) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg, store))
	r.GET("/version", versionHandler(cfg))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(302, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))

	api := r.Group("/api/v1")
	registerTaskRoutes(api, handlers.NewTaskHandler(store))
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "Task List API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"storage": cfg.Storage.Backend,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"api":     "/api/v1",
		})
	}
}

// healthHandler stays 200 while persistence is failing; the store keeps serving from memory.
func healthHandler(cfg config.Config, store *service.TaskStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"ok": true, "env": cfg.App.Env, "storage": cfg.Storage.Backend}
		if err := store.LastSaveError(); err != nil {
			resp["save_error"] = err.Error()
		}
		if err := store.LoadError(); err != nil {
			resp["load_error"] = err.Error()
		}
		c.JSON(200, resp)
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(500, gin.H{"error": err.Error()})
			return
		}
		c.Data(200, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler) {
	api.GET("/tasks", h.List)
	api.POST("/tasks", h.Create)
	api.DELETE("/tasks", h.Clear)
	api.POST("/tasks/submit", h.Submit)
	api.GET("/tasks/:id", h.GetByID)
	api.PUT("/tasks/:id", h.Update)
	api.DELETE("/tasks/:id", h.Delete)
	api.POST("/tasks/:id/toggle", h.Toggle)
	api.POST("/tasks/:id/edit", h.BeginEdit)
	api.DELETE("/edit", h.CancelEdit)
	api.GET("/filter", h.GetFilter)
	api.PUT("/filter", h.SetFilter)
	api.GET("/counts", h.Counts)
}
