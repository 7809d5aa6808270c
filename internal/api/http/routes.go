package http

import "github.com/gin-gonic/gin"

// Register mounts the provider routes on an /api/v1 group
func Register(api *gin.RouterGroup, h *Handlers) {
	api.GET("/plugin", h.PluginInfo)

	auth := api.Group("/auth")
	auth.GET("/public-key", h.PublicKey)
	auth.POST("/login", h.Login)
	auth.POST("/logout", h.Logout)
	auth.GET("/user", h.User)

	library := api.Group("/library")
	library.GET("/installed", h.ListInstalled)
	library.POST("/refresh", h.Refresh)
	library.POST("/updates", h.CheckUpdates)

	items := library.Group("/items")
	items.GET("", h.ListItems)
	items.GET("/:id", h.GetItem)
	items.DELETE("/:id", h.Uninstall)
	items.GET("/:id/metadata", h.GetItemMetadata)
	items.GET("/:id/launch-options", h.GetLaunchOptions)
	items.GET("/:id/install-options", h.GetInstallOptions)
	items.GET("/:id/eulas", h.GetEulas)
	items.GET("/:id/post-install", h.GetPostInstallSteps)
	items.POST("/:id/pre-launch", h.PreLaunch)
	items.POST("/:id/install", h.Install)
	items.POST("/:id/pause", h.Pause)
	items.POST("/:id/import", h.Import)
	items.POST("/:id/move", h.Move)
}
