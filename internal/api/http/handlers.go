package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/GriffinCanCode/librarian/internal/shared/types"
	"github.com/gin-gonic/gin"
)

// Provider is the operation set served over HTTP
type Provider interface {
	PluginInfo() types.PluginInfo
	PublicKey() (string, string)
	Login(ctx context.Context, name, secret string, encrypted bool) error
	Logout(ctx context.Context, accountID string) error
	User() types.User

	ListInstalledApps(ctx context.Context) ([]types.InstalledApp, error)
	ProviderItems(ctx context.Context) []types.ProviderItem
	ProviderItem(ctx context.Context, id string) (types.ProviderItem, error)
	ItemMetadata(ctx context.Context, id string) (string, error)
	LaunchOptions(ctx context.Context, id string) ([]types.LaunchOption, error)
	InstallOptions(ctx context.Context, id string) ([]types.InstallOptionDescription, error)
	Eulas(ctx context.Context, id string) ([]types.EulaEntry, error)
	PostInstallSteps(ctx context.Context, id string) (string, error)
	PreLaunchHook(ctx context.Context, id string) ([]string, error)

	Install(ctx context.Context, id, destinationRoot string, opts types.InstallOptions) (types.InstallAccepted, error)
	PauseInstall(id string) error
	Uninstall(ctx context.Context, id string) error
	Import(ctx context.Context, id, folder string) (types.InstalledApp, error)
	MoveItem(ctx context.Context, id, destination string) error
	Refresh(ctx context.Context) (int, error)
	CheckUpdates(ctx context.Context) ([]types.InstalledApp, error)
}

// Handlers contains all HTTP handlers
type Handlers struct {
	provider Provider
}

// NewHandlers creates a new handler set
func NewHandlers(provider Provider) *Handlers {
	return &Handlers{provider: provider}
}

// LoginRequest is the login body. Secret is base64 RSA-OAEP ciphertext when
// Encrypted is set.
type LoginRequest struct {
	Name      string `json:"name" binding:"required"`
	Secret    string `json:"secret" binding:"required"`
	Encrypted bool   `json:"encrypted"`
}

// LogoutRequest names the account to log out; empty means the current one
type LogoutRequest struct {
	ID string `json:"id"`
}

// InstallRequest is the install body. Every field is optional.
type InstallRequest struct {
	Destination string `json:"destination"`
	Platform    string `json:"platform"`
	Language    string `json:"language"`
	Verify      bool   `json:"verify"`
}

// ImportRequest points at an existing installed tree
type ImportRequest struct {
	Folder string `json:"folder" binding:"required"`
}

// MoveRequest names a new location for an installed tree
type MoveRequest struct {
	Destination string `json:"destination"`
}

// bindOptional decodes a JSON body; an absent body leaves v untouched
func bindOptional(c *gin.Context, v interface{}) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Health handles liveness checks
func (h *Handlers) Health(c *gin.Context) {
	info := h.provider.PluginInfo()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": info.ID,
		"version": info.Version,
	})
}

// PluginInfo returns the plugin identity
func (h *Handlers) PluginInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.PluginInfo())
}

// PublicKey returns the process public key
func (h *Handlers) PublicKey(c *gin.Context) {
	keyType, pem := h.provider.PublicKey()
	c.JSON(http.StatusOK, gin.H{
		"key_type":   keyType,
		"public_key": pem,
	})
}

// Login authenticates the account slot
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.provider.Login(c.Request.Context(), req.Name, req.Secret, req.Encrypted); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.provider.User())
}

// Logout clears the account slot
func (h *Handlers) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := bindOptional(c, &req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.provider.Logout(c.Request.Context(), req.ID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.provider.User())
}

// User returns the provider status and user profile
func (h *Handlers) User(c *gin.Context) {
	c.JSON(http.StatusOK, h.provider.User())
}

// ListInstalled lists install records
func (h *Handlers) ListInstalled(c *gin.Context) {
	apps, err := h.provider.ListInstalledApps(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"apps": apps})
}

// ListItems lists catalog entries
func (h *Handlers) ListItems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": h.provider.ProviderItems(c.Request.Context())})
}

// GetItem returns one catalog entry
func (h *Handlers) GetItem(c *gin.Context) {
	item, err := h.provider.ProviderItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetItemMetadata returns the serialized metadata document as is
func (h *Handlers) GetItemMetadata(c *gin.Context) {
	doc, err := h.provider.ItemMetadata(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
}

// GetLaunchOptions returns how to start an item
func (h *Handlers) GetLaunchOptions(c *gin.Context) {
	options, err := h.provider.LaunchOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"launch_options": options})
}

// GetInstallOptions describes the accepted install options
func (h *Handlers) GetInstallOptions(c *gin.Context) {
	options, err := h.provider.InstallOptions(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": options})
}

// GetEulas lists license agreements
func (h *Handlers) GetEulas(c *gin.Context) {
	eulas, err := h.provider.Eulas(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"eulas": eulas})
}

// GetPostInstallSteps returns the serialized step list as is
func (h *Handlers) GetPostInstallSteps(c *gin.Context) {
	steps, err := h.provider.PostInstallSteps(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(steps))
}

// PreLaunch runs the pre-launch hook
func (h *Handlers) PreLaunch(c *gin.Context) {
	env, err := h.provider.PreLaunchHook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"environment": env})
}

// Install accepts an install; progress is reported on the event stream
func (h *Handlers) Install(c *gin.Context) {
	var req InstallRequest
	if err := bindOptional(c, &req); err != nil {
		respondBadRequest(c, err)
		return
	}

	// The install outlives the request
	accepted, err := h.provider.Install(context.Background(), c.Param("id"), req.Destination, types.InstallOptions{
		Platform: req.Platform,
		Language: req.Language,
		Verify:   req.Verify,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, accepted)
}

// Pause cancels an active install
func (h *Handlers) Pause(c *gin.Context) {
	id := c.Param("id")
	if err := h.provider.PauseInstall(id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"app_id": id, "paused": true})
}

// Import registers an existing folder as installed
func (h *Handlers) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	rec, err := h.provider.Import(c.Request.Context(), c.Param("id"), req.Folder)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Move relocates an installed tree
func (h *Handlers) Move(c *gin.Context) {
	var req MoveRequest
	if err := bindOptional(c, &req); err != nil {
		respondBadRequest(c, err)
		return
	}
	if err := h.provider.MoveItem(c.Request.Context(), c.Param("id"), req.Destination); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Uninstall removes an installed item
func (h *Handlers) Uninstall(c *gin.Context) {
	id := c.Param("id")
	if err := h.provider.Uninstall(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"app_id": id, "uninstalled": true})
}

// Refresh re-scans the library
func (h *Handlers) Refresh(c *gin.Context) {
	count, err := h.provider.Refresh(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// CheckUpdates compares installed versions with the catalog
func (h *Handlers) CheckUpdates(c *gin.Context) {
	updates, err := h.provider.CheckUpdates(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updates": updates})
}
