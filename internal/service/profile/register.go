package profile

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/middleware"
	"github.com/campusmatch/campusmatch/internal/server"
)

// Registrar ties the profile service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the profile service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the profile and block routes
func (r *Registrar) Register(g *gin.RouterGroup) {
	service := NewService(r.appCtx)
	g.GET("/profiles/:id", service.handleGet)
	g.PUT("/profiles/me", service.handleUpdateOwn)
	g.PUT("/profiles/me/visibility", service.handleSetVisibility)
	g.POST("/blocks", service.handleBlock)
	g.DELETE("/blocks/:id", service.handleUnblock)
}

func idParam(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("id must be a valid uint64")
	}
	return id, nil
}

func (s *Service) handleGet(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	view, err := s.Get(c.Request.Context(), middleware.ActorID(c), id)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Service) handleUpdateOwn(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	view, err := s.UpdateOwn(c.Request.Context(), middleware.ActorID(c), req)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type visibilityRequest struct {
	Hidden bool `json:"hidden"`
}

func (s *Service) handleSetVisibility(c *gin.Context) {
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	if err := s.SetHidden(c.Request.Context(), middleware.ActorID(c), req.Hidden); err != nil {
		server.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type blockRequest struct {
	ProfileID uint64 `json:"profile_id" binding:"required"`
}

func (s *Service) handleBlock(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validation("profile_id is required"))
		return
	}
	if err := s.Block(c.Request.Context(), middleware.ActorID(c), req.ProfileID); err != nil {
		server.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) handleUnblock(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	if err := s.Unblock(c.Request.Context(), middleware.ActorID(c), id); err != nil {
		server.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
