package swipe

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/middleware"
	"github.com/campusmatch/campusmatch/internal/server"
)

// Registrar ties the swipe service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the swipe service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the swipe routes to the authenticated group
func (r *Registrar) Register(g *gin.RouterGroup) {
	service := NewService(r.appCtx)
	g.POST("/swipes", service.handleRecordSwipe)
	g.POST("/swipes/rewind", service.handleRewind)
}

type recordSwipeRequest struct {
	TargetID   uint64 `json:"target_id" binding:"required"`
	Liked      bool   `json:"liked"`
	SuperLiked bool   `json:"super_liked"`
}

func (s *Service) handleRecordSwipe(c *gin.Context) {
	var req recordSwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validation("target_id is required"))
		return
	}

	result, err := s.RecordSwipe(c.Request.Context(), middleware.ActorID(c), req.TargetID, req.Liked, req.SuperLiked)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Service) handleRewind(c *gin.Context) {
	result, err := s.UndoLastSwipe(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
