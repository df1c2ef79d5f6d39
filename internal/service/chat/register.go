package chat

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/apperr"
	"github.com/campusmatch/campusmatch/internal/middleware"
	"github.com/campusmatch/campusmatch/internal/server"
)

// Registrar ties the chat service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the chat service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the match/chat routes to the authenticated group
func (r *Registrar) Register(g *gin.RouterGroup) {
	service := NewService(r.appCtx)
	g.GET("/matches", service.handleListMatches)
	g.DELETE("/matches/:id", service.handleUnmatch)
	g.POST("/matches/:id/messages", service.handleSendMessage)
	g.GET("/matches/:id/messages", service.handleFetchMessages)
	g.POST("/matches/:id/read", service.handleMarkRead)
}

func matchIDParam(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("match id must be a valid uint64")
	}
	return id, nil
}

func (s *Service) handleListMatches(c *gin.Context) {
	views, err := s.ListMatches(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": views})
}

func (s *Service) handleUnmatch(c *gin.Context) {
	matchID, err := matchIDParam(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	if err := s.Unmatch(c.Request.Context(), matchID, middleware.ActorID(c)); err != nil {
		server.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Service) handleSendMessage(c *gin.Context) {
	matchID, err := matchIDParam(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		server.RespondError(c, apperr.Validation("invalid request body"))
		return
	}
	msg, err := s.SendMessage(c.Request.Context(), matchID, middleware.ActorID(c), req.Content)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

func (s *Service) handleFetchMessages(c *gin.Context) {
	matchID, err := matchIDParam(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	order := c.DefaultQuery("order", "newest")

	messages, nextToken, err := s.FetchMessages(
		c.Request.Context(),
		matchID,
		middleware.ActorID(c),
		c.Query("page_token"),
		limit,
		order != "oldest",
	)
	if err != nil {
		server.RespondError(c, err)
		return
	}

	resp := gin.H{"messages": messages}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleMarkRead(c *gin.Context) {
	matchID, err := matchIDParam(c)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	count, err := s.MarkRead(c.Request.Context(), matchID, middleware.ActorID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}
