package discovery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/middleware"
	"github.com/campusmatch/campusmatch/internal/server"
)

// Registrar ties the discovery service into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
}

// NewRegistrar creates a new Registrar for the discovery service
func NewRegistrar(appCtx *app.AppContext) *Registrar {
	return &Registrar{appCtx: appCtx}
}

// Register attaches the discovery and liked-you routes
func (r *Registrar) Register(g *gin.RouterGroup) {
	service := NewService(r.appCtx)
	g.GET("/discovery", service.handleFeed)
	g.GET("/liked-you", service.handleListLikedYou)
	g.GET("/liked-you/count", service.handleCountLikedYou)
}

func (s *Service) handleFeed(c *gin.Context) {
	filter, err := parseFilter(
		c.DefaultQuery("min_age", "18"),
		c.DefaultQuery("max_age", "99"),
		c.Query("gender"),
		c.Query("year"),
		c.Query("major"),
	)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	candidates, err := s.Feed(c.Request.Context(), middleware.ActorID(c), filter, limit)
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (s *Service) handleListLikedYou(c *gin.Context) {
	likers, nextToken, err := s.ListLikedYou(c.Request.Context(), middleware.ActorID(c), c.Query("page_token"))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	resp := gin.H{"likers": likers}
	if nextToken != nil {
		resp["next_page_token"] = *nextToken
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Service) handleCountLikedYou(c *gin.Context) {
	count, err := s.CountLikedYou(c.Request.Context(), middleware.ActorID(c))
	if err != nil {
		server.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
