package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/adapters"
	"github.com/aona/duolink/internal/app"
	"github.com/aona/duolink/internal/config"
)

// Deps is everything the HTTP surface needs, wired once in main.
type Deps struct {
	Recruiting *app.Recruiting
	Matcher    *app.Matcher
	Rooms      *app.Rooms
	Blocks     *app.Blocks
	Tickets    *app.TicketStore
	WS         *adapters.WSController
}

const userIDKey = "user_id"

// IdentityMiddleware trusts the user id the external auth service wrote into
// the shared cookie session. No session means no identity.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		raw, _ := sess.Get(userIDKey).(string)
		id, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "not authenticated"})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func currentUser(c *gin.Context) uuid.UUID {
	return c.MustGet(userIDKey).(uuid.UUID)
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("DuolinkSession", store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Websocket authenticates through its single-use ticket, not the session.
	r.GET("/api/ws", func(c *gin.Context) {
		deps.WS.Handle(ctx, c)
	})

	h := &handlers{deps: deps}
	api := r.Group("/api", IdentityMiddleware())

	api.GET("/recruitments", h.listRecruitments)
	api.POST("/recruitments", h.createRecruitment)
	api.POST("/recruitments/:id/join", h.joinRecruitment)
	api.DELETE("/recruitments/:id", h.cancelRecruitment)

	api.GET("/rooms/pending-feedback", h.pendingFeedback)
	api.GET("/rooms/:id", h.getRoom)
	api.GET("/rooms/:id/messages", h.listMessages)
	api.POST("/rooms/:id/messages", h.sendMessage)
	api.POST("/rooms/:id/close", h.closeRoom)
	api.POST("/rooms/:id/feedback", h.submitFeedback)

	api.GET("/blocks", h.listBlocks)
	api.POST("/blocks", h.createBlock)
	api.DELETE("/blocks/:blocked_id", h.deleteBlock)

	api.POST("/ws/ticket", h.createTicket)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
