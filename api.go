package main

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"netwarden/access"
	"netwarden/authorize"
	"netwarden/config"
	"netwarden/events"
	"netwarden/logger"
	"netwarden/monitor"
	"netwarden/presence"
)

// apiServer bundles the components the HTTP handlers act on.
type apiServer struct {
	cache    *presence.Cache
	access   *access.Controller
	workflow *authorize.Workflow
	guests   *authorize.GuestManager
	mon      *monitor.Monitor
	hub      *events.Hub
	started  time.Time
}

// newRouter assembles the Gin engine with middleware and all routes.
func (s *apiServer) newRouter() *gin.Engine {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	origin := config.AppConfig.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{origin},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: origin != "*",
		MaxAge:           12 * time.Hour,
	}))

	api := router.Group("/api")
	{
		api.GET("/devices", s.listDevices)
		api.POST("/devices/block", s.blockDevice)
		api.POST("/devices/unblock", s.unblockDevice)
		api.POST("/devices/alert", s.deviceAlert)

		api.GET("/requests/pending", s.pendingRequests)
		api.POST("/requests/:action/:mac", s.resolveRequest)

		api.GET("/guests", s.listGuests)
		api.POST("/guests", s.admitGuest)
		api.DELETE("/guests/:mac", s.removeGuest)

		api.POST("/scan", s.triggerScan)
		api.GET("/health", s.health)
	}
	router.GET("/ws", s.serveWS)

	return router
}

// requestLogger logs each request through zap instead of gin's default
// stdout writer.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Get().Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// normalizeMAC lowercases and trims a MAC so it matches cache keys.
func normalizeMAC(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}

type macRequest struct {
	MAC string `json:"mac"`
}

type alertRequest struct {
	MAC  string `json:"mac"`
	IP   string `json:"ip"`
	Name string `json:"name"`
}

type resolveRequest struct {
	TimeLimit int `json:"timeLimit"`
}

type guestRequest struct {
	MAC             string `json:"mac"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
}

func (s *apiServer) listDevices(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.List())
}

func (s *apiServer) blockDevice(c *gin.Context) {
	var req macRequest
	if err := c.ShouldBindJSON(&req); err != nil || normalizeMAC(req.MAC) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mac is required"})
		return
	}
	mac := normalizeMAC(req.MAC)
	if err := s.access.Block(c.Request.Context(), mac); err != nil {
		var enfErr *access.EnforcementError
		if errors.As(err, &enfErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.mon.Broadcast()
	c.JSON(http.StatusOK, gin.H{"message": "device blocked", "mac": mac})
}

func (s *apiServer) unblockDevice(c *gin.Context) {
	var req macRequest
	if err := c.ShouldBindJSON(&req); err != nil || normalizeMAC(req.MAC) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mac is required"})
		return
	}
	mac := normalizeMAC(req.MAC)
	if err := s.access.Unblock(c.Request.Context(), mac); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.mon.Broadcast()
	c.JSON(http.StatusOK, gin.H{"message": "device unblocked", "mac": mac})
}

func (s *apiServer) deviceAlert(c *gin.Context) {
	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil || normalizeMAC(req.MAC) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mac is required"})
		return
	}
	s.workflow.Request(normalizeMAC(req.MAC), req.IP, req.Name)
	c.JSON(http.StatusOK, gin.H{"message": "authorization request recorded"})
}

func (s *apiServer) pendingRequests(c *gin.Context) {
	c.JSON(http.StatusOK, s.workflow.Pending())
}

func (s *apiServer) resolveRequest(c *gin.Context) {
	mac := normalizeMAC(c.Param("mac"))
	if mac == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mac is required"})
		return
	}

	var action, outcome string
	switch c.Param("action") {
	case "approve":
		action = authorize.ActionApprove
		outcome = "request approved"
	case "reject":
		action = authorize.ActionDeny
		outcome = "request rejected"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be approve or reject"})
		return
	}

	var req resolveRequest
	// Body is optional; a missing or empty body means no time limit.
	_ = c.ShouldBindJSON(&req)

	if err := s.workflow.Resolve(c.Request.Context(), mac, action, req.TimeLimit); err != nil {
		var enfErr *access.EnforcementError
		if errors.As(err, &enfErr) {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": outcome, "mac": mac})
}

func (s *apiServer) listGuests(c *gin.Context) {
	c.JSON(http.StatusOK, s.guests.List())
}

func (s *apiServer) admitGuest(c *gin.Context) {
	var req guestRequest
	if err := c.ShouldBindJSON(&req); err != nil || normalizeMAC(req.MAC) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mac is required"})
		return
	}
	session, err := s.guests.Admit(c.Request.Context(), normalizeMAC(req.MAC), req.Name, req.DurationMinutes)
	if err != nil {
		switch {
		case errors.Is(err, authorize.ErrGuestExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			var enfErr *access.EnforcementError
			if errors.As(err, &enfErr) {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (s *apiServer) removeGuest(c *gin.Context) {
	mac := normalizeMAC(c.Param("mac"))
	if mac == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mac is required"})
		return
	}
	if err := s.guests.Remove(c.Request.Context(), mac); err != nil {
		if errors.Is(err, authorize.ErrGuestNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "guest session ended", "mac": mac})
}

func (s *apiServer) triggerScan(c *gin.Context) {
	devices, err := s.mon.RunCycle(c.Request.Context())
	if err != nil {
		// Scan failure still returns the last-known-good list so the
		// dashboard keeps rendering something useful.
		c.JSON(http.StatusOK, gin.H{"devices": devices, "stale": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices, "stale": false})
}

func (s *apiServer) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"devices": len(s.cache.List()),
	})
}
