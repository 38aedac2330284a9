// Package mockapi serves a local stand-in for the EchoLink API, used for
// development and end-to-end tests of the client.
package mockapi

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0gfoundation/echolink-client/internal/auth"
)

const maxMessageLength = 2000

type Options struct {
	// ConfirmAfter is the number of status polls before a transaction
	// resolves. Values below 1 resolve on the first poll.
	ConfirmAfter int
	AuthWindow   time.Duration
	Network      string
	Provider     string
	Logger       *zap.Logger

	// ChatRate limits chat requests per wallet; zero disables limiting.
	ChatRate  rate.Limit
	ChatBurst int
}

type Server struct {
	opts   Options
	store  *store
	log    *zap.Logger
	blocks atomic.Uint64

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

func NewServer(opts Options) *Server {
	if opts.Network == "" {
		opts.Network = "echolink-devnet"
	}
	if opts.Provider == "" {
		opts.Provider = "mock-echo"
	}
	if opts.AuthWindow <= 0 {
		opts.AuthWindow = auth.DefaultWindow
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.ChatRate > 0 && opts.ChatBurst < 1 {
		opts.ChatBurst = 1
	}
	s := &Server{
		opts:     opts,
		store:    newStore(opts.ConfirmAfter),
		log:      log,
		limiters: make(map[string]*rate.Limiter),
	}
	s.blocks.Store(1_000_000)
	return s
}

// Handler returns a Gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	s.Register(r.Group("/api/v1"))
	return r
}

// Register mounts the API routes on rg. Authenticated routes get the wallet
// signature middleware.
func (s *Server) Register(rg *gin.RouterGroup) {
	// ── Public ─────────────────────────────────────────────────────────────
	rg.GET("/health", s.handleHealth)
	rg.GET("/config", s.handleConfig)
	rg.GET("/transactions/:id", s.handleTransaction)

	// ── Wallet-authenticated ───────────────────────────────────────────────
	authed := rg.Group("", auth.Middleware(s.opts.AuthWindow, s.log))
	authed.GET("/balance", s.handleBalance)
	authed.POST("/agents", s.handleCreateAgent)
	authed.POST("/chat", s.handleChat)
	authed.GET("/agent/status", s.handleAgentStatus)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"network":      s.opts.Network,
		"block_height": s.blocks.Add(1),
		"provider":     s.opts.Provider,
	})
}

func (s *Server) handleConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"network":            s.opts.Network,
		"provider":           s.opts.Provider,
		"max_message_length": maxMessageLength,
		"auth_window_sec":    int(s.opts.AuthWindow / time.Second),
		"confirm_after":      s.store.confirmAfter,
	})
}

func (s *Server) handleBalance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"address":    c.GetString(auth.ContextWallet),
		"ethBalance": 1.25,
		"ekoBalance": 1000.0,
		"network":    s.opts.Network,
	})
}

// ── Agents ─────────────────────────────────────────────────────────────────

func (s *Server) handleCreateAgent(c *gin.Context) {
	var req struct {
		Name    string `json:"name" binding:"required"`
		Purpose string `json:"purpose" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err, "Name and purpose are required")})
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Purpose) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name and purpose are required"})
		return
	}

	owner := c.GetString(auth.ContextWallet)
	a, tx := s.store.createAgent(owner, req.Name, req.Purpose, time.Now().UTC())
	s.log.Info("agent creation submitted",
		zap.String("owner", owner),
		zap.String("agent", a.Address),
		zap.String("tx", tx.ID),
	)
	c.JSON(http.StatusAccepted, gin.H{
		"message":     "Agent creation initiated",
		"agent":       a,
		"transaction": tx,
	})
}

func (s *Server) handleAgentStatus(c *gin.Context) {
	addr := c.Query("address")
	if addr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address query parameter is required"})
		return
	}
	a, status, ok := s.store.agentStatus(addr)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Agent not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent": a, "status": status})
}

// ── Transactions ───────────────────────────────────────────────────────────

// handleTransaction answers 202 while pending and 200 once resolved.
func (s *Server) handleTransaction(c *gin.Context) {
	tx, ok := s.store.pollTransaction(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	code := http.StatusOK
	if tx.Status == statusPending {
		code = http.StatusAccepted
	}
	c.JSON(code, tx)
}

// ── Chat ───────────────────────────────────────────────────────────────────

func (s *Server) handleChat(c *gin.Context) {
	start := time.Now()
	wallet := c.GetString(auth.ContextWallet)
	if !s.allowChat(wallet) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
		return
	}

	// validator's max counts runes for strings
	var req struct {
		Message string `json:"message" binding:"required,max=2000"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindError(err, "Message must be between 1 and 2000 characters")})
		return
	}

	reply := "Echo: " + req.Message
	c.JSON(http.StatusOK, gin.H{
		"response": reply,
		"metadata": gin.H{
			"response_time": time.Since(start).Round(time.Microsecond).String(),
			"tokens_used":   len(strings.Fields(req.Message)) + len(strings.Fields(reply)),
			"wallet":        wallet,
		},
	})
}

func (s *Server) allowChat(wallet string) bool {
	if s.opts.ChatRate <= 0 {
		return true
	}
	s.limMu.Lock()
	lim, ok := s.limiters[wallet]
	if !ok {
		lim = rate.NewLimiter(s.opts.ChatRate, s.opts.ChatBurst)
		s.limiters[wallet] = lim
	}
	s.limMu.Unlock()
	return lim.Allow()
}

// bindError maps field validation failures to msg and anything else to a
// generic body error.
func bindError(err error, msg string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return msg
	}
	return "invalid request body"
}
