// Package echolink is a client for the EchoLink AI-agent API.
//
// Authenticated calls carry an EIP-191 signature over a timestamped message.
// Agent creation is asynchronous on the server: the client receives a
// transaction id and can poll it to a terminal status with
// WaitForTransaction.
package echolink

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/0gfoundation/echolink-client/internal/auth"
	"github.com/0gfoundation/echolink-client/internal/txcache"
)

const (
	DefaultBaseURL      = "http://localhost:5000"
	DefaultPollInterval = 5 * time.Second
	DefaultPollTimeout  = 300 * time.Second
	DefaultHTTPTimeout  = 30 * time.Second
)

// Options configures a Client. Zero values select the defaults above.
type Options struct {
	BaseURL    string
	Identity   auth.Identity
	HTTPClient *http.Client
	Logger     *zap.Logger
	Cache      txcache.Cache

	PollInterval time.Duration
	PollTimeout  time.Duration

	// StrictAuth fails authenticated calls locally when no Identity is set,
	// instead of sending them unsigned and letting the server reject them.
	StrictAuth bool

	// Clock is used for auth timestamps and poll deadlines.
	Clock func() time.Time
}

// Client talks to one EchoLink API endpoint on behalf of one identity.
// It is safe for concurrent use.
type Client struct {
	baseURL  string
	identity auth.Identity
	http     *http.Client
	log      *zap.Logger
	cache    txcache.Cache
	now      func() time.Time

	pollInterval time.Duration
	pollTimeout  time.Duration
	strictAuth   bool

	mu      sync.Mutex
	history []Exchange
}

func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		identity:     opts.Identity,
		http:         opts.HTTPClient,
		log:          opts.Logger,
		cache:        opts.Cache,
		now:          opts.Clock,
		pollInterval: opts.PollInterval,
		pollTimeout:  opts.PollTimeout,
		strictAuth:   opts.StrictAuth,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.cache == nil {
		c.cache = txcache.NewMemory()
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.pollTimeout <= 0 {
		c.pollTimeout = DefaultPollTimeout
	}
	if c.identity != nil {
		c.log.Info("initialized with account", zap.String("address", c.identity.Address().Hex()))
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Address returns the wallet address of the configured identity, or "".
func (c *Client) Address() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.Address().Hex()
}
