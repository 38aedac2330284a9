package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/0gfoundation/echolink-client/internal/auth"
	"github.com/0gfoundation/echolink-client/internal/chain"
	"github.com/0gfoundation/echolink-client/internal/config"
	"github.com/0gfoundation/echolink-client/internal/console"
	"github.com/0gfoundation/echolink-client/internal/echolink"
	"github.com/0gfoundation/echolink-client/internal/logger"
	"github.com/0gfoundation/echolink-client/internal/txcache"
)

// newApp builds the CLI. stdin feeds the console and key prompt; results are
// written to stdout as indented JSON.
func newApp(stdin io.Reader, stdout io.Writer) *cli.App {
	r := &runner{stdin: stdin, stdout: stdout}
	return &cli.App{
		Name:      "echolink",
		Usage:     "EchoLink AI API client",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Description: `Talks to an EchoLink API node with wallet-signed requests.

Run a single action with --health, --balance, --chat or --create, or start
the interactive console with --console.`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "API base URL (overrides EV8_API_URL)"},
			&cli.StringFlag{Name: "key", Usage: "Ethereum private key (overrides PRIVATE_KEY)"},
			&cli.StringFlag{Name: "env", Usage: "path to .env file"},
			&cli.BoolFlag{Name: "noenv", Usage: "don't load a .env file or prompt for a key"},
			&cli.BoolFlag{Name: "console", Usage: "start interactive console"},
			&cli.BoolFlag{Name: "health", Usage: "check API health"},
			&cli.BoolFlag{Name: "balance", Usage: "check balance"},
			&cli.StringFlag{Name: "chat", Usage: "send a chat message"},
			&cli.StringFlag{Name: "create", Usage: "create an agent with the given name"},
			&cli.StringFlag{Name: "purpose", Usage: "purpose for agent creation"},
			&cli.DurationFlag{Name: "timeout", Usage: "transaction confirmation timeout"},
			&cli.DurationFlag{Name: "poll-interval", Usage: "transaction poll interval"},
			&cli.StringFlag{Name: "rpc-url", Usage: "EVM JSON-RPC URL for on-chain checks (overrides RPC_URL)"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-file", Usage: "rotating JSON log file (overrides LOG_FILE)"},
		},
		Before: r.setup,
		After:  r.teardown,
		Action: r.root,
		Commands: []*cli.Command{
			{
				Name:      "check-tx",
				Usage:     "Show the status of a transaction",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "wait", Usage: "poll until confirmed, failed or timed out"},
				},
				Action: r.checkTx,
			},
			{
				Name:      "check-agent",
				Usage:     "Show the status of an agent",
				ArgsUsage: "<address>",
				Action:    r.checkAgent,
			},
			{
				Name:   "config",
				Usage:  "Show the API configuration",
				Action: r.showConfig,
			},
			{
				Name:      "verify-tx",
				Usage:     "Look up a transaction receipt on chain",
				ArgsUsage: "<hash>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "api-id", Usage: "also compare with the API status of this transaction id"},
				},
				Action: r.verifyTx,
			},
			{
				Name:   "wallet",
				Usage:  "Show the signing address and, with an RPC URL, its native balance",
				Action: r.wallet,
			},
		},
	}
}

// runner holds the state shared by the root action and subcommands.
type runner struct {
	stdin  io.Reader
	stdout io.Writer

	cfg    *config.Config
	log    *zap.Logger
	client *echolink.Client
	rdb    *redis.Client
	noEnv  bool
}

func (r *runner) setup(c *cli.Context) error {
	r.noEnv = c.Bool("noenv")
	cfg, err := config.Load(c.String("env"), r.noEnv)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(c, cfg)
	r.cfg = cfg

	r.log, err = logger.New(logger.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}

	id, err := r.identity(cfg.API.PrivateKey)
	if err != nil {
		return err
	}

	cache, err := r.cache(c, cfg)
	if err != nil {
		return err
	}

	opts := echolink.Options{
		BaseURL:      cfg.API.URL,
		HTTPClient:   &http.Client{Timeout: cfg.API.HTTPTimeout()},
		Logger:       r.log,
		Cache:        cache,
		PollInterval: durationFlag(c, "poll-interval", cfg.Poll.Interval()),
		PollTimeout:  durationFlag(c, "timeout", cfg.Poll.Timeout()),
		StrictAuth:   cfg.API.StrictAuth,
	}
	if id != nil {
		opts.Identity = id
	}
	r.client = echolink.NewClient(opts)
	return nil
}

func (r *runner) teardown(*cli.Context) error {
	if r.rdb != nil {
		r.rdb.Close() //nolint:errcheck
	}
	if r.log != nil {
		r.log.Sync() //nolint:errcheck
	}
	return nil
}

// applyFlags lets explicit command-line flags win over file and environment.
func applyFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("url") {
		cfg.API.URL = c.String("url")
	}
	if c.IsSet("key") {
		cfg.API.PrivateKey = c.String("key")
	}
	if c.IsSet("rpc-url") {
		cfg.Chain.RPCURL = c.String("rpc-url")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
}

func durationFlag(c *cli.Context, name string, fallback time.Duration) time.Duration {
	if c.IsSet(name) && c.Duration(name) > 0 {
		return c.Duration(name)
	}
	return fallback
}

// identity parses the configured key, prompting on a terminal when none is
// configured and environment loading is enabled.
func (r *runner) identity(hexKey string) (*auth.Key, error) {
	if hexKey == "" && !r.noEnv {
		fmt.Fprintln(os.Stderr, "No private key provided in arguments or environment")
		hexKey = r.promptKey()
	}
	if hexKey == "" {
		return nil, nil
	}
	k, err := auth.NewKey(hexKey)
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	return k, nil
}

func (r *runner) promptKey() string {
	f, ok := r.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return ""
	}
	fmt.Fprint(os.Stderr, "Enter private key: ")
	raw, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		r.log.Warn("reading private key failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func (r *runner) cache(c *cli.Context, cfg *config.Config) (txcache.Cache, error) {
	if cfg.Cache.Backend != "redis" {
		return txcache.NewMemory(), nil
	}
	r.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.RedisAddr,
		Password: cfg.Cache.RedisPassword,
	})
	if err := r.rdb.Ping(c.Context).Err(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Cache.RedisAddr, err)
	}
	rc := txcache.NewRedis(r.rdb, cfg.Cache.Namespace, cfg.Cache.TTL(), r.log)
	r.log.Debug("using redis transaction cache", zap.String("namespace", rc.Namespace()))
	return rc, nil
}

// ── root action ─────────────────────────────────────────────────────────────

func (r *runner) root(c *cli.Context) error {
	ctx := c.Context

	if c.Bool("console") {
		con := console.New(r.client, r.stdin, r.stdout, r.log)
		con.Setup(ctx)
		return con.Run(ctx)
	}

	ran := false
	if c.Bool("health") {
		ran = true
		if err := r.print(r.client.Health(ctx)); err != nil {
			return err
		}
	}
	if c.Bool("balance") {
		ran = true
		if err := r.print(r.client.Balance(ctx)); err != nil {
			return err
		}
	}
	if c.IsSet("chat") {
		ran = true
		if err := r.print(r.client.SendMessage(ctx, c.String("chat"))); err != nil {
			return err
		}
	}
	if c.IsSet("create") {
		ran = true
		if c.String("purpose") == "" {
			return errors.New("--purpose is required for agent creation")
		}
		if err := r.print(r.client.CreateAgentAndWait(ctx, c.String("create"), c.String("purpose"))); err != nil {
			return err
		}
	}
	if !ran {
		return cli.ShowAppHelp(c)
	}
	return nil
}

// ── subcommands ─────────────────────────────────────────────────────────────

func (r *runner) checkTx(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("usage: check-tx <id>")
	}
	if c.Bool("wait") {
		return r.print(r.client.WaitForTransaction(c.Context, id, 0))
	}
	return r.print(r.client.CheckTransaction(c.Context, id))
}

func (r *runner) checkAgent(c *cli.Context) error {
	addr := c.Args().First()
	if addr == "" {
		return errors.New("usage: check-agent <address>")
	}
	return r.print(r.client.AgentStatus(c.Context, addr))
}

func (r *runner) showConfig(c *cli.Context) error {
	return r.print(r.client.Config(c.Context))
}

func (r *runner) verifyTx(c *cli.Context) error {
	hash := c.Args().First()
	if hash == "" {
		return errors.New("usage: verify-tx <hash>")
	}
	ch, err := r.chain(c)
	if err != nil {
		return err
	}
	defer ch.Close()

	status, err := ch.ReceiptStatus(c.Context, hash)
	if err != nil {
		return err
	}
	out := map[string]any{"tx_hash": hash, "chain_status": status}

	if apiID := c.String("api-id"); apiID != "" {
		api := r.client.CheckTransaction(c.Context, apiID)
		if api.Failed() {
			out["api_error"] = api.Err()
		} else {
			out["api_status"] = api.Status()
			out["match"] = api.Status() == status
		}
	}
	return r.print(out)
}

func (r *runner) wallet(c *cli.Context) error {
	out := map[string]any{"api_url": r.client.BaseURL()}
	addr := r.client.Address()
	if addr == "" {
		out["address"] = nil
		return r.print(out)
	}
	out["address"] = addr

	if r.cfg.Chain.RPCURL == "" {
		return r.print(out)
	}
	ch, err := r.chain(c)
	if err != nil {
		return err
	}
	defer ch.Close()

	id, block, err := ch.Head(c.Context)
	if err != nil {
		return err
	}
	wei, err := ch.NativeBalance(c.Context, common.HexToAddress(addr))
	if err != nil {
		return err
	}
	out["chain_id"] = id.String()
	out["block"] = block
	out["balance_wei"] = wei.String()
	out["balance"] = chain.FormatEther(wei)
	return r.print(out)
}

func (r *runner) chain(c *cli.Context) (*chain.Client, error) {
	url := r.cfg.Chain.RPCURL
	if url == "" {
		return nil, errors.New("an RPC URL is required (--rpc-url or RPC_URL)")
	}
	return chain.Dial(c.Context, url)
}

func (r *runner) print(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = fmt.Fprintf(r.stdout, "%s\n", raw)
	return err
}
