// Package console implements the interactive EV8 command console.
package console

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/0gfoundation/echolink-client/internal/echolink"
)

const (
	Prompt = "EV8> "

	intro = `
Welcome to the EV8 API Client Console
=====================================
Type 'help' to list commands.
Type 'exit' or 'quit' to exit.
`
	maxLine = 1 << 20
)

// API is the client surface the console drives. *echolink.Client satisfies it.
type API interface {
	Health(ctx context.Context) echolink.Result
	Balance(ctx context.Context) echolink.Result
	CreateAgentAndWait(ctx context.Context, name, purpose string) echolink.Result
	SendMessage(ctx context.Context, message string) echolink.Result
	CheckTransaction(ctx context.Context, txID string) echolink.Result
	AgentStatus(ctx context.Context, agentAddress string) echolink.Result
	Config(ctx context.Context) echolink.Result
	History() []echolink.Exchange
	ClearHistory()
}

type Console struct {
	api API
	in  *bufio.Scanner
	out io.Writer
	log *zap.Logger
}

type command struct {
	help string
	run  func(c *Console, ctx context.Context, arg string) (stop bool)
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"health":        {"Check API health status", (*Console).doHealth},
		"balance":       {"Show ETH and EKO balance", (*Console).doBalance},
		"create_agent":  {"create_agent <name>: create an AI agent and wait for confirmation", (*Console).doCreateAgent},
		"chat":          {"chat <message>: send one message to the agent", (*Console).doChat},
		"interactive":   {"Start an interactive chat session", (*Console).doInteractive},
		"check_tx":      {"check_tx <id>: show transaction status", (*Console).doCheckTx},
		"check_agent":   {"check_agent <address>: show agent status", (*Console).doCheckAgent},
		"config":        {"Show API configuration", (*Console).doConfig},
		"history":       {"Show conversation history", (*Console).doHistory},
		"clear_history": {"Clear conversation history", (*Console).doClearHistory},
		"help":          {"List commands", (*Console).doHelp},
		"exit":          {"Exit the console", (*Console).doExit},
		"quit":          {"Exit the console", (*Console).doExit},
	}
}

func New(api API, in io.Reader, out io.Writer, log *zap.Logger) *Console {
	if log == nil {
		log = zap.NewNop()
	}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Console{api: api, in: sc, out: out, log: log}
}

// Setup runs a health check and reports the connected network.
func (c *Console) Setup(ctx context.Context) bool {
	health := c.api.Health(ctx)
	if health.Failed() {
		c.printf("Failed to connect to API: %s\n", health.Err())
		return false
	}
	c.printf("Connected to EchoLink API\n")
	c.printf("Network: %s\n", field(health, "network"))
	c.printf("Block: %s\n", field(health, "block_height"))
	c.printf("AI Provider: %s\n", field(health, "provider"))
	return true
}

// Run reads commands until exit, quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context) error {
	c.printf("%s\n", intro)
	for ctx.Err() == nil {
		c.printf("%s", Prompt)
		line, ok := c.readLine()
		if !ok {
			c.printf("\n")
			break
		}
		if c.Exec(ctx, line) {
			break
		}
	}
	if err := c.in.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}

// Exec runs one command line and reports whether the console should stop.
func (c *Console) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if line == "EOF" {
		return true
	}
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	cmd, ok := commands[name]
	if !ok {
		c.printf("Unknown command: %s\n", line)
		c.printf("Type 'help' for a list of commands.\n")
		return false
	}
	c.log.Debug("console command", zap.String("command", name))
	return cmd.run(c, ctx, arg)
}

func (c *Console) doHealth(ctx context.Context, _ string) bool {
	c.printResult(c.api.Health(ctx))
	return false
}

func (c *Console) doBalance(ctx context.Context, _ string) bool {
	res := c.api.Balance(ctx)
	if res.Failed() {
		c.printf("Error: %s\n", res.Err())
		return false
	}
	network := field(res, "network")

	c.printf("Account Balance\n")
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Token", "Balance", "Network"})
	table.Append([]string{"ETH", fmt.Sprintf("%.6f", number(res["ethBalance"])), network})
	table.Append([]string{"EKO", fmt.Sprintf("%.4f", number(res["ekoBalance"])), network})
	table.Render()
	return false
}

func (c *Console) doCreateAgent(ctx context.Context, name string) bool {
	if name == "" {
		c.printf("Usage: create_agent <agent_name>\n")
		return false
	}
	c.printf("Enter agent purpose (what should this AI agent help with?):\n")
	c.printf("Finish with a line containing only '.' or Ctrl+D\n")

	var lines []string
	for {
		line, ok := c.readLine()
		if !ok || strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	purpose := strings.Join(lines, "\n")

	c.printf("Creating agent: %s\n", name)
	c.printResult(c.api.CreateAgentAndWait(ctx, name, purpose))
	return false
}

func (c *Console) doChat(ctx context.Context, msg string) bool {
	if msg == "" {
		c.printf("Usage: chat <message>\n")
		return false
	}
	res := c.api.SendMessage(ctx, msg)
	if res.Failed() {
		c.printf("Error: %s\n", res.Err())
		return false
	}
	c.printAgentResponse(res)
	return false
}

func (c *Console) doInteractive(ctx context.Context, _ string) bool {
	c.printf("Starting interactive chat session\n")
	c.printf("Type 'exit' or press Ctrl+D to end the session\n")
	for ctx.Err() == nil {
		c.printf("\nYou: ")
		msg, ok := c.readLine()
		if !ok {
			break
		}
		switch strings.ToLower(strings.TrimSpace(msg)) {
		case "exit", "quit":
			c.printf("Ending chat session\n")
			return false
		}
		res := c.api.SendMessage(ctx, msg)
		if res.Failed() {
			c.printf("\nError: %s\n", res.Err())
			continue
		}
		c.printf("\nAgent:\n%s\n", responseText(res))
	}
	c.printf("\nEnding chat session\n")
	return false
}

func (c *Console) doCheckTx(ctx context.Context, id string) bool {
	if id == "" {
		c.printf("Usage: check_tx <tx_hash>\n")
		return false
	}
	c.printResult(c.api.CheckTransaction(ctx, id))
	return false
}

func (c *Console) doCheckAgent(ctx context.Context, addr string) bool {
	if addr == "" {
		c.printf("Usage: check_agent <agent_address>\n")
		return false
	}
	c.printResult(c.api.AgentStatus(ctx, addr))
	return false
}

func (c *Console) doConfig(ctx context.Context, _ string) bool {
	c.printResult(c.api.Config(ctx))
	return false
}

func (c *Console) doHistory(_ context.Context, _ string) bool {
	history := c.api.History()
	if len(history) == 0 {
		c.printf("No conversation history found\n")
		return false
	}
	for i, ex := range history {
		c.printf("\n--- Message %d ---\n", i+1)
		c.printf("You: %s\n", ex.User)
		c.printf("Agent: %s\n", ex.Agent)
		c.printf("Time: %s\n", ex.Timestamp.Format("2006-01-02T15:04:05"))
	}
	return false
}

func (c *Console) doClearHistory(_ context.Context, _ string) bool {
	c.api.ClearHistory()
	c.printf("Conversation history cleared\n")
	return false
}

func (c *Console) doHelp(_ context.Context, _ string) bool {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	c.printf("Commands:\n")
	for _, name := range names {
		c.printf("  %-14s %s\n", name, commands[name].help)
	}
	return false
}

func (c *Console) doExit(_ context.Context, _ string) bool {
	c.printf("Exiting EchoLink console...\n")
	return true
}

// ── output helpers ──────────────────────────────────────────────────────────

func (c *Console) readLine() (string, bool) {
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) printResult(res echolink.Result) {
	if res.Failed() {
		c.printf("Error: %s\n", res.Err())
		return
	}
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		c.printf("%v\n", map[string]any(res))
		return
	}
	c.printf("%s\n", raw)
}

func (c *Console) printAgentResponse(res echolink.Result) {
	c.printf("Agent Response:\n%s\n", responseText(res))
	if meta := res.Map("metadata"); len(meta) > 0 {
		c.printf("Response time: %s\n", field(meta, "response_time"))
		c.printf("Tokens used: %s\n", field(meta, "tokens_used"))
	}
}

func responseText(res echolink.Result) string {
	if s := res.String("response"); s != "" {
		return s
	}
	return "No response"
}

// field renders r[key] for display, "unknown" when absent.
func field(r echolink.Result, key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return "unknown"
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
