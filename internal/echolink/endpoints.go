package echolink

import (
	"context"
	"net/http"
	"net/url"
	"unicode/utf8"
)

const (
	pathHealth       = "/api/v1/health"
	pathBalance      = "/api/v1/balance"
	pathAgents       = "/api/v1/agents"
	pathChat         = "/api/v1/chat"
	pathTransactions = "/api/v1/transactions/"
	pathAgentStatus  = "/api/v1/agent/status"
	pathConfig       = "/api/v1/config"

	MaxMessageLength = 2000
)

// Health returns network, block_height and provider of the API node.
func (c *Client) Health(ctx context.Context) Result {
	status, data := c.do(ctx, http.MethodGet, pathHealth, nil, nil, false)
	if status != http.StatusOK {
		return failWith(data, "Failed to get health status")
	}
	return data
}

// Balance returns ethBalance, ekoBalance and network for the signing wallet.
func (c *Client) Balance(ctx context.Context) Result {
	status, data := c.do(ctx, http.MethodGet, pathBalance, nil, nil, true)
	if status != http.StatusOK {
		return failWith(data, "Failed to get balance")
	}
	return data
}

// CreateAgent submits an agent creation. On success the result holds the
// pending transaction under "transaction".
func (c *Client) CreateAgent(ctx context.Context, name, purpose string) Result {
	if name == "" || purpose == "" {
		return errorResult("Name and purpose are required")
	}
	body := map[string]string{"name": name, "purpose": purpose}
	status, data := c.do(ctx, http.MethodPost, pathAgents, body, nil, true)
	if status != http.StatusAccepted {
		return failWith(data, "Failed to create agent")
	}
	return data
}

// SendMessage sends a chat message of 1 to 2000 characters and records the
// exchange in the conversation history on success.
func (c *Client) SendMessage(ctx context.Context, message string) Result {
	n := utf8.RuneCountInString(message)
	if n == 0 || n > MaxMessageLength {
		return errorResult("Message must be between 1 and 2000 characters")
	}
	status, data := c.do(ctx, http.MethodPost, pathChat, map[string]string{"message": message}, nil, true)
	if status != http.StatusOK {
		return failWith(data, "Failed to send message")
	}
	c.appendHistory(message, data.String("response"))
	return data
}

// AgentStatus looks up an agent by its address.
func (c *Client) AgentStatus(ctx context.Context, agentAddress string) Result {
	q := url.Values{"address": []string{agentAddress}}
	status, data := c.do(ctx, http.MethodGet, pathAgentStatus, nil, q, true)
	if status != http.StatusOK {
		return failWith(data, "Failed to check agent status")
	}
	return data
}

// Config returns the server configuration snapshot.
func (c *Client) Config(ctx context.Context) Result {
	status, data := c.do(ctx, http.MethodGet, pathConfig, nil, nil, false)
	if status != http.StatusOK {
		return failWith(data, "Failed to get API configuration")
	}
	return data
}
