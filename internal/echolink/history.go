package echolink

import "time"

// Exchange is one chat round trip.
type Exchange struct {
	User      string    `json:"user"`
	Agent     string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Client) appendHistory(user, agent string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, Exchange{User: user, Agent: agent, Timestamp: c.now()})
}

// History returns a copy of the conversation so far, oldest first.
func (c *Client) History() []Exchange {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Exchange, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Client) ClearHistory() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
	c.log.Info("Conversation history cleared")
}
