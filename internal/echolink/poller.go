package echolink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusFailed    = "failed"

	timedOutMessage = "Transaction confirmation timed out"
)

// CheckTransaction returns the status record for txID. A cached record is
// reused only when its status is confirmed; anything else is re-fetched.
// 200 and 202 responses overwrite the cache entry.
func (c *Client) CheckTransaction(ctx context.Context, txID string) Result {
	if rec, ok := c.confirmedFromCache(ctx, txID); ok {
		return rec
	}

	status, data := c.do(ctx, http.MethodGet, pathTransactions+url.PathEscape(txID), nil, nil, false)
	if status == http.StatusOK || status == http.StatusAccepted {
		c.cache.Put(ctx, txID, data)
	}
	return data
}

func (c *Client) confirmedFromCache(ctx context.Context, txID string) (Result, bool) {
	rec, ok := c.cache.Get(ctx, txID)
	if !ok || Result(rec).Status() != StatusConfirmed {
		return nil, false
	}
	return Result(rec), true
}

// WaitForTransaction polls txID every PollInterval until it is confirmed or
// failed, or until timeout has elapsed (timeout <= 0 uses PollTimeout).
//
// Transport errors and unknown statuses are retried until the deadline, so a
// persistent outage surfaces as a timeout. Cancelling ctx stops the wait
// and returns {"error": ctx.Err(), "tx_hash": txID}.
func (c *Client) WaitForTransaction(ctx context.Context, txID string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = c.pollTimeout
	}
	start := c.now()
	log := c.log.With(zap.String("tx", txID))
	log.Info("waiting for transaction confirmation", zap.Duration("timeout", timeout))

	for attempt := 1; ; attempt++ {
		if rec, ok := c.confirmedFromCache(ctx, txID); ok {
			log.Info("transaction confirmed (cached)")
			return rec
		}
		elapsed := c.now().Sub(start)
		if elapsed >= timeout {
			log.Warn("transaction confirmation timeout", zap.Duration("elapsed", elapsed), zap.Int("attempts", attempt-1))
			return Result{"error": timedOutMessage, "tx_hash": txID}
		}

		res := c.CheckTransaction(ctx, txID)
		switch res.Status() {
		case StatusConfirmed:
			log.Info("transaction confirmed", zap.Int("attempts", attempt))
			return res
		case StatusFailed:
			log.Warn("transaction failed", zap.Int("attempts", attempt))
			return res
		}
		log.Debug("transaction not final",
			zap.Int("attempt", attempt),
			zap.String("status", res.Status()),
			zap.String("error", res.Err()),
			zap.Duration("elapsed", elapsed),
		)

		timer := time.NewTimer(c.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			log.Warn("transaction wait cancelled", zap.Error(ctx.Err()))
			return Result{"error": ctx.Err().Error(), "tx_hash": txID}
		case <-timer.C:
		}
	}
}

// CreateAgentAndWait creates an agent and blocks until its creation
// transaction resolves. The final status is written into
// result["transaction"]["status"].
func (c *Client) CreateAgentAndWait(ctx context.Context, name, purpose string) Result {
	res := c.CreateAgent(ctx, name, purpose)

	tx := res.Map("transaction")
	if tx == nil || tx["id"] == nil {
		return failWith(res, "Failed to create agent")
	}
	txID := fmt.Sprint(tx["id"])

	final := c.WaitForTransaction(ctx, txID, 0)
	status := final.Status()
	if status == "" {
		status = "unknown"
	}
	tx["status"] = status
	return res
}
