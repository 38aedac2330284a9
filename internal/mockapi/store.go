package mockapi

import (
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

const (
	statusPending   = "pending"
	statusConfirmed = "confirmed"
	statusFailed    = "failed"
)

type agent struct {
	Address   string    `json:"address"`
	Name      string    `json:"name"`
	Purpose   string    `json:"purpose"`
	Owner     string    `json:"owner"`
	TxID      string    `json:"transaction_id"`
	CreatedAt time.Time `json:"created_at"`
}

type transaction struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Agent     string    `json:"agent_address"`
	Polls     int       `json:"polls"`
	CreatedAt time.Time `json:"created_at"`

	willFail bool
}

// store holds agents and their creation transactions in memory.
type store struct {
	confirmAfter int

	mu     sync.Mutex
	agents map[string]*agent // by lower-case address
	txs    map[string]*transaction
}

func newStore(confirmAfter int) *store {
	if confirmAfter < 1 {
		confirmAfter = 1
	}
	return &store{
		confirmAfter: confirmAfter,
		agents:       make(map[string]*agent),
		txs:          make(map[string]*transaction),
	}
}

// createAgent registers an agent owned by owner and returns the agent and its
// pending creation transaction. A purpose mentioning "fail" makes the
// transaction fail instead of confirming.
func (s *store) createAgent(owner, name, purpose string, now time.Time) (agent, transaction) {
	txID := uuid.NewString()
	addr := common.BytesToAddress(crypto.Keccak256([]byte(owner), []byte(name), []byte(txID)))

	a := &agent{
		Address:   addr.Hex(),
		Name:      name,
		Purpose:   purpose,
		Owner:     owner,
		TxID:      txID,
		CreatedAt: now,
	}
	tx := &transaction{
		ID:        txID,
		Status:    statusPending,
		Type:      "create_agent",
		Agent:     a.Address,
		CreatedAt: now,
		willFail:  strings.Contains(strings.ToLower(purpose), "fail"),
	}

	s.mu.Lock()
	s.agents[strings.ToLower(a.Address)] = a
	s.txs[txID] = tx
	s.mu.Unlock()
	return *a, *tx
}

// pollTransaction counts one status query and resolves the transaction once
// it has been polled confirmAfter times.
func (s *store) pollTransaction(id string) (transaction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return transaction{}, false
	}
	tx.Polls++
	if tx.Status == statusPending && tx.Polls >= s.confirmAfter {
		if tx.willFail {
			tx.Status = statusFailed
		} else {
			tx.Status = statusConfirmed
		}
	}
	return *tx, true
}

// agentStatus returns the agent at addr and the status of its creation
// transaction.
func (s *store) agentStatus(addr string) (agent, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[strings.ToLower(addr)]
	if !ok {
		return agent{}, "", false
	}
	status := statusPending
	if tx, ok := s.txs[a.TxID]; ok {
		status = tx.Status
	}
	return *a, status, true
}
