package auth

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Identity proves control of a wallet address by signing messages.
// Implementations may keep the key anywhere (memory, HSM, remote signer).
type Identity interface {
	Address() common.Address
	SignMessage(msg []byte) ([]byte, error)
}

// Key is an in-memory secp256k1 Identity.
type Key struct {
	priv *ecdsa.PrivateKey
	addr common.Address
}

// NewKey parses a 32-byte hex private key, with or without the "0x" prefix.
func NewKey(hexKey string) (*Key, error) {
	keyHex := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if keyHex == "" {
		return nil, errors.New("empty private key")
	}
	if len(keyHex) != 64 {
		return nil, fmt.Errorf("private key must be a 32-byte hex string (got %d chars)", len(keyHex))
	}
	priv, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return KeyFromECDSA(priv), nil
}

// GenerateKey returns a fresh random Key.
func GenerateKey() (*Key, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	return KeyFromECDSA(priv), nil
}

func KeyFromECDSA(priv *ecdsa.PrivateKey) *Key {
	return &Key{priv: priv, addr: crypto.PubkeyToAddress(priv.PublicKey)}
}

func (k *Key) Address() common.Address { return k.addr }

func (k *Key) SignMessage(msg []byte) ([]byte, error) {
	return SignMessage(msg, k.priv)
}
