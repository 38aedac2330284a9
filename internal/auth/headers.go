package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	HeaderAddress   = "X-Wallet-Address"
	HeaderSignature = "X-Wallet-Signature"
	HeaderTimestamp = "X-Auth-Timestamp"

	messagePrefix = "Authenticate to EchoLink AI: "
)

// DefaultWindow is how far X-Auth-Timestamp may drift from the server clock.
const DefaultWindow = 5 * time.Minute

// SignedHeaders is a time-bound proof of wallet ownership.
// A new value is built for every request.
type SignedHeaders struct {
	Address   string
	Signature string
	Timestamp int64
}

// AuthMessage returns the canonical string signed for timestamp ts.
func AuthMessage(ts int64) string {
	return messagePrefix + strconv.FormatInt(ts, 10)
}

// NewSignedHeaders signs AuthMessage(now.Unix()) with id.
func NewSignedHeaders(id Identity, now time.Time) (SignedHeaders, error) {
	if id == nil {
		return SignedHeaders{}, errors.New("no identity configured")
	}
	ts := now.Unix()
	sig, err := id.SignMessage([]byte(AuthMessage(ts)))
	if err != nil {
		return SignedHeaders{}, fmt.Errorf("sign auth message: %w", err)
	}
	return SignedHeaders{
		Address:   id.Address().Hex(),
		Signature: hexutil.Encode(sig),
		Timestamp: ts,
	}, nil
}

// Apply writes the auth headers and the JSON content type onto h.
func (s SignedHeaders) Apply(h http.Header) {
	h.Set(HeaderSignature, s.Signature)
	h.Set(HeaderAddress, s.Address)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.Timestamp, 10))
	h.Set("Content-Type", "application/json")
}

// ParseHeaders reads SignedHeaders back out of a request header set.
func ParseHeaders(h http.Header) (SignedHeaders, error) {
	addr := h.Get(HeaderAddress)
	sig := h.Get(HeaderSignature)
	tsRaw := h.Get(HeaderTimestamp)
	if addr == "" || sig == "" || tsRaw == "" {
		return SignedHeaders{}, errors.New("missing auth headers")
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return SignedHeaders{}, errors.New("invalid auth timestamp")
	}
	return SignedHeaders{Address: addr, Signature: sig, Timestamp: ts}, nil
}

// Verify checks freshness against now and that the signature recovers to
// the claimed address. It returns the recovered address on success.
func Verify(s SignedHeaders, now time.Time, window time.Duration) (string, error) {
	drift := now.Unix() - s.Timestamp
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(window.Seconds()) {
		return "", errors.New("auth timestamp outside allowed window")
	}

	sig, err := hexutil.Decode(ensure0x(s.Signature))
	if err != nil {
		return "", errors.New("invalid signature hex")
	}
	recovered, err := Recover([]byte(AuthMessage(s.Timestamp)), sig)
	if err != nil {
		return "", errors.New("invalid signature")
	}
	if !strings.EqualFold(recovered.Hex(), s.Address) {
		return "", errors.New("invalid signature")
	}
	return recovered.Hex(), nil
}

func ensure0x(s string) string {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return "0x" + s[2:]
	}
	return "0x" + s
}
