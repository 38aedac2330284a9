package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testRouter returns a Gin engine with the auth middleware wired up in front
// of a handler that echoes the verified wallet.
func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	r := gin.New()
	r.GET("/test", Middleware(0, nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"wallet": c.GetString(ContextWallet)})
	})
	return r
}

// signedRequest builds a request signed at now+offset.
func signedRequest(t *testing.T, offset time.Duration) (*http.Request, *Key) {
	t.Helper()
	k, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	sh, err := NewSignedHeaders(k, time.Now().Add(offset))
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	sh.Apply(req.Header)
	return req, k
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return resp["error"]
}

func TestMiddleware_ValidRequest(t *testing.T) {
	r := testRouter(t)

	req, k := signedRequest(t, 0)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp) //nolint:errcheck
	if resp["wallet"] != k.Address().Hex() {
		t.Errorf("wallet: got %q want %q", resp["wallet"], k.Address().Hex())
	}
}

func TestMiddleware_MissingHeaders(t *testing.T) {
	r := testRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if got := decodeError(t, w); got != "missing auth headers" {
		t.Errorf("unexpected error: %s", got)
	}
}

func TestMiddleware_Stale(t *testing.T) {
	r := testRouter(t)

	req, _ := signedRequest(t, -10*time.Minute)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeError(t, w); got != "auth timestamp outside allowed window" {
		t.Errorf("unexpected error: %s", got)
	}
}

func TestMiddleware_WrongAddress(t *testing.T) {
	r := testRouter(t)

	req, _ := signedRequest(t, 0)
	req.Header.Set(HeaderAddress, "0x000000000000000000000000000000000000dEaD")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
	if got := decodeError(t, w); got != "invalid signature" {
		t.Errorf("unexpected error: %s", got)
	}
}

// TestMiddleware_TamperedTimestamp re-labels a valid signature with another
// timestamp; the signed message no longer matches.
func TestMiddleware_TamperedTimestamp(t *testing.T) {
	r := testRouter(t)

	req, _ := signedRequest(t, 0)
	ts, _ := strconv.ParseInt(req.Header.Get(HeaderTimestamp), 10, 64)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts+1, 10))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

// Replaying the same headers is accepted while fresh: the protocol has no nonce.
func TestMiddleware_ReplayWithinWindow(t *testing.T) {
	r := testRouter(t)

	req, _ := signedRequest(t, 0)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		replay := httptest.NewRequest(http.MethodGet, "/test", nil)
		replay.Header = req.Header.Clone()
		r.ServeHTTP(w, replay)
		if w.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i, w.Code)
		}
	}
}
