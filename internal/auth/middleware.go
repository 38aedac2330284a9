package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextWallet is the gin context key holding the verified wallet address.
const ContextWallet = "wallet_address"

// Middleware returns a Gin handler that validates EchoLink wallet signatures.
// window bounds the accepted clock drift; zero means DefaultWindow.
func Middleware(window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if window <= 0 {
		window = DefaultWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		sh, err := ParseHeaders(c.Request.Header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		wallet, err := Verify(sh, time.Now(), window)
		if err != nil {
			log.Debug("auth rejected",
				zap.String("address", sh.Address),
				zap.Int64("timestamp", sh.Timestamp),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set(ContextWallet, wallet)
		c.Next()
	}
}
