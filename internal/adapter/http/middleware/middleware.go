package middleware

import (
	"bytes"
	"crypto/subtle"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"chat-ledger/config"
	"chat-ledger/internal/core/ports"
	"chat-ledger/pkg/apperror"
	"chat-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// Header names for bridge authentication
	HeaderBridgeKey = "X-Bridge-Key"
	HeaderCaller    = "X-Caller"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
	HeaderNonce     = "X-Nonce"
	HeaderCommandID = "X-Command-ID"
	HeaderRequestID = "X-Request-ID"

	// Context keys
	CtxCaller    = "caller"
	CtxCommandID = "command_id"
)

// BridgeAuth verifies that a request was signed by the chat bridge.
// Pipeline: check key -> check timestamp -> verify signature -> consume nonce.
// Only a correctly signed request can spend a nonce. On success the forwarded
// caller handle and command id are put in the context.
func BridgeAuth(
	cfg config.BridgeConfig,
	signer ports.SignatureService,
	nonceStore ports.NonceStore,
	log zerolog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		bridgeKey := c.GetHeader(HeaderBridgeKey)
		caller := c.GetHeader(HeaderCaller)
		signature := c.GetHeader(HeaderSignature)
		timestampStr := c.GetHeader(HeaderTimestamp)
		nonce := c.GetHeader(HeaderNonce)

		if bridgeKey == "" || caller == "" || signature == "" || timestampStr == "" || nonce == "" {
			response.Abort(c, apperror.ErrInvalidBridgeKey())
			return
		}
		if subtle.ConstantTimeCompare([]byte(bridgeKey), []byte(cfg.Key)) != 1 {
			response.Abort(c, apperror.ErrInvalidBridgeKey())
			return
		}

		timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
		if err != nil {
			response.Abort(c, apperror.ErrTimestampExpired())
			return
		}
		if math.Abs(float64(time.Now().Unix()-timestamp)) > cfg.MaxClockDrift.Seconds() {
			response.Abort(c, apperror.ErrTimestampExpired())
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.Abort(c, apperror.Validation("cannot read request body"))
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		req := ports.SignedRequest{
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			Timestamp: timestamp,
			Nonce:     nonce,
			Caller:    caller,
			Body:      bodyBytes,
		}
		if !signer.Verify(req, signature) {
			response.Abort(c, apperror.ErrInvalidSignature())
			return
		}

		fresh, firstCaller, err := nonceStore.Consume(c.Request.Context(), bridgeKey, nonce, caller)
		if err != nil {
			log.Warn().Err(err).Msg("nonce store error, allowing request")
		} else if !fresh {
			log.Warn().
				Str("nonce", nonce).
				Str("caller", caller).
				Str("first_caller", firstCaller).
				Msg("replayed bridge nonce")
			response.Abort(c, apperror.ErrNonceUsed())
			return
		}

		c.Set(CtxCaller, caller)
		c.Set(CtxCommandID, c.GetHeader(HeaderCommandID))
		c.Next()
	}
}

// RequestID assigns every request an id, reusing X-Request-ID when the bridge sends one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.New().String()
		}
		c.Set(response.RequestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// RequestLogger creates a middleware that logs every HTTP request.
func RequestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Str("request_id", c.GetString(response.RequestIDKey)).
			Str("caller", c.GetString(CtxCaller)).
			Msg("http request")
	}
}

// Recovery creates a panic recovery middleware.
func Recovery(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("path", c.Request.URL.Path).Msg("panic recovered")
				response.Abort(c, apperror.New(apperror.CodeStorageFailure, "Internal server error", http.StatusInternalServerError))
			}
		}()
		c.Next()
	}
}

// MaxBodySize limits the request body. A declared length over the limit is
// rejected up front; otherwise the reader fails once the limit is crossed.
func MaxBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatus(http.StatusRequestEntityTooLarge)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
