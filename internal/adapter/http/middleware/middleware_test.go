package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"chat-ledger/config"
	"chat-ledger/internal/core/ports"
	"chat-ledger/internal/core/ports/mocks"
	"chat-ledger/internal/service"
	"chat-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testBridge = config.BridgeConfig{
	Key:           "bridge-tg",
	Secret:        "bridge-secret",
	MaxClockDrift: 60 * time.Second,
	NonceTTL:      120 * time.Second,
}

func bridgeRouter(t *testing.T, sigSvc *mocks.MockSignatureService, nonceStore *mocks.MockNonceStore, captured map[string]string) *gin.Engine {
	t.Helper()
	router := gin.New()
	router.POST("/api/v1/transfers", BridgeAuth(testBridge, sigSvc, nonceStore, zerolog.Nop()), func(c *gin.Context) {
		if captured != nil {
			captured[CtxCaller] = c.GetString(CtxCaller)
			captured[CtxCommandID] = c.GetString(CtxCommandID)
		}
		c.JSON(200, gin.H{"ok": true})
	})
	return router
}

func signedRequest(body, caller, nonce string, ts int64, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", bytes.NewBufferString(body))
	req.Header.Set(HeaderBridgeKey, testBridge.Key)
	req.Header.Set(HeaderCaller, caller)
	req.Header.Set(HeaderSignature, signature)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderNonce, nonce)
	return req
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.ErrorCode
}

func TestBridgeAuth_MissingHeaders(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := bridgeRouter(t, mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transfers", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestBridgeAuth_WrongBridgeKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := bridgeRouter(t, mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl), nil)

	req := signedRequest("{}", "bobby", "n-1", time.Now().Unix(), "sig")
	req.Header.Set(HeaderBridgeKey, "someone-else")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_001", errorCode(t, w))
}

func TestBridgeAuth_ExpiredTimestamp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	router := bridgeRouter(t, mocks.NewMockSignatureService(ctrl), mocks.NewMockNonceStore(ctrl), nil)

	req := signedRequest("{}", "bobby", "n-1", time.Now().Add(-120*time.Second).Unix(), "sig")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SEC_003", errorCode(t, w))
}

func signed(body, caller, nonce string, ts int64) ports.SignedRequest {
	return ports.SignedRequest{
		Method:    http.MethodPost,
		Path:      "/api/v1/transfers",
		Timestamp: ts,
		Nonce:     nonce,
		Caller:    caller,
		Body:      []byte(body),
	}
}

func TestBridgeAuth_ReplayedNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nowTs := time.Now().Unix()
	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	gomock.InOrder(
		sigSvc.EXPECT().Verify(signed("{}", "bobby", "n-used", nowTs), "sig").Return(true),
		nonceStore.EXPECT().Consume(gomock.Any(), "bridge-tg", "n-used", "bobby").Return(false, "bobby", nil),
	)

	router := bridgeRouter(t, sigSvc, nonceStore, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("{}", "bobby", "n-used", nowTs, "sig"))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SEC_004", errorCode(t, w))
}

func TestBridgeAuth_InvalidSignatureKeepsNonce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nowTs := time.Now().Unix()
	sigSvc := mocks.NewMockSignatureService(ctrl)
	sigSvc.EXPECT().Verify(signed("{}", "bobby", "n-1", nowTs), "forged").Return(false)
	// No Consume expectation: a forged request must not burn the nonce.
	nonceStore := mocks.NewMockNonceStore(ctrl)

	router := bridgeRouter(t, sigSvc, nonceStore, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("{}", "bobby", "n-1", nowTs, "forged"))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SEC_002", errorCode(t, w))
}

func TestBridgeAuth_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nowTs := time.Now().Unix()
	body := `{"amount":"120","recipient":"@carol_c"}`

	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	sigSvc.EXPECT().Verify(signed(body, "@Bobby", "n-ok", nowTs), "valid_sig").Return(true)
	nonceStore.EXPECT().Consume(gomock.Any(), "bridge-tg", "n-ok", "@Bobby").Return(true, "", nil)

	captured := map[string]string{}
	router := bridgeRouter(t, sigSvc, nonceStore, captured)

	req := signedRequest(body, "@Bobby", "n-ok", nowTs, "valid_sig")
	req.Header.Set(HeaderCommandID, "update-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "@Bobby", captured[CtxCaller])
	assert.Equal(t, "update-42", captured[CtxCommandID])
}

func TestBridgeAuth_NonceStoreDownAllows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	nowTs := time.Now().Unix()
	sigSvc := mocks.NewMockSignatureService(ctrl)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	sigSvc.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(true)
	nonceStore.EXPECT().Consume(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, "", errors.New("redis down"))

	router := bridgeRouter(t, sigSvc, nonceStore, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest("{}", "bobby", "n-1", nowTs, "sig"))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBridgeAuth_RealSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	signer := service.NewBridgeSigner(testBridge.Secret)
	nonceStore := mocks.NewMockNonceStore(ctrl)
	nonceStore.EXPECT().Consume(gomock.Any(), "bridge-tg", "n-real", "bobby").Return(true, "", nil)

	router := gin.New()
	router.POST("/api/v1/transfers", BridgeAuth(testBridge, signer, nonceStore, zerolog.Nop()), func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		require.NoError(t, err)
		c.String(http.StatusOK, string(b))
	})

	nowTs := time.Now().Unix()
	body := `{"amount":"5","recipient":"carol_c"}`
	sig := signer.Sign(signed(body, "bobby", "n-real", nowTs))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(body, "bobby", "n-real", nowTs, sig))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String(), "body is restored for the handler")

	// Same nonce, different caller: the signature no longer matches.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, signedRequest(body, "carol_c", "n-real", nowTs, sig))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		response.OK(c, nil)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "req-from-bridge")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-from-bridge", w.Header().Get(HeaderRequestID))
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "req-from-bridge", resp.RequestID)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestRecovery_PanicRecovered(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("something went wrong")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "SYS_001", errorCode(t, w))
}

func TestMaxBodySize(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/test", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("hello world")))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello world", w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(strings.Repeat("A", 100))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
