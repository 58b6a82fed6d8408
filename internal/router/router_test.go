package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhijit-arora/cockatiel-companion/internal/middleware"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/repositories"
	"github.com/abhijit-arora/cockatiel-companion/pkg/config"
	"github.com/abhijit-arora/cockatiel-companion/pkg/docstore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/logger"
	"github.com/abhijit-arora/cockatiel-companion/pkg/mediastore"
	"github.com/abhijit-arora/cockatiel-companion/pkg/push"
)

const eventSecret = "event-secret"

type fakeVerifier map[string]*auth.Token

func (f fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*auth.Token, error) {
	if tok, ok := f[idToken]; ok {
		return tok, nil
	}
	return nil, errors.New("token rejected")
}

func setupTestServer(t *testing.T, cfg *config.Config) (*echo.Echo, *docstore.MemoryStore) {
	t.Helper()
	store := docstore.NewMemory()
	e, _ := NewEcho(Dependencies{
		Config: cfg,
		Store:  store,
		Media:  mediastore.NewMemory("bucket"),
		Push:   push.Noop{},
		Verifier: fakeVerifier{
			"guardian-token": {UID: "g1", Claims: map[string]interface{}{"email": "guardian@example.com"}},
			"carer-token":    {UID: "c1", Claims: map[string]interface{}{"email": "carer@example.com"}},
		},
		Log: logger.Discard(),
	})
	return e, store
}

func defaultConfig() *config.Config {
	return &config.Config{StoreBackend: config.BackendMemory, EventPushToken: eventSecret}
}

func call(e *echo.Echo, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Result map[string]any `json:"result"`
	Error  *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestHealth(t *testing.T) {
	e, _ := setupTestServer(t, defaultConfig())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestCallable_SetAviaryName(t *testing.T) {
	e, store := setupTestServer(t, defaultConfig())

	rec := call(e, "/setAviaryName", "guardian-token", `{"data":{"aviaryName":"  Sunny Loft "}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"success": true, "aviaryName": "Sunny Loft"}, decode(t, rec).Result)

	snap, err := store.Get(context.Background(), repositories.AviaryRef("g1"))
	require.NoError(t, err)
	assert.Equal(t, "Sunny Loft", snap.StringField("aviaryName"))

	rec = call(e, "/setAviaryName", "carer-token", `{"data":{"aviaryName":"Sunny Loft"}}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "ALREADY_EXISTS", body.Error.Status)
	assert.Equal(t, "This Aviary name is already taken. Please choose another.", body.Error.Message)
}

func TestCallable_Errors(t *testing.T) {
	e, store := setupTestServer(t, defaultConfig())
	require.NoError(t, store.Create(context.Background(), repositories.InvitationRef("inv1"), docstore.Fields{
		"aviaryOwnerId": "g1", "inviteeEmail": "someone@example.com", "status": models.InvitationPending,
	}))

	tests := []struct {
		name    string
		path    string
		token   string
		body    string
		status  int
		code    string
		message string
	}{
		{
			name: "no token", path: "/toggleFeedPostLike", body: `{"data":{"postId":"p1"}}`,
			status: http.StatusUnauthorized, code: "UNAUTHENTICATED", message: "You must be logged in to perform this action.",
		},
		{
			name: "bad token", path: "/toggleFeedPostLike", token: "forged", body: `{"data":{"postId":"p1"}}`,
			status: http.StatusUnauthorized, code: "UNAUTHENTICATED", message: "Invalid or expired ID token",
		},
		{
			name: "missing field", path: "/acceptInvitation", token: "carer-token", body: `{"data":{}}`,
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT", message: "invitationId is required.",
		},
		{
			name: "malformed body", path: "/acceptInvitation", token: "carer-token", body: `{"data":`,
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT", message: "Request body must be a JSON object with a data field.",
		},
		{
			name: "invalid name", path: "/setAviaryName", token: "guardian-token", body: `{"data":{"aviaryName":"ab"}}`,
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT", message: "Aviary name must be between 3 and 25 characters.",
		},
		{
			name: "not found", path: "/toggleFeedPostLike", token: "carer-token", body: `{"data":{"postId":"p1"}}`,
			status: http.StatusNotFound, code: "NOT_FOUND", message: "Post not found.",
		},
		{
			name: "wrong invitee", path: "/acceptInvitation", token: "carer-token", body: `{"data":{"invitationId":"inv1"}}`,
			status: http.StatusBadRequest, code: "FAILED_PRECONDITION", message: "This invitation is not valid.",
		},
		{
			name: "bad report type", path: "/reportContent", token: "carer-token", body: `{"data":{"contentId":"x","contentType":"story","reason":"spam"}}`,
			status: http.StatusBadRequest, code: "INVALID_ARGUMENT", message: "contentType must be one of: chirp reply feedPost comment.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := call(e, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			require.NotNil(t, body.Error, rec.Body.String())
			assert.Equal(t, tt.code, body.Error.Status)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestCallable_FeedFlow(t *testing.T) {
	e, _ := setupTestServer(t, defaultConfig())

	rec := call(e, "/createFeedPost", "guardian-token", `{"data":{"body":"Morning #birds"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	postID, _ := decode(t, rec).Result["id"].(string)
	require.NotEmpty(t, postID)

	rec = call(e, "/toggleFeedPostLike", "carer-token", `{"data":{"postId":"`+postID+`"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]any{"active": true, "count": float64(1)}, decode(t, rec).Result)

	rec = call(e, "/deleteFeedPost", "carer-token", `{"data":{"postId":"`+postID+`"}}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "PERMISSION_DENIED", decode(t, rec).Error.Status)

	rec = call(e, "/deleteFeedPost", "guardian-token", `{"data":{"postId":"`+postID+`"}}`)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestCallable_RateLimited(t *testing.T) {
	cfg := defaultConfig()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	e, _ := setupTestServer(t, cfg)

	rec := call(e, "/toggleFeedPostLike", "carer-token", `{"data":{"postId":"p1"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(e, "/toggleFeedPostLike", "carer-token", `{"data":{"postId":"p1"}}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "RESOURCE_EXHAUSTED", body.Error.Status)

	// Limits are per caller.
	rec = call(e, "/toggleFeedPostLike", "guardian-token", `{"data":{"postId":"p1"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func eventToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{middleware.EventAudience},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(eventSecret))
	require.NoError(t, err)
	return token
}

func TestEvents_ImageLabelPush(t *testing.T) {
	e, store := setupTestServer(t, defaultConfig())
	ref := repositories.ImageLabelRef("l1")
	require.NoError(t, store.Create(context.Background(), ref, docstore.Fields{
		"gcsUrl":           "gs://bucket/a.jpg",
		"labelAnnotations": []any{map[string]any{"description": "Bird", "score": 0.97}},
	}))

	rec := call(e, "/events/imageLabels", "", `{"id":"l1"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(e, "/events/imageLabels", eventToken(t), `{"id":"l1"}`)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	snap, err := store.Get(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, models.ModerationApproved, snap.StringField("moderationStatus"))

	rec = call(e, "/events/imageLabels", eventToken(t), `{"id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEvents_DisabledWithoutSecret(t *testing.T) {
	cfg := defaultConfig()
	cfg.EventPushToken = ""
	e, _ := setupTestServer(t, cfg)

	rec := call(e, "/events/imageLabels", "", `{"id":"l1"}`)
	assert.NotEqual(t, http.StatusNoContent, rec.Code)
}
