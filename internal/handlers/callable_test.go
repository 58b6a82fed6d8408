package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/middleware"
	"github.com/abhijit-arora/cockatiel-companion/internal/models"
	"github.com/abhijit-arora/cockatiel-companion/internal/validation"
	"github.com/abhijit-arora/cockatiel-companion/pkg/logger"
)

func TestToCallableError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   domainerrors.Code
		msg    string
	}{
		{"domain", domainerrors.NotFound("Post not found."), http.StatusNotFound, domainerrors.CodeNotFound, "Post not found."},
		{"failed precondition", domainerrors.FailedPrecondition("No."), http.StatusBadRequest, domainerrors.CodeFailedPrecondition, "No."},
		{"internal hides cause", domainerrors.Internal("Something went wrong. Please try again.", errors.New("db down")), http.StatusInternalServerError, domainerrors.CodeInternal, "Something went wrong. Please try again."},
		{"echo unauthorized", echo.NewHTTPError(http.StatusUnauthorized, "Missing token"), http.StatusUnauthorized, domainerrors.CodeUnauthenticated, "Missing token"},
		{"echo rate limit", echo.NewHTTPError(http.StatusTooManyRequests, "Slow down"), http.StatusTooManyRequests, domainerrors.CodeResourceExhausted, "Slow down"},
		{"echo route", echo.ErrNotFound, http.StatusNotFound, domainerrors.CodeNotFound, "Not Found"},
		{"echo internal", echo.NewHTTPError(http.StatusBadGateway, "upstream said x"), http.StatusBadGateway, domainerrors.CodeInternal, "Bad Gateway"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, domainerrors.CodeInternal, "Internal error."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, status := toCallableError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Status)
			assert.Equal(t, tt.msg, body.Message)
		})
	}
}

func newContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = validation.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestBindData(t *testing.T) {
	c, _ := newContext(`{"data":{"postId":"p1","commentId":"m1"}}`)
	var req models.CommentRequest
	require.NoError(t, bindData(c, &req))
	assert.Equal(t, models.CommentRequest{PostID: "p1", CommentID: "m1"}, req)

	c, _ = newContext(`{"data":{"postId":"p1"}}`)
	err := bindData(c, &models.CommentRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
	assert.Equal(t, "commentId is required.", err.Error())

	c, _ = newContext(`{"data":{"postId":42}}`)
	err = bindData(c, &models.FeedPostRequest{})
	assert.Equal(t, "Request data has the wrong shape.", err.Error())

	c, _ = newContext(``)
	err = bindData(c, &models.FeedPostRequest{})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidArgument)
}

func TestErrorHandler_WritesEnvelope(t *testing.T) {
	c, rec := newContext(``)
	ErrorHandler(logger.Discard())(domainerrors.PermissionDenied("You can only delete your own posts."), c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":{"status":"PERMISSION_DENIED","message":"You can only delete your own posts."}}`, rec.Body.String())
}

func TestCallerFrom(t *testing.T) {
	c, _ := newContext(``)
	c.Set(middleware.ContextUID, "u1")
	c.Set(middleware.ContextEmail, "u1@example.com")

	caller := callerFrom(c)
	assert.Equal(t, "u1", caller.UID)
	assert.Equal(t, "u1@example.com", caller.Email)
}
