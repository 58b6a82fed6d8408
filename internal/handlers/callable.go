package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	domainerrors "github.com/abhijit-arora/cockatiel-companion/internal/errors"
	"github.com/abhijit-arora/cockatiel-companion/internal/middleware"
	"github.com/abhijit-arora/cockatiel-companion/internal/services"
)

// maxBodyBytes bounds callable payloads.
const maxBodyBytes = 1 << 20

// callerFrom returns the identity set by the auth middleware.
func callerFrom(c echo.Context) services.Caller {
	uid, _ := c.Get(middleware.ContextUID).(string)
	email, _ := c.Get(middleware.ContextEmail).(string)
	return services.Caller{UID: uid, Email: email}
}

// bindData decodes the callable envelope {"data": {...}} into v and validates it.
func bindData(c echo.Context, v any) error {
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	body := io.LimitReader(c.Request().Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&envelope); err != nil && !errors.Is(err, io.EOF) {
		return domainerrors.InvalidArgument("Request body must be a JSON object with a data field.")
	}
	if len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		if err := json.Unmarshal(envelope.Data, v); err != nil {
			return domainerrors.InvalidArgument("Request data has the wrong shape.")
		}
	}
	return c.Validate(v)
}

// respond writes a callable success envelope.
func respond(c echo.Context, result any) error {
	return c.JSON(http.StatusOK, echo.Map{"result": result})
}

type callableError struct {
	Status  domainerrors.Code `json:"status"`
	Message string            `json:"message"`
	Details any               `json:"details,omitempty"`
}

// ErrorHandler renders errors as callable error envelopes. Internal causes are logged and never
// sent to the client.
func ErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		body, status := toCallableError(err)
		if status >= http.StatusInternalServerError {
			log.WithError(err).WithField("path", c.Request().URL.Path).Error("Request failed")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"error": body})
		}
		if err != nil {
			log.WithError(err).Warn("Failed to write error response")
		}
	}
}

func toCallableError(err error) (callableError, int) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return callableError{Status: domainErr.Code, Message: domainErr.Message, Details: domainErr.Details}, domainErr.HTTPStatus()
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code := codeForStatus(httpErr.Code)
		msg, ok := httpErr.Message.(string)
		if !ok || code == domainerrors.CodeInternal {
			msg = http.StatusText(httpErr.Code)
		}
		return callableError{Status: code, Message: msg}, httpErr.Code
	}

	return callableError{Status: domainerrors.CodeInternal, Message: "Internal error."}, http.StatusInternalServerError
}

func codeForStatus(status int) domainerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusRequestEntityTooLarge:
		return domainerrors.CodeInvalidArgument
	case http.StatusUnauthorized:
		return domainerrors.CodeUnauthenticated
	case http.StatusForbidden:
		return domainerrors.CodePermissionDenied
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return domainerrors.CodeNotFound
	case http.StatusConflict:
		return domainerrors.CodeAlreadyExists
	case http.StatusTooManyRequests:
		return domainerrors.CodeResourceExhausted
	default:
		return domainerrors.CodeInternal
	}
}
