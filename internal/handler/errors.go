package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/speaknote/internal/apierr"
	"github.com/iliyamo/speaknote/internal/logger"
	"github.com/iliyamo/speaknote/internal/repository"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorHandler renders handler errors as {"error", "code", "fields"} and
// logs server-side failures with their cause. In dev mode the cause of an
// internal error is also returned to the client.
func ErrorHandler(log *logger.Logger, dev bool) echo.HTTPErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ae := toAPIError(err)
		body := errorBody{Error: ae.Message, Code: ae.Kind, Fields: ae.Fields}

		if ae.Status >= 500 {
			log.Error("request failed",
				"method", c.Request().Method,
				"path", c.Path(),
				"kind", ae.Kind,
				"err", err,
			)
			if dev && ae.Kind == apierr.KindInternal && ae.Err != nil {
				body.Error = ae.Err.Error()
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(ae.Status)
		} else {
			err = c.JSON(ae.Status, body)
		}
		if err != nil {
			log.Warn("write error response failed", "err", err)
		}
	}
}

func toAPIError(err error) *apierr.Error {
	if ae, ok := apierr.As(err); ok {
		return ae
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		switch he.Code {
		case http.StatusRequestEntityTooLarge:
			return apierr.TooLarge(msg)
		case http.StatusNotFound:
			return apierr.NotFound(msg)
		case http.StatusUnauthorized:
			return apierr.Unauthenticated(msg)
		}
		if he.Code >= 500 {
			return apierr.Internal(fmt.Errorf("%s: %w", msg, he))
		}
		return apierr.New(he.Code, apierr.KindValidation, msg, he)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return apierr.NotFound("not found or unauthorized")
	}
	return apierr.Internal(err)
}
