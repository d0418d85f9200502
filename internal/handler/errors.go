package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/slms/leave-service/internal/apperr"
)

type errorBody struct {
	Message string  `json:"message"`
	Stack   *string `json:"stack"`
}

// ErrorHandler renders every error returned by a handler as
// {message, stack}.  stack is the error chain, and null in production.
func ErrorHandler(production bool, log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := http.StatusInternalServerError, apperr.MsgDefault
		if ae, ok := apperr.As(err); ok {
			status, msg = ae.Status, ae.Message
		} else if he, ok := err.(*echo.HTTPError); ok {
			status = he.Code
			switch {
			case he.Code == http.StatusNotFound:
				msg = "Not Found - " + c.Request().URL.Path
			case he.Code < 500:
				msg = fmt.Sprint(he.Message)
			}
		}
		if status >= 500 {
			log.WithError(err).WithField("path", c.Request().URL.Path).Error("request failed")
		}

		body := errorBody{Message: msg}
		if !production {
			s := err.Error()
			body.Stack = &s
		}
		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.WithError(werr).Warn("error response not written")
		}
	}
}
