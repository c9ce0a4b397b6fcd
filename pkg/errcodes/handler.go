package errcodes

import (
	"net/http"

	"github.com/iancoleman/strcase"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/errutils"
)

var internal = &Error{http.StatusInternalServerError, "Internal Server Error", "internal_server_error"}

type body struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

type payload struct {
	Error body `json:"error"`
}

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Handle writes err as a JSON error body. Anything that isn't an *Error or an
// echo.HTTPError is reported as a 500 and logged with its stack.
func (h *Handler) Handle(err error, c echo.Context) {
	log := logger.FromEchoContext(c)
	if errutils.IsIgnorableErr(err) {
		log.Err(err).Warn("client went away")
		return
	}

	e := resolve(err)
	if e.HTTPCode >= http.StatusInternalServerError {
		log.Err(err).Error("request failed", map[string]interface{}{
			"method": c.Request().Method,
			"route":  c.Path(),
		})
	}

	p := payload{body{e.Code, e.Message, e.HTTPCode}}
	if err := c.JSON(e.HTTPCode, p); err != nil {
		log.Err(errors.WithStack(err)).Error("failed to write error response")
	}
}

// resolve maps any error onto the API's error shape.
func resolve(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return &Error{he.Code, msg, strcase.ToSnake(msg)}
	}

	return internal
}
