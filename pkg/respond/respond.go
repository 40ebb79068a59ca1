// Package respond renders the API response envelope. Every endpoint returns
// either {"data": ..., "error": null} or {"data": null, "error": {code, message}}
// so clients can switch on a machine-readable code instead of HTTP status alone.
package respond

import (
	"github.com/labstack/echo/v4"
)

// ErrorBody is the error half of the envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Envelope is the wire shape of every response.
type Envelope struct {
	Data  interface{} `json:"data"`
	Error *ErrorBody  `json:"error"`
}

// Data writes a success envelope.
func Data(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Data: data})
}

// Error writes a failure envelope.
func Error(c echo.Context, status int, code, message string) error {
	return c.JSON(status, Envelope{Error: &ErrorBody{Code: code, Message: message}})
}
