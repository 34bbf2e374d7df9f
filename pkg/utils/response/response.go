// Package response defines the unified JSON envelope returned by every
// HTTP endpoint:
//
//	{"code": 0, "http_code": 200, "message": "success", "data": {...},
//	 "request_id": "...", "timestamp": 1700000000000}
package response

import (
	"net/http"
	"sync"
	"time"

	"github.com/kart-io/evidence-x/pkg/errors"
)

// Response is the unified API response structure.
type Response struct {
	// Code is the business error code (0 = success)
	Code int `json:"code"`

	// HTTPCode mirrors the HTTP status for clients that only see the body.
	HTTPCode int `json:"http_code"`

	Message string `json:"message"`

	// Data contains the response payload (nil for errors)
	Data any `json:"data,omitempty"`

	RequestID string `json:"request_id,omitempty"`

	// Timestamp is the response time in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`
}

var pool = sync.Pool{
	New: func() any { return new(Response) },
}

// Acquire returns a zeroed Response from the pool.
func Acquire() *Response {
	return pool.Get().(*Response)
}

// Release resets r and returns it to the pool. r must not be used afterwards.
func Release(r *Response) {
	if r == nil {
		return
	}
	*r = Response{}
	pool.Put(r)
}

// Success creates a successful response with data.
func Success(data any) *Response {
	r := Acquire()
	r.Code = errors.OK.Code
	r.HTTPCode = http.StatusOK
	r.Message = "success"
	r.Data = data
	r.Timestamp = time.Now().UnixMilli()
	return r
}

// Err creates an error response from an Errno, using the English detail.
func Err(e *errors.Errno) *Response {
	return ErrWithLang(e, "en")
}

// ErrWithLang creates an error response with a language-specific message.
// English messages carry the wrapped cause; Chinese ones use the fixed text.
func ErrWithLang(e *errors.Errno, lang string) *Response {
	if e == nil {
		return Success(nil)
	}
	r := Acquire()
	r.Code = e.Code
	r.HTTPCode = e.HTTPStatus()
	if msg := e.Message(lang); msg != e.MessageEN {
		r.Message = msg
	} else {
		r.Message = e.Detail()
	}
	r.Timestamp = time.Now().UnixMilli()
	return r
}

// WithRequestID adds request ID to the response.
func (r *Response) WithRequestID(requestID string) *Response {
	r.RequestID = requestID
	return r
}

// IsSuccess returns true if the response indicates success.
func (r *Response) IsSuccess() bool {
	return r.Code == 0
}

// HTTPStatus returns the HTTP status for this response.
func (r *Response) HTTPStatus() int {
	if r.HTTPCode != 0 {
		return r.HTTPCode
	}
	if r.Code == 0 {
		return http.StatusOK
	}
	if e, ok := errors.Lookup(r.Code); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
