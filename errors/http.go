package errors

import (
	"encoding/json"
	"net/http"
)

// clientError is the body sent for errors clients may see.
type clientError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// WriteHTTP renders err as an HTTP response. Internal errors are sent as a
// bare status with no body; other errors as a JSON {code, message} body.
// Plain errors are treated as INTERNAL. A nil err writes nothing.
func WriteHTTP(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	e := As(err)
	if e == nil {
		e = Wrap(err, ErrCodeInternal.Description())
	}

	status := e.Status()
	if e.category == CategoryInternal {
		w.WriteHeader(status)
		return
	}

	body, merr := json.Marshal(clientError{
		Code:      e.code,
		Message:   e.message,
		RequestID: e.requestID,
	})
	if merr != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}
