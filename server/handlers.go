package server

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/westshgit/apidoc/errors"
)

// Greeting is the body of GET /.
type Greeting struct {
	Content string `json:"content"`
}

var hello = Greeting{Content: "We got that too!"}

// marshalDocument is replaced in tests to exercise the failure path.
var marshalDocument = func() ([]byte, error) {
	return json.Marshal(Document())
}

func handleHello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, hello)
}

func handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	body, err := marshalDocument()
	if err != nil {
		writeError(w, r, apierrors.Serialization(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apierrors.NotFound("no route for "+r.URL.Path))
}

func handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apierrors.New(apierrors.ErrCodeMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path))
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, apierrors.Serialization(err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

// writeError renders err tagged with the request's ID.
func writeError(w http.ResponseWriter, r *http.Request, err *apierrors.Error) {
	if id := RequestID(r.Context()); id != "" && err.RequestID() == "" {
		err = apierrors.Wrap(err, err.Message(), apierrors.WithRequestID(id))
	}
	apierrors.WriteHTTP(w, err)
}
