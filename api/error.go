package api

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/collection"
	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/imageresize"
)

// HTTPError represents a structured HTTP error response.
type HTTPError struct {
	Status int                 `json:"status"`
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// statusTypeMap maps HTTP status codes to RFC 9110 types.
var statusTypeMap = map[int]string{
	400: "https://tools.ietf.org/html/rfc9110#section-15.5.1",  // Bad Request
	401: "https://tools.ietf.org/html/rfc9110#section-15.5.2",  // Unauthorized
	404: "https://tools.ietf.org/html/rfc9110#section-15.5.5",  // Not Found
	405: "https://tools.ietf.org/html/rfc9110#section-15.5.6",  // Method Not Allowed
	409: "https://tools.ietf.org/html/rfc9110#section-15.5.10", // Conflict
	413: "https://tools.ietf.org/html/rfc9110#section-15.5.14", // Content Too Large
	415: "https://tools.ietf.org/html/rfc9110#section-15.5.16", // Unsupported Media Type
	500: "https://tools.ietf.org/html/rfc9110#section-15.6.1",  // Internal Server Error
	503: "https://tools.ietf.org/html/rfc9110#section-15.6.4",  // Service Unavailable
}

// apierror writes a structured error response.
func apierror(w http.ResponseWriter, msg string, status int) {
	response := HTTPError{
		Status: status,
		Title:  msg,
	}
	if typeUrl, ok := statusTypeMap[status]; ok {
		response.Type = typeUrl
	}
	serveJSONStatus(response, status, w)
}

// serverError maps an error returned by the library service to a response.
func serverError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *collection.ValidationError
	switch {
	case errors.Is(err, model.ErrNotFound):
		apierror(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrInvalidRating),
		errors.Is(err, collection.ErrNoMembers),
		errors.Is(err, imageresize.ErrNotAnImage):
		apierror(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &validationErr):
		response := HTTPError{
			Status: http.StatusBadRequest,
			Type:   statusTypeMap[http.StatusBadRequest],
			Title:  "validation failed",
			Errors: map[string][]string{"fields": validationErr.Fields},
		}
		serveJSONStatus(response, http.StatusBadRequest, w)
	case errors.Is(err, model.ErrAlreadyMember):
		apierror(w, err.Error(), http.StatusConflict)
	case errors.Is(err, collection.ErrSearchIndexNotInitialized):
		apierror(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, model.ErrInvariant):
		log.Error().Err(err).Str("url", r.URL.String()).Msg("library invariant violated")
		apierror(w, "library data is inconsistent", http.StatusInternalServerError)
	default:
		log.Error().Err(err).Str("url", r.URL.String()).Msg("request failed")
		apierror(w, "internal server error", http.StatusInternalServerError)
	}
}
