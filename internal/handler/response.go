package handler

// RESPONSE HELPERS:
// These functions standardise how we read requests and send JSON responses.
//
// CONSISTENT ERROR FORMAT:
// Every error response from the API has the same shape:
//   {"error": "not_found", "message": "bucketlist not found with id 7"}
//
// 401 responses put the specific cause in "error" (token_missing,
// token_expired, token_invalid, invalid_credentials) so clients can tell an
// expired session from a bad password without parsing the message.

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/bucketlist/internal/apperror"
	"github.com/sakif/bucketlist/internal/auth"
	"github.com/sakif/bucketlist/internal/listing"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// listCacheControl is sent with every list response.
const listCacheControl = "private, max-age=300"

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, when known
}

// MessageResponse is the body of a successful delete.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE the body is written. Once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	apperror.ErrValidation   → 400 validation_error
//	apperror.ErrUnauthorized → 401 <cause code> (or "unauthorized")
//	apperror.ErrForbidden    → 403 forbidden
//	apperror.ErrNotFound     → 404 not_found
//	apperror.ErrConflict     → 409 conflict
//	anything else            → 500 internal_error, details logged not sent
//
// errors.As walks the whole chain, so a service error wrapped with
// fmt.Errorf("creating item: %w", ...) still maps correctly.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
			if appErr.Code != "" {
				errorType = appErr.Code
			}
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		if status != http.StatusInternalServerError {
			writeJSON(w, status, ErrorResponse{
				Error:   errorType,
				Message: appErr.Message,
				Field:   appErr.Field,
			})
			return
		}
	}

	// Unknown error. The raw message may carry SQL or file paths, so it is
	// logged and never sent to the client.
	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.ValidationFailed("", "request body is too large")
		}
		return apperror.ValidationFailed("", "request body must be a valid JSON object")
	}
	return nil
}

// parseID reads a numeric URL parameter. Range checks are left to the
// service so every caller gets the same message.
func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.ValidationFailed(param, fmt.Sprintf("%s must be an integer, got %q", param, raw))
	}
	return id, nil
}

// pathParam returns a URL parameter decoded. chi matches on the raw path
// only when the request needed escaping (e.g. %2F), and then the parameter
// is still encoded.
func pathParam(r *http.Request, param string) (string, error) {
	v := chi.URLParam(r, param)
	if r.URL.RawPath == "" {
		return v, nil
	}
	decoded, err := url.PathUnescape(v)
	if err != nil {
		return "", apperror.ValidationFailed(param, param+" is not valid URL encoding")
	}
	return decoded, nil
}

// callerID returns the authenticated user. Routes are mounted behind
// auth.RequireAuth, so a miss means the route was wired without it.
func callerID(r *http.Request) (int64, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return 0, apperror.Unauthorized(auth.CauseTokenMissing, "authentication token is required")
	}
	return id, nil
}

// writeList sends a list body of the form
//
//	{"<key>": [...], "total": n, "pages": p}
//
// When the request carries ?limit=N only page N is sent; without it the whole
// list is sent and "pages" is omitted. total is always the full length.
//
// The body is hashed into a strong ETag. A request whose If-None-Match
// already names that ETag gets 304 with no body.
func writeList[T any](w http.ResponseWriter, r *http.Request, key string, all []T, pageSize int) {
	if all == nil {
		all = []T{}
	}
	body := map[string]any{key: all, "total": len(all)}

	page, paged, err := listing.ParsePage(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, err)
		return
	}
	if paged {
		p, err := listing.Paginate(all, page, pageSize)
		if err != nil {
			writeError(w, err)
			return
		}
		body[key] = p.Entries
		body["pages"] = p.TotalPages
	}

	writeCached(w, r, key, body)
}

// writeAll is writeList without pagination: ?limit= is not read.
func writeAll[T any](w http.ResponseWriter, r *http.Request, key string, all []T) {
	if all == nil {
		all = []T{}
	}
	writeCached(w, r, key, map[string]any{key: all, "total": len(all)})
}

// writeCached encodes body once, tags it with a sha256 ETag and answers a
// matching If-None-Match with 304.
func writeCached(w http.ResponseWriter, r *http.Request, key string, body map[string]any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		writeError(w, fmt.Errorf("encoding %s list: %w", key, err))
		return
	}
	sum := sha256.Sum256(buf.Bytes())
	etag := `"` + hex.EncodeToString(sum[:]) + `"`

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", listCacheControl)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
