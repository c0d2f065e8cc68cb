package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mwilkes/basket/internal/apperror"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error to the machine-readable response body. Anything
// that is not an *apperror.Error becomes INTERNAL_ERROR; the cause is logged,
// never exposed.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		ae = apperror.Internal(err)
	}
	if ae.Code == apperror.CodeInternal {
		logger.Error("internal error", "error", ae.Unwrap())
	}
	writeJSON(w, ae.Status(), map[string]string{
		"code":  string(ae.Code),
		"error": ae.Message,
	})
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func parseListID(r *http.Request) (int64, error) {
	id, err := parseIDParam(r, "list_id")
	if err != nil {
		return 0, apperror.New(apperror.CodeListIDRequired, "invalid list id")
	}
	return id, nil
}
