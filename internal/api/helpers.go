package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/yourusername/meeting-intelligence/internal/apierrors"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func parseJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func getUUIDParam(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// respondErrFromDomain maps the §7 error taxonomy to HTTP status codes so
// every handler shares one classification instead of re-deriving it.
func respondErrFromDomain(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *apierrors.ValidationErr:
		respondError(w, http.StatusBadRequest, err.Error())
	case *apierrors.PermanentConnectionErr:
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case *apierrors.ValidationGateErr:
		respondError(w, http.StatusConflict, err.Error())
	case *apierrors.TransientConnectionErr, *apierrors.EngineErr, *apierrors.CRMAdapterErr:
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}
