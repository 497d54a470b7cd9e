// internal/server/handlers/respond.go

package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
)

// Actor headers set by the auth gateway
const (
	HeaderActorID         = "X-Actor-ID"
	HeaderActorRole       = "X-Actor-Role"
	HeaderActorDepartment = "X-Actor-Department"
)

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	if err != nil && code >= 500 {
		slog.Error("HTTP error", "code", code, "message", message, "error", err)
	}

	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps a domain error to its HTTP status
func respondWithServiceError(w http.ResponseWriter, err error) {
	var (
		validationErr    *complaint.ValidationError
		transitionErr    *complaint.TransitionError
		authorizationErr *complaint.AuthorizationError
		upstreamErr      *complaint.UpstreamUnavailable
	)

	switch {
	case errors.Is(err, complaint.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Complaint not found", err)
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error(), err)
	case errors.As(err, &transitionErr):
		respondWithError(w, http.StatusConflict, transitionErr.Error(), err)
	case errors.As(err, &authorizationErr):
		respondWithError(w, http.StatusForbidden, authorizationErr.Error(), err)
	case errors.As(err, &upstreamErr):
		respondWithError(w, http.StatusServiceUnavailable, upstreamErr.Service+" unavailable", err)
	default:
		respondWithError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}

// actorFromRequest reads the viewer identity. A missing role means citizen.
func actorFromRequest(r *http.Request) (complaint.Actor, error) {
	actor := complaint.Actor{
		ID:         strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Department: strings.TrimSpace(r.Header.Get(HeaderActorDepartment)),
	}

	switch role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole))); role {
	case "", string(complaint.RoleCitizen):
		actor.Role = complaint.RoleCitizen
	case string(complaint.RoleDepartment):
		actor.Role = complaint.RoleDepartment
	case string(complaint.RoleAdmin):
		actor.Role = complaint.RoleAdmin
	default:
		return actor, complaint.NewValidationError("", "unknown actor role "+role, nil)
	}

	return actor, nil
}
