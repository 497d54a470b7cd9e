// internal/server/handlers/complaints.go

package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/complaint"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/domain/geo"
	complaintService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/complaint"
	geoService "github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/geo"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/intake"
	"github.com/kartik-kumar-pandey/Naagrik-Nivedan/internal/service/view"
)

// ComplaintSource is the live complaint set
type ComplaintSource interface {
	Snapshot() []complaint.Complaint
	Get(id string) (complaint.Complaint, bool)
}

// Lifecycle changes complaint status and priority
type Lifecycle interface {
	Transition(ctx context.Context, actor complaint.Actor, id string, to complaint.Status, priority *complaint.Priority) (complaint.Complaint, error)
	SetPriority(ctx context.Context, actor complaint.Actor, id string, priority complaint.Priority) (complaint.Complaint, error)
}

// Intake accepts new complaints from citizens
type Intake interface {
	Submit(ctx context.Context, d intake.Draft) (complaint.Complaint, error)
	Suggest(ctx context.Context, image []byte, coords *complaint.LatLng) intake.Suggestion
}

// NearbyConfig bounds proximity queries
type NearbyConfig struct {
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

// ComplaintHandler handles complaint-related HTTP requests
type ComplaintHandler struct {
	source         ComplaintSource
	lifecycle      Lifecycle
	intake         Intake
	clusterer      geo.Clusterer
	nearby         NearbyConfig
	maxUploadBytes int64
}

// NewComplaintHandler creates a new complaint handler
func NewComplaintHandler(
	source ComplaintSource,
	lifecycle Lifecycle,
	intake Intake,
	clusterer geo.Clusterer,
	nearby NearbyConfig,
	maxUploadBytes int64,
) *ComplaintHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 << 20
	}
	return &ComplaintHandler{
		source:         source,
		lifecycle:      lifecycle,
		intake:         intake,
		clusterer:      clusterer,
		nearby:         nearby,
		maxUploadBytes: maxUploadBytes,
	}
}

// ListComplaints returns the viewer's projection under the query filters
func (h *ComplaintHandler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	actor, spec, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	var clusterer geo.Clusterer
	if withMap, _ := strconv.ParseBool(r.URL.Query().Get("map")); withMap {
		clusterer = h.clusterer
	}

	respondWithJSON(w, http.StatusOK, view.Project(h.source.Snapshot(), actor, spec, clusterer))
}

// GetComplaint returns a single complaint the viewer may see
func (h *ComplaintHandler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	c, ok := h.source.Get(chi.URLParam(r, "id"))
	if !ok || !view.CanSee(actor, c) {
		respondWithServiceError(w, complaint.ErrNotFound)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// GetNearby returns visible complaints around a point, nearest first
func (h *ComplaintHandler) GetNearby(w http.ResponseWriter, r *http.Request) {
	actor, spec, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	radiusStr := r.URL.Query().Get("radius")

	if latStr == "" || lngStr == "" {
		respondWithError(w, http.StatusBadRequest, "Missing location parameters", nil)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		respondWithError(w, http.StatusBadRequest, "Invalid latitude", err)
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil || lng < -180 || lng > 180 {
		respondWithError(w, http.StatusBadRequest, "Invalid longitude", err)
		return
	}

	radius := h.nearby.DefaultRadiusKm
	if radiusStr != "" {
		radius, err = strconv.ParseFloat(radiusStr, 64)
		if err != nil || radius <= 0 || (h.nearby.MaxRadiusKm > 0 && radius > h.nearby.MaxRadiusKm) {
			respondWithError(w, http.StatusBadRequest, "Invalid radius", err)
			return
		}
	}

	visible := complaintService.Apply(view.Scope(h.source.Snapshot(), actor), spec)
	respondWithJSON(w, http.StatusOK, geoService.WithinRadius(visible, complaint.LatLng{Lat: lat, Lng: lng}, radius))
}

// GetHotZones returns the clusters over the viewer's filtered complaints
func (h *ComplaintHandler) GetHotZones(w http.ResponseWriter, r *http.Request) {
	actor, spec, ok := h.viewRequest(w, r)
	if !ok {
		return
	}

	zones := view.Project(h.source.Snapshot(), actor, spec, h.clusterer).HotZones
	if zones == nil {
		zones = []geo.Cluster{}
	}
	respondWithJSON(w, http.StatusOK, zones)
}

// SubmitComplaint creates a complaint from a citizen draft
func (h *ComplaintHandler) SubmitComplaint(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var draft intake.Draft
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	// An authenticated citizen always submits as themselves
	if actor.Role == complaint.RoleCitizen && actor.ID != "" {
		draft.SubmitterID = actor.ID
	}

	c, err := h.intake.Submit(r.Context(), draft)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, c)
}

// suggestRequest is the body of a suggestion request
type suggestRequest struct {
	Image     []byte   `json:"image"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SuggestComplaint classifies a photo and resolves an address
func (h *ComplaintHandler) SuggestComplaint(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	var coords *complaint.LatLng
	if req.Latitude != nil && req.Longitude != nil {
		coords = &complaint.LatLng{Lat: *req.Latitude, Lng: *req.Longitude}
	}

	respondWithJSON(w, http.StatusOK, h.intake.Suggest(r.Context(), req.Image, coords))
}

// maxUpdateBytes bounds status and priority change bodies
const maxUpdateBytes = 64 << 10

// transitionRequest is the body of a status change
type transitionRequest struct {
	Status   string `json:"status"`
	Priority string `json:"priority,omitempty"`
}

// TransitionComplaint moves a complaint to a new status
func (h *ComplaintHandler) TransitionComplaint(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req transitionRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	to, ok := complaint.ParseStatus(req.Status)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}

	var priority *complaint.Priority
	if req.Priority != "" {
		p, ok := complaint.ParsePriority(req.Priority)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid priority", nil)
			return
		}
		priority = &p
	}

	c, err := h.lifecycle.Transition(r.Context(), actor, chi.URLParam(r, "id"), to, priority)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// priorityRequest is the body of a priority change
type priorityRequest struct {
	Priority string `json:"priority"`
}

// SetPriority changes the priority of a complaint
func (h *ComplaintHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	var req priorityRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxUpdateBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	p, ok := complaint.ParsePriority(req.Priority)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid priority", nil)
		return
	}

	c, err := h.lifecycle.SetPriority(r.Context(), actor, chi.URLParam(r, "id"), p)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, c)
}

// viewRequest reads the viewer and filter shared by the read endpoints
func (h *ComplaintHandler) viewRequest(w http.ResponseWriter, r *http.Request) (complaint.Actor, complaint.FilterSpec, bool) {
	actor, err := actorFromRequest(r)
	if err != nil {
		respondWithServiceError(w, err)
		return actor, complaint.FilterSpec{}, false
	}

	spec, err := complaintService.ParseFilterSpec(r.URL.Query())
	if err != nil {
		respondWithServiceError(w, err)
		return actor, spec, false
	}

	return actor, spec, true
}
