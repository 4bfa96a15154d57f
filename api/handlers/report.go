package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/linesmerrill/civic-report-api/api"
	"github.com/linesmerrill/civic-report-api/config"
	"github.com/linesmerrill/civic-report-api/consensus"
	"github.com/linesmerrill/civic-report-api/lifecycle"
	"github.com/linesmerrill/civic-report-api/models"
	"github.com/linesmerrill/civic-report-api/store"
)

// Report handles report-related requests
type Report struct {
	Store     *store.Store
	Lifecycle *lifecycle.Coordinator
	Consensus *consensus.Engine
}

type createReportRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    models.Category `json:"category"`
	Urgency     models.Urgency  `json:"urgency"`
	ImageRef    string          `json:"imageRef"`
	Address     string          `json:"address"`
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
}

type updateReportRequest struct {
	Status     string            `json:"status"`
	Department models.Department `json:"department"`
	Urgency    models.Urgency    `json:"urgency"`
	Note       string            `json:"note"`
}

type rejectReportRequest struct {
	Reason lifecycle.RejectReason `json:"reason"`
	Note   string                 `json:"note"`
}

type commentRequest struct {
	Text string `json:"text"`
}

// CreateReportHandler files a new report for the acting user
func (re Report) CreateReportHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := api.UserFromContext(r.Context())

	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := re.Lifecycle.Submit(r.Context(), user, models.Draft{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Urgency:     req.Urgency,
		ImageRef:    req.ImageRef,
		Address:     req.Address,
		Location:    models.Coordinates{Latitude: req.Latitude, Longitude: req.Longitude},
	})
	if err != nil {
		engineError("failed to create report", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, re.Consensus.View(report))
}

// ReportsHandler lists reports. Supported query params: status (comma
// separated), q, department and order=oldest.
func (re Report) ReportsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.Filter{
		Query:      q.Get("q"),
		Department: models.Department(q.Get("department")),
	}
	if q.Get("order") == "oldest" {
		f.Order = store.OldestFirst
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s, ok := models.ParseStatus(part)
			if !ok {
				config.ErrorStatus("invalid status filter", http.StatusBadRequest, w, errors.Errorf("unknown status %q", part))
				return
			}
			f.StatusIn = append(f.StatusIn, s)
		}
	}

	views := []models.ReportView{}
	for report := range re.Store.List(f) {
		views = append(views, re.Consensus.View(report))
	}
	writeJSON(w, http.StatusOK, views)
}

// ReportByIDHandler returns a single report
func (re Report) ReportByIDHandler(w http.ResponseWriter, r *http.Request) {
	reportID := mux.Vars(r)["report_id"]

	zap.S().Debugf("report_id: %v", reportID)

	report, err := re.Store.Get(r.Context(), reportID)
	if err != nil {
		engineError("failed to get report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, re.Consensus.View(report))
}

// UpvoteHandler adds one upvote
func (re Report) UpvoteHandler(w http.ResponseWriter, r *http.Request) {
	report, err := re.Store.Upvote(r.Context(), mux.Vars(r)["report_id"])
	if err != nil {
		engineError("failed to upvote report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, re.Consensus.View(report))
}

// AddCommentHandler appends a comment by the acting user
func (re Report) AddCommentHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := api.UserFromContext(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := re.Store.AddComment(r.Context(), mux.Vars(r)["report_id"], user.ID, req.Text)
	if err != nil {
		engineError("failed to add comment", w, err)
		return
	}
	writeJSON(w, http.StatusCreated, re.Consensus.View(report))
}

// ValidateHandler records the acting user's validation vote
func (re Report) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := api.UserFromContext(r.Context())

	report, err := re.Consensus.Validate(r.Context(), mux.Vars(r)["report_id"], user)
	if err != nil {
		engineError("failed to validate report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, re.Consensus.View(report))
}

// UpdateReportHandler changes status, department or urgency. Authority only.
func (re Report) UpdateReportHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := api.UserFromContext(r.Context())

	var req updateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	var changes []store.Change
	if req.Status != "" {
		s, ok := models.ParseStatus(req.Status)
		if !ok {
			config.ErrorStatus("invalid status", http.StatusBadRequest, w, errors.Errorf("unknown status %q", req.Status))
			return
		}
		changes = append(changes, store.SetStatus{Status: s})
	}
	if req.Department != "" {
		changes = append(changes, store.SetDepartment{Department: req.Department})
	}
	if req.Urgency != "" {
		changes = append(changes, store.SetUrgency{Urgency: req.Urgency})
	}

	report, err := re.Lifecycle.Apply(r.Context(), mux.Vars(r)["report_id"], user, req.Note, changes...)
	if err != nil {
		engineError("failed to update report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, re.Consensus.View(report))
}

// RejectReportHandler rejects a report and penalizes its reporter. Authority only.
func (re Report) RejectReportHandler(w http.ResponseWriter, r *http.Request) {
	user, _ := api.UserFromContext(r.Context())

	var req rejectReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	report, err := re.Lifecycle.Reject(r.Context(), mux.Vars(r)["report_id"], user, req.Note, req.Reason)
	if err != nil {
		engineError("failed to reject report", w, err)
		return
	}
	writeJSON(w, http.StatusOK, re.Consensus.View(report))
}
