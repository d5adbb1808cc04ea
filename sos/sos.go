package sos

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"tirtha/db"
	"tirtha/models"
	"tirtha/mq"
	"tirtha/utils"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PriorityRank maps a priority label to its triage sort key. Unknown labels
// rank as medium so a typo from a field device still lands in the queue.
func PriorityRank(priority string) int {
	switch priority {
	case models.PriorityCritical:
		return 0
	case models.PriorityHigh:
		return 1
	case models.PriorityLow:
		return 3
	default:
		return 2
	}
}

func validType(t string) bool {
	switch t {
	case models.IncidentMedical, models.IncidentSecurity, models.IncidentLostChild, models.IncidentCrowdRisk:
		return true
	}
	return false
}

type ReportRequest struct {
	Type          string `json:"type"`
	Priority      string `json:"priority"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	ReporterName  string `json:"reporterName"`
	ReporterPhone string `json:"reporterPhone"`
}

// Report persists an incident in pending status. Validation is minimal on
// purpose: an emergency report must not bounce on anything beyond type and
// location.
func Report(ctx context.Context, req ReportRequest) (*models.Incident, error) {
	req.Type = strings.TrimSpace(req.Type)
	req.Location = strings.TrimSpace(req.Location)
	if !validType(req.Type) || req.Location == "" {
		return nil, models.Rejected(models.ReasonInvalidState, "a known incident type and a location are required")
	}

	priority := req.Priority
	switch priority {
	case models.PriorityCritical, models.PriorityHigh, models.PriorityMedium, models.PriorityLow:
	default:
		priority = models.PriorityMedium
	}

	inc := models.Incident{
		ID:            uuid.NewString(),
		Type:          req.Type,
		Priority:      priority,
		PriorityRank:  PriorityRank(priority),
		Description:   strings.TrimSpace(req.Description),
		Location:      req.Location,
		ReporterName:  strings.TrimSpace(req.ReporterName),
		ReporterPhone: strings.TrimSpace(req.ReporterPhone),
		Status:        models.IncidentPending,
		CreatedAt:     time.Now().Unix(),
	}

	if _, err := db.IncidentsCollection.InsertOne(ctx, inc); err != nil {
		return nil, err
	}

	mq.Emit(ctx, "incident", inc.ID, "", models.IncidentPending, "")
	return &inc, nil
}

// ListPending returns the operator triage order: critical first, oldest first
// within the same priority. The rank is stored at intake so the sort is a
// plain indexed query.
func ListPending(ctx context.Context, typeFilter string) ([]models.Incident, error) {
	filter := bson.M{"status": models.IncidentPending}
	if typeFilter != "" {
		filter["type"] = typeFilter
	}

	cur, err := db.IncidentsCollection.Find(ctx, filter, options.Find().SetSort(
		bson.D{{Key: "priorityRank", Value: 1}, {Key: "createdAt", Value: 1}},
	))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Incident
	for cur.Next(ctx) {
		var inc models.Incident
		if cur.Decode(&inc) == nil {
			out = append(out, inc)
		}
	}
	return out, cur.Err()
}

// ---------- Handlers ----------

func ReportHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	inc, err := Report(ctx, req)
	if err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondWithJSON(w, http.StatusBadRequest, utils.M{"ok": false, "reason": rej.Reason, "message": rej.Message})
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"ok": true, "incident": inc})
}

func ListPendingHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := ListPending(ctx, r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"incidents": list})
}
