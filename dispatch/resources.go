package dispatch

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

func validCategory(c string) bool {
	switch c {
	case models.ResourceAmbulance, models.ResourceMedicalBooth, models.ResourceFirstAid, models.ResourceSecurityUnit:
		return true
	}
	return false
}

// ListAvailable returns available units of a category, sorted by id so the
// dispatcher board is stable between refreshes. No ranking here.
func ListAvailable(ctx context.Context, category string) ([]models.Resource, error) {
	filter := bson.M{"status": models.ResourceAvailable}
	if category != "" {
		filter["category"] = category
	}
	cur, err := db.ResourcesCollection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Resource
	for cur.Next(ctx) {
		var res models.Resource
		if cur.Decode(&res) == nil {
			out = append(out, res)
		}
	}
	return out, cur.Err()
}

// SetOffline takes a unit out of rotation. Only an available unit can go
// offline directly; a deployed one finishes its incident first.
func SetOffline(ctx context.Context, resourceID string) error {
	res, err := db.ResourcesCollection.UpdateOne(ctx,
		bson.M{"id": resourceID, "status": models.ResourceAvailable},
		bson.M{"$set": bson.M{"status": models.ResourceOffline}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return resourceRejection(ctx, resourceID)
	}
	mq.Emit(ctx, "resource", resourceID, models.ResourceAvailable, models.ResourceOffline, "")
	return nil
}

func SetAvailable(ctx context.Context, resourceID string) error {
	res, err := db.ResourcesCollection.UpdateOne(ctx,
		bson.M{"id": resourceID, "status": models.ResourceOffline},
		bson.M{"$set": bson.M{"status": models.ResourceAvailable}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return resourceRejection(ctx, resourceID)
	}
	mq.Emit(ctx, "resource", resourceID, models.ResourceOffline, models.ResourceAvailable, "")
	return nil
}

// ---------- Handlers ----------

func CreateResource(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var res models.Resource
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if !validCategory(res.Category) {
		http.Error(w, "unknown resource category", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(res.ID) == "" {
		res.ID = uuid.NewString()
	}
	res.Status = models.ResourceAvailable
	res.IncidentID = ""

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := db.ResourcesCollection.InsertOne(ctx, res); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"resource": res})
}

func ListAvailableHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	list, err := ListAvailable(ctx, r.URL.Query().Get("category"))
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"resources": list})
}

func AssignHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		IncidentID string `json:"incidentId"`
		ResourceID string `json:"resourceId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if body.IncidentID == "" || body.ResourceID == "" {
		http.Error(w, "incidentId and resourceId are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := Assign(ctx, body.IncidentID, body.ResourceID); err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

func ResolveHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	incidentID := ps.ByName("id")
	if incidentID == "" {
		http.Error(w, "missing id", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := Resolve(ctx, incidentID); err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

func OfflineHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	toggleHandler(w, r, ps.ByName("id"), SetOffline)
}

func AvailableHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	toggleHandler(w, r, ps.ByName("id"), SetAvailable)
}

func toggleHandler(w http.ResponseWriter, r *http.Request, resourceID string, fn func(context.Context, string) error) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := fn(ctx, resourceID); err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}
