package zones

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"tirtha/db"
	"tirtha/models"
	"tirtha/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Crowd bands by occupancy ratio:
//
//	< 0.40  Low
//	< 0.70  Medium
//	< 0.90  High
//	>= 0.90 Critical
//
// Pure function of the two counts; zero or negative capacity reads Critical
// because an unconfigured zone must fail loud on the control board.
func CrowdLevel(count, capacity int) string {
	if capacity <= 0 {
		return "Critical"
	}
	ratio := float64(count) / float64(capacity)
	switch {
	case ratio < 0.40:
		return "Low"
	case ratio < 0.70:
		return "Medium"
	case ratio < 0.90:
		return "High"
	default:
		return "Critical"
	}
}

// Update overwrites a zone's live counter. The count originates from an
// external sensing mechanism; this is not a capacity decision and carries no
// side effects on slots. Locking low-availability slots on a Critical zone is
// a separate, explicit operator call (slots.LockLowAvailability).
// An unknown zone id is rejected so a misconfigured sensor surfaces instead
// of reporting into the void.
func Update(ctx context.Context, zoneID string, count int) error {
	res, err := db.ZonesCollection.UpdateOne(ctx,
		bson.M{"id": zoneID},
		bson.M{"$set": bson.M{"count": count, "updatedAt": time.Now().Unix()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return models.Rejected(models.ReasonNotFound, "no such zone")
	}
	return nil
}

// ---------- Handlers ----------

func CreateZone(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var z models.Zone
	if err := json.NewDecoder(r.Body).Decode(&z); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if z.ID == "" || z.Capacity <= 0 {
		http.Error(w, "id and a positive capacity are required", http.StatusBadRequest)
		return
	}
	z.UpdatedAt = time.Now().Unix()

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	_, err := db.ZonesCollection.UpdateOne(ctx,
		bson.M{"id": z.ID},
		bson.M{"$set": z},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true, "zone": z})
}

func UpdateCount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Count < 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := Update(ctx, ps.ByName("id"), body.Count); err != nil {
		if rej, ok := models.AsReject(err); ok {
			utils.RespondReject(w, rej)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"ok": true})
}

func GetZone(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var z models.Zone
	err := db.ZonesCollection.FindOne(ctx, bson.M{"id": ps.ByName("id")}).Decode(&z)
	if err == mongo.ErrNoDocuments {
		utils.RespondReject(w, models.Rejected(models.ReasonNotFound, "no such zone"))
		return
	}
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"zone":       z,
		"crowdLevel": CrowdLevel(z.Count, z.Capacity),
	})
}

func ListZones(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	cur, err := db.ZonesCollection.Find(ctx, bson.M{})
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer cur.Close(ctx)

	type zoneView struct {
		models.Zone
		CrowdLevel string `json:"crowdLevel"`
	}
	var out []zoneView
	for cur.Next(ctx) {
		var z models.Zone
		if cur.Decode(&z) == nil {
			out = append(out, zoneView{Zone: z, CrowdLevel: CrowdLevel(z.Count, z.Capacity)})
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"zones": out})
}
