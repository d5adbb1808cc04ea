package utils

import (
	"encoding/json"
	"net/http"

	"tirtha/models"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// RespondReject writes a rejection with its stable reason code. State-machine
// refusals are 409, missing entities 404, capacity refusals 409.
func RespondReject(w http.ResponseWriter, rej *models.Reject) {
	code := http.StatusConflict
	if rej.Reason == models.ReasonNotFound || rej.Reason == models.ReasonSlotMissing {
		code = http.StatusNotFound
	}
	RespondWithJSON(w, code, map[string]any{
		"ok":      false,
		"reason":  rej.Reason,
		"message": rej.Message,
	})
}

type M map[string]interface{}
