package bookings

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"tirtha/models"

	"github.com/julienschmidt/httprouter"
	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

var hmacSecret = func() string {
	if s := os.Getenv("PASS_HMAC_SECRET"); s != "" {
		return s
	}
	return "change_me_before_deploy"
}()

// QRPayload returns the signed payload encoded in the darshan pass QR:
// bookingID|slotID|signature. Gate scanners submit this to check-in.
func QRPayload(bookingID, slotID string) string {
	data := fmt.Sprintf("%s|%s", bookingID, slotID)
	h := hmac.New(sha256.New, []byte(hmacSecret))
	h.Write([]byte(data))
	sig := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s|%s", data, sig)
}

// VerifyQRPayload checks the signature and returns the booking id.
func VerifyQRPayload(payload string) (string, error) {
	parts := strings.Split(payload, "|")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed pass payload")
	}
	data := parts[0] + "|" + parts[1]
	h := hmac.New(sha256.New, []byte(hmacSecret))
	h.Write([]byte(data))
	want := base64.StdEncoding.EncodeToString(h.Sum(nil))
	if !hmac.Equal([]byte(want), []byte(parts[2])) {
		return "", fmt.Errorf("pass signature mismatch")
	}
	return parts[0], nil
}

// PrintPass renders the darshan pass as a PDF with the signed QR embedded.
func PrintPass(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	b, err := FindByID(ctx, ps.ByName("id"))
	if err != nil {
		if _, ok := models.AsReject(err); ok {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if b.Status != models.BookingBooked {
		http.Error(w, "pass only available for booked status", http.StatusConflict)
		return
	}

	qrPNG, err := qrcode.Encode(QRPayload(b.ID, b.SlotID), qrcode.Medium, 256)
	if err != nil {
		http.Error(w, "Failed to generate QR code", http.StatusInternalServerError)
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Darshan Pass")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(0, 10, fmt.Sprintf("Booking: %s", b.ID))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Name: %s", b.HolderName))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Date: %s", b.Date))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Members: %d", b.Members))
	pdf.Ln(8)
	pdf.Cell(0, 10, fmt.Sprintf("Entry: %s", b.Gate))
	pdf.Ln(12)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		http.Error(w, "Failed to generate PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=pass-"+b.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
