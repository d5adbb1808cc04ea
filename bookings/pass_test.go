package bookings

import (
	"strings"
	"testing"
)

func TestQRPayloadRoundTrip(t *testing.T) {
	payload := QRPayload("DRS-1234567890", "55512345")

	id, err := VerifyQRPayload(payload)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id != "DRS-1234567890" {
		t.Errorf("got booking id %q", id)
	}
}

func TestQRPayloadTamperRejected(t *testing.T) {
	payload := QRPayload("DRS-1234567890", "55512345")
	tampered := strings.Replace(payload, "DRS-1234567890", "DRS-9999999999", 1)

	if _, err := VerifyQRPayload(tampered); err == nil {
		t.Fatal("tampered payload verified")
	}
	if _, err := VerifyQRPayload("garbage"); err == nil {
		t.Fatal("malformed payload verified")
	}
}
