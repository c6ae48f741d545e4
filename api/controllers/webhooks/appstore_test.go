package webhooks

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/storebridge/internal/appstore"
	"github.com/angelmondragon/storebridge/internal/storekit"
	"github.com/angelmondragon/storebridge/pkg/config"
	pkgerrors "github.com/angelmondragon/storebridge/pkg/errors"
	"github.com/angelmondragon/storebridge/pkg/logger"
	"github.com/angelmondragon/storebridge/pkg/types"
)

type fakeIngestor struct {
	results []storekit.VerificationResult[storekit.Transaction]
	err     error
}

func (f *fakeIngestor) Ingest(result storekit.VerificationResult[storekit.Transaction]) error {
	f.results = append(f.results, result)
	return f.err
}

func sandboxDecoder(t *testing.T) *appstore.Decoder {
	t.Helper()
	decoder, err := appstore.NewDecoder(config.AppStoreConfig{
		BundleID:    "com.example.app",
		Environment: "Sandbox",
	}, nil)
	if err != nil {
		t.Fatalf("building decoder: %v", err)
	}
	return decoder
}

func signPayload(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing payload: %v", err)
	}
	return signed
}

func notificationPayload(t *testing.T, notificationType string, withTransaction bool) string {
	t.Helper()

	data := map[string]any{
		"bundleId":    "com.example.app",
		"environment": "Sandbox",
	}
	if withTransaction {
		data["signedTransactionInfo"] = signPayload(t, jwt.MapClaims{
			"transactionId":         "1001",
			"originalTransactionId": "1001",
			"bundleId":              "com.example.app",
			"productId":             "premium.monthly",
			"purchaseDate":          time.Now().UnixMilli(),
			"originalPurchaseDate":  time.Now().UnixMilli(),
			"quantity":              1,
			"type":                  "Auto-Renewable Subscription",
			"environment":           "Sandbox",
		})
	}
	return signPayload(t, jwt.MapClaims{
		"notificationType": notificationType,
		"notificationUUID": "0f0e0d0c-0b0a-0908-0706-050403020100",
		"version":          "2.0",
		"signedDate":       time.Now().UnixMilli(),
		"data":             data,
	})
}

func postNotification(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/appstore", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestAppStoreNotificationIngestsTransaction(t *testing.T) {
	ingestor := &fakeIngestor{}
	handler := AppStoreNotification(sandboxDecoder(t), ingestor, logger.New(logger.Options{ServiceName: "test"}))

	rec := postNotification(t, handler, map[string]string{
		"signedPayload": notificationPayload(t, appstore.NotificationDidRenew, true),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(ingestor.results) != 1 {
		t.Fatalf("expected 1 ingested update, got %d", len(ingestor.results))
	}
	tx, _, err := ingestor.results[0].Unwrap()
	if err != nil {
		t.Fatalf("expected verified transaction: %v", err)
	}
	if tx.ID != 1001 || tx.ProductID != "premium.monthly" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
}

func TestAppStoreNotificationAcceptsTestPing(t *testing.T) {
	ingestor := &fakeIngestor{}
	handler := AppStoreNotification(sandboxDecoder(t), ingestor, logger.New(logger.Options{ServiceName: "test"}))

	rec := postNotification(t, handler, map[string]string{
		"signedPayload": notificationPayload(t, appstore.NotificationTest, false),
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(ingestor.results) != 0 {
		t.Fatal("expected nothing ingested for a test notification")
	}
}

func TestAppStoreNotificationRequiresSignedPayload(t *testing.T) {
	handler := AppStoreNotification(sandboxDecoder(t), &fakeIngestor{}, logger.New(logger.Options{ServiceName: "test"}))

	rec := postNotification(t, handler, map[string]string{})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshaling body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeInvalidArguments) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}

func TestAppStoreNotificationRejectsGarbagePayload(t *testing.T) {
	handler := AppStoreNotification(sandboxDecoder(t), &fakeIngestor{}, logger.New(logger.Options{ServiceName: "test"}))

	rec := postNotification(t, handler, map[string]string{"signedPayload": "not-a-jws"})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAppStoreNotificationRejectsForeignBundle(t *testing.T) {
	ingestor := &fakeIngestor{}
	handler := AppStoreNotification(sandboxDecoder(t), ingestor, logger.New(logger.Options{ServiceName: "test"}))

	payload := signPayload(t, jwt.MapClaims{
		"notificationType": appstore.NotificationDidRenew,
		"version":          "2.0",
		"data": map[string]any{
			"bundleId":    "com.imposter.app",
			"environment": "Sandbox",
		},
	})
	rec := postNotification(t, handler, map[string]string{"signedPayload": payload})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if len(ingestor.results) != 0 {
		t.Fatal("expected nothing ingested")
	}
}
