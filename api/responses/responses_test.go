package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/angelmondragon/storebridge/pkg/errors"
	"github.com/angelmondragon/storebridge/pkg/types"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"status": "live"})

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope types.SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshaling body: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["status"] != "live" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
}

func TestWriteErrorUsesCodeMetadata(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeProductNotFound, "product \"x\" not found")
	WriteError(context.Background(), nil, rec, err)

	if rec.Code != 404 {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshaling body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeProductNotFound) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "product \"x\" not found" {
		t.Fatalf("expected message passthrough, got %q", envelope.Error.Message)
	}
}

func TestWriteErrorHidesVerificationDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeVerificationFailed, "x5c chain rejected").
		WithDetails(map[string]string{"leaf": "CN=bad"})
	WriteError(context.Background(), nil, rec, err)

	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshaling body: %v", err)
	}
	if envelope.Error.Message != "transaction failed verification" {
		t.Fatalf("expected the public message, got %q", envelope.Error.Message)
	}
	if envelope.Error.Details != nil {
		t.Fatal("expected details suppressed for verification failures")
	}
}

func TestWriteErrorNormalizesPlainErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("backend exploded"))

	if rec.Code != 500 {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshaling body: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeUnknown) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
	if envelope.Error.Message != "backend exploded" {
		t.Fatalf("expected verbatim backend message, got %q", envelope.Error.Message)
	}
}
