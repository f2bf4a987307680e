package middleware_test

import (
	"context"
	"testing"

	"github.com/aretw0/spectate/pkg/adapters/memory"
	"github.com/aretw0/spectate/pkg/domain"
	"github.com/aretw0/spectate/pkg/persistence/middleware"
	"github.com/aretw0/spectate/pkg/ports"
)

func TestPIIMiddleware_Masking(t *testing.T) {
	underlying := memory.NewRecorder(8)
	// Mask keys containing "password" or "ssn"
	secure := middleware.NewPIIMiddleware([]string{"password", "ssn"})(underlying)
	ctx := context.Background()

	details := map[string]any{
		"address":    "123 St",
		"ssn_number": "999-99-9999",
	}
	batch := domain.NewBatch(domain.NewEvent(
		"username", "jdoe",
		"user_password", "secret123",
		"details", details,
	))

	stored, err := secure.Append(ctx, domain.Record{Model: "user", Batch: batch})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// The caller's batch is not modified.
	if batch.At(0).Value("user_password") != "secret123" || details["ssn_number"] != "999-99-9999" {
		t.Error("Middleware modified the original batch")
	}

	raw, err := underlying.Get(ctx, stored.Seq)
	if err != nil {
		t.Fatalf("Underlying get failed: %v", err)
	}
	e := raw.Batch.At(0)
	if e.Value("username") != "jdoe" {
		t.Error("Username shouldn't be masked")
	}
	if e.Value("user_password") != middleware.Mask {
		t.Errorf("Password should be masked, got %v", e.Value("user_password"))
	}
	nested, _ := e.Value("details").(map[string]any)
	if nested["ssn_number"] != middleware.Mask {
		t.Errorf("Nested SSN should be masked, got %v", nested["ssn_number"])
	}
	if nested["address"] != "123 St" {
		t.Error("Address shouldn't be masked")
	}
	if got := e.Keys(); len(got) != 3 || got[1] != "user_password" {
		t.Errorf("field order should be kept, got %v", got)
	}
}

func TestChain_MaskThenEncrypt(t *testing.T) {
	underlying := memory.NewRecorder(8)
	enc := mustEncryption(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	j := middleware.Chain(underlying, middleware.NewPIIMiddleware([]string{"^token$"}), enc)
	ctx := context.Background()

	if _, err := j.Append(ctx, domain.Record{Batch: domain.NewBatch(domain.NewEvent("token", "abc", "n", 1))}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	rec, err := j.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if rec.Batch.At(0).Value("token") != middleware.Mask {
		t.Errorf("token should be masked before encryption, got %v", rec.Batch.At(0).Value("token"))
	}
}

func TestPIIMiddleware_Contract(t *testing.T) {
	ports.RunJournalContract(t, func(capacity int) ports.Journal {
		return middleware.NewPIIMiddleware([]string{"secret"})(memory.NewRecorder(capacity))
	})
}
