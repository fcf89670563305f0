package identity

import (
	"testing"

	"github.com/voxa-labs/voxa-agent/internal/models"
)

func TestSetAndGet(t *testing.T) {
	r := NewRegistry()
	id := models.Identity{Role: models.CallerCustomer, Email: "alex@x.com", BusinessID: "biz-1"}
	r.Set("room-1", id)

	got, ok := r.Get("room-1")
	if !ok {
		t.Fatal("expected entry for room-1")
	}
	if got != id {
		t.Errorf("expected %+v, got %+v", id, got)
	}
}

func TestGetMissing(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("room-unknown"); ok {
		t.Error("expected no entry for unknown room")
	}
}

func TestSetReplaces(t *testing.T) {
	r := NewRegistry()
	r.Set("room-1", models.Identity{Role: models.CallerGeneral, Email: "old@x.com"})
	r.Set("room-1", models.Identity{Role: models.CallerCustomer, Email: "new@x.com", BusinessID: "biz-1"})

	got, _ := r.Get("room-1")
	if got.Email != "new@x.com" || got.Role != models.CallerCustomer {
		t.Errorf("expected replaced entry, got %+v", got)
	}
	if r.Len() != 1 {
		t.Errorf("expected single entry, got %d", r.Len())
	}
}
