package console

import (
	"testing"

	"github.com/avisohq/aviso-console/internal/backend"
)

func TestStatusBadge(t *testing.T) {
	if b := StatusBadge(backend.StatusSent); b.Icon != "check-circle" || b.Color != "green" {
		t.Errorf("enviada badge = %+v", b)
	}
	if b := StatusBadge(backend.StatusFailed); b.Color != "red" {
		t.Errorf("falhada badge = %+v", b)
	}
	// Unknown values fall back instead of failing.
	if b := StatusBadge(backend.Status("arquivada")); b != defaultBadge {
		t.Errorf("unknown status badge = %+v", b)
	}
}

func TestCanalBadge(t *testing.T) {
	if b := CanalBadge(backend.CanalWhatsApp); b.Icon != "message-square" {
		t.Errorf("whatsapp badge = %+v", b)
	}
	if b := CanalBadge(backend.Canal("telegram")); b != defaultBadge {
		t.Errorf("unknown canal badge = %+v", b)
	}
}
