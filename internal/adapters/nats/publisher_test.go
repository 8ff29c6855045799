package natsadapter

import (
	"encoding/json"
	"testing"

	"github.com/samirrijal/placemark/internal/core/domain"
)

func TestMessage_TagsInstance(t *testing.T) {
	p := &Publisher{instance: "replica-1"}

	state := domain.ViewportState{Center: domain.DefaultCenter, Zoom: 12, LocationPermissionGranted: true}
	msg, err := p.message(SubjectViewport, state)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != SubjectViewport {
		t.Errorf("expected subject %s, got %s", SubjectViewport, msg.Subject)
	}
	if got := msg.Header.Get(instanceHeader); got != "replica-1" {
		t.Errorf("expected instance header replica-1, got %q", got)
	}

	var decoded domain.ViewportState
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded != state {
		t.Errorf("expected %+v, got %+v", state, decoded)
	}
}
