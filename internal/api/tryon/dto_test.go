package tryon

import (
	"TryOnGolang/internal/tryon/session"
	"errors"
	"fmt"
	"testing"
)

func TestErrorMessageCarriesStatus(t *testing.T) {
	msg := ErrorMessage(fmt.Errorf("%w: bad json", ErrInvalidCommand))
	if msg.Type != MessageError || msg.Code != 400 {
		t.Errorf("message = %+v, want an error with code 400", msg)
	}

	msg = ErrorMessage(errors.New("boom"))
	if msg.Code != 0 || msg.Error != "boom" {
		t.Errorf("message = %+v, want no code", msg)
	}
}

func TestEventMessage(t *testing.T) {
	tests := []struct {
		kind      session.EventKind
		wantType  string
		wantState string
	}{
		{session.EventStarted, MessageSession, "started"},
		{session.EventStopped, MessageSession, "stopped"},
		{session.EventFailed, MessageSession, "failed"},
		{session.EventAssetLoaded, MessageAsset, "loaded"},
		{session.EventAssetFailed, MessageAsset, "failed"},
		{session.EventNoFace, MessageNoFace, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			msg := EventMessage(session.Event{Kind: tt.kind, SessionID: "s1", Mode: session.ModeStill})
			if msg.Type != tt.wantType || msg.State != tt.wantState {
				t.Errorf("EventMessage() = %s/%s, want %s/%s", msg.Type, msg.State, tt.wantType, tt.wantState)
			}
			if msg.SessionID != "s1" || msg.Mode != "still" {
				t.Errorf("EventMessage() lost session fields: %+v", msg)
			}
		})
	}
}
