package tryonHandler

import (
	"TryOnGolang/internal/api/tryon"
	"testing"
)

func drain(o *outbox) []tryon.ServerMessage {
	o.close()
	var out []tryon.ServerMessage
	for m := range o.messages {
		out = append(out, m)
	}
	return out
}

func TestOutboxDropsRendersWhenFull(t *testing.T) {
	o := newOutbox(2)
	o.send(tryon.ServerMessage{Type: tryon.MessageRender})
	o.send(tryon.ServerMessage{Type: tryon.MessageRender})
	o.send(tryon.ServerMessage{Type: tryon.MessageRender})

	if got := drain(o); len(got) != 2 || o.dropped != 1 {
		t.Errorf("queued %d, dropped %d; want 2, 1", len(got), o.dropped)
	}
}

func TestOutboxKeepsControlMessages(t *testing.T) {
	o := newOutbox(2)
	o.send(tryon.ServerMessage{Type: tryon.MessageRender})
	o.send(tryon.ServerMessage{Type: tryon.MessageRender})
	o.send(tryon.ServerMessage{Type: tryon.MessageSession, State: "stopped"})

	got := drain(o)
	if len(got) != 2 {
		t.Fatalf("queued %d messages, want 2", len(got))
	}
	if last := got[len(got)-1]; last.Type != tryon.MessageSession || last.State != "stopped" {
		t.Errorf("last message = %+v, want session stopped", last)
	}
}

func TestOutboxIgnoresSendAfterClose(t *testing.T) {
	o := newOutbox(1)
	o.close()
	o.send(tryon.ServerMessage{Type: tryon.MessageError})
	o.close()

	if _, ok := <-o.messages; ok {
		t.Error("message delivered after close")
	}
}
