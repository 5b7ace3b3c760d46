package tryon

import (
	"TryOnGolang/internal/tryon/scene"
	"TryOnGolang/internal/tryon/session"
	"TryOnGolang/pkg/response"
	"time"
)

const (
	CommandStart  = "start"
	CommandSelect = "select"
	CommandStop   = "stop"
)

const (
	MessageRender  = "render"
	MessageSession = "session"
	MessageAsset   = "asset"
	MessageNoFace  = "no_face"
	MessageError   = "error"
)

// Command is a text message sent by a try-on client.
type Command struct {
	Type      string `json:"type" validate:"required,oneof=start select stop"`
	Mode      string `json:"mode" validate:"omitempty,oneof=video still"`
	GlassesID string `json:"glasses_id" validate:"required_if=Type select,max=64"`
}

// ServerMessage is everything the server pushes to a try-on client.
type ServerMessage struct {
	Type      string          `json:"type"`
	State     string          `json:"state,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Mode      string          `json:"mode,omitempty"`
	Path      string          `json:"path,omitempty"`
	Error     string          `json:"error,omitempty"`
	Code      int             `json:"code,omitempty"`
	Snapshot  *scene.Snapshot `json:"snapshot,omitempty"`
}

type ConnectionResponse struct {
	ID       string          `json:"id"`
	OpenedAt time.Time       `json:"opened_at"`
	Mode     string          `json:"mode,omitempty"`
	Selected string          `json:"selected"`
	Session  *session.Status `json:"session,omitempty"`
}

type ConnectionListResponse struct {
	Connections []ConnectionResponse `json:"connections"`
	Total       int                  `json:"total"`
}

func RenderMessage(snapshot scene.Snapshot) ServerMessage {
	return ServerMessage{Type: MessageRender, Snapshot: &snapshot}
}

func ErrorMessage(err error) ServerMessage {
	msg := ServerMessage{Type: MessageError, Error: err.Error()}
	if code, ok := response.StatusCode(err); ok {
		msg.Code = code
	}
	return msg
}

// EventMessage translates a controller event for the client.
func EventMessage(e session.Event) ServerMessage {
	msg := ServerMessage{SessionID: e.SessionID, Mode: string(e.Mode), Path: e.Path}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}

	switch e.Kind {
	case session.EventStarted:
		msg.Type, msg.State = MessageSession, "started"
	case session.EventStopped:
		msg.Type, msg.State = MessageSession, "stopped"
	case session.EventFailed:
		msg.Type, msg.State = MessageSession, "failed"
	case session.EventAssetLoaded:
		msg.Type, msg.State = MessageAsset, "loaded"
	case session.EventAssetFailed:
		msg.Type, msg.State = MessageAsset, "failed"
	case session.EventNoFace:
		msg.Type = MessageNoFace
	default:
		msg.Type = string(e.Kind)
	}
	return msg
}
