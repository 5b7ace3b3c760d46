package tryonHandler

import (
	"TryOnGolang/internal/api/tryon"
	tryonService "TryOnGolang/internal/api/tryon/service"
	"TryOnGolang/internal/middleware"
	"TryOnGolang/internal/tryon/session"
	contextPkg "TryOnGolang/pkg/context"
	"TryOnGolang/pkg/handlerUtil"
	"fmt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	"time"
)

const (
	maxReadTimeout = 120 * time.Second
	writeTimeout   = 10 * time.Second
	outboxSize     = 64
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (h *TryOnHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals(middleware.RequestIDKey).(string)
	ctx, cancel := context.WithCancel(contextPkg.WithRequestID(context.Background(), requestID))
	defer cancel()

	out := newOutbox(outboxSize)
	conn, err := h.tryonService.Connect(ctx, out.send)
	if err != nil {
		h.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Try-on connection refused")
		c.WriteJSON(tryon.ErrorMessage(err))
		return
	}

	ctx = contextPkg.WithConnectionID(ctx, conn.ID)
	log := h.log.WithFields(logrus.Fields{
		"request_id":    requestID,
		"connection_id": contextPkg.GetConnectionID(ctx),
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(c, out, log)
	}()
	defer func() {
		h.tryonService.Disconnect(conn.ID)
		out.close()
		<-writerDone
	}()

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Errorf("Try-on WebSocket error: %v", err)
			} else {
				log.Info("Try-on WebSocket connection closed")
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			if err := h.handleCommand(ctx, conn, message); err != nil {
				log.WithField("error", err.Error()).Debug("Try-on command rejected")
				out.send(tryon.ErrorMessage(err))
			}
		case websocket.BinaryMessage:
			if err := conn.HandleFrame(ctx, message); err != nil {
				log.WithField("error", err.Error()).Debug("Try-on frame rejected")
				out.send(tryon.ErrorMessage(err))
			}
		default:
			log.Warnf("Received unexpected message type: %d", messageType)
		}
	}
}

func (h *TryOnHandler) handleCommand(ctx context.Context, conn *tryonService.Connection, message []byte) error {
	var cmd tryon.Command
	if err := json.Unmarshal(message, &cmd); err != nil {
		return fmt.Errorf("%w: %v", tryon.ErrInvalidCommand, err)
	}
	if err := h.validator.Struct(cmd); err != nil {
		return fmt.Errorf("%w: %v", tryon.ErrInvalidCommand, err)
	}

	switch cmd.Type {
	case tryon.CommandStart:
		if cmd.Mode == "" {
			cmd.Mode = string(session.ModeVideo)
		}
		mode, err := session.ParseMode(cmd.Mode)
		if err != nil {
			return err
		}
		return conn.Start(ctx, mode)
	case tryon.CommandSelect:
		return conn.Select(ctx, cmd.GlassesID)
	case tryon.CommandStop:
		return conn.Stop()
	}
	return tryon.ErrInvalidCommand
}

// writeLoop is the only writer of data frames on c.
func (h *TryOnHandler) writeLoop(c *websocket.Conn, out *outbox, log *logrus.Entry) {
	failed := false
	for msg := range out.messages {
		if failed {
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			log.Errorf("Error setting write deadline: %v", err)
			failed = true
			c.Close()
			continue
		}
		if err := c.WriteJSON(msg); err != nil {
			log.Errorf("Error writing JSON response: %v", err)
			failed = true
			c.Close()
		}
	}
}

func (h *TryOnHandler) GetSessions(ctx *fiber.Ctx) error {
	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(logrus.Fields{
		"request_id": h.middleware.GetRequestID(ctx),
		"path":       ctx.Path(),
	}).Debug("Processing list try-on sessions request")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, h.tryonService.GetConnections())
}

func (h *TryOnHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	id := ctx.Params("id")
	if id == "" {
		return errHandler.HandleValidationError(ctx, requestID, fmt.Errorf("connection id is required"), ctx.Path())
	}

	conn, err := h.tryonService.GetConnection(id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_tryon_session")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, conn.Info())
}
