package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
	"github.com/pawhaven/chat-service/internal/hub"
	"github.com/pawhaven/chat-service/internal/metrics"
	"github.com/pawhaven/chat-service/internal/middleware"
	"github.com/pawhaven/chat-service/internal/service"
)

// Gateway authenticates each persistent connection once at upgrade time
// and dispatches inbound events. Per-room operations still verify
// membership server-side on every event; only the identity is trusted
// from the connection.
type Gateway struct {
	hub *hub.Hub
	svc *service.ChatService
	log *zap.SugaredLogger

	secret        string
	pingInterval  time.Duration
	writeDeadline time.Duration
	maxMsgSize    int64
	sendBuffer    int
}

func NewGateway(h *hub.Hub, svc *service.ChatService, secret string, pingInterval, writeDeadline time.Duration, maxMsgSize int64, sendBuffer int, log *zap.SugaredLogger) *Gateway {
	return &Gateway{
		hub:           h,
		svc:           svc,
		log:           log,
		secret:        secret,
		pingInterval:  pingInterval,
		writeDeadline: writeDeadline,
		maxMsgSize:    maxMsgSize,
		sendBuffer:    sendBuffer,
	}
}

// UpgradeGuard authenticates the upgrade request (token query param or
// bearer header) before the protocol switch.
func (g *Gateway) UpgradeGuard() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			if t, err := middleware.ParseBearer(c.Get("Authorization")); err == nil {
				token = t
			}
		}
		claims, err := middleware.ParseAndValidate(g.secret, token)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
		}
		c.Locals("claims", claims)
		return c.Next()
	}
}

// Handler returns the websocket endpoint.
func (g *Gateway) Handler() fiber.Handler {
	return websocket.New(g.handle)
}

func (g *Gateway) handle(conn *websocket.Conn) {
	claims, ok := conn.Locals("claims").(*middleware.Claims)
	if !ok {
		_ = conn.Close()
		return
	}
	ctx := context.Background()
	client := hub.NewClient(uuid.NewString(), claims.UserID, domain.Side(claims.Role), conn, g.sendBuffer)

	g.hub.Register(client)
	metrics.ActiveConnections.Inc()
	g.svc.OnConnected(ctx, client.UserID)
	g.log.Infow("ws connected", "user", client.UserID, "conn", client.ID)

	go client.WritePump(g.pingInterval, g.writeDeadline)

	// rooms this connection has joined; needed so leave events fire on
	// teardown even though the hub forgets memberships on Unregister
	joined := make(map[string]*domain.Room)

	defer func() {
		g.hub.Unregister(client)
		client.Close()
		metrics.ActiveConnections.Dec()
		if !g.hub.UserOnline(client.UserID) {
			g.svc.OnDisconnected(ctx, client.UserID)
		}
		g.log.Infow("ws disconnected", "user", client.UserID, "conn", client.ID)
	}()

	pongWait := 2 * g.pingInterval
	conn.SetReadLimit(g.maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		ev, err := domain.DecodeClientEvent(data)
		if err != nil {
			client.SendEvent(domain.EventError, domain.ErrorPayload{Code: "BAD_EVENT", Message: err.Error()})
			continue
		}
		g.dispatch(ctx, client, joined, ev)
	}
}

func (g *Gateway) dispatch(ctx context.Context, client *hub.Client, joined map[string]*domain.Room, ev *domain.ClientEvent) {
	switch p := ev.Payload.(type) {
	case *domain.JoinPayload:
		room, side, err := g.svc.RoomForParticipant(ctx, p.RoomID, client.UserID)
		if err != nil {
			g.sendErr(client, err)
			return
		}
		g.hub.JoinRoom(room.ID, client)
		joined[room.ID] = room
		g.svc.OnRoomJoined(ctx, room, client.UserID, side)

	case *domain.LeavePayload:
		room, ok := joined[p.RoomID]
		if !ok {
			return
		}
		g.hub.LeaveRoom(room.ID, client)
		delete(joined, room.ID)
		g.svc.OnRoomLeft(ctx, room, client.UserID)

	case *domain.TypingPayload:
		if err := g.svc.SetTyping(ctx, p.RoomID, client.UserID, p.IsTyping); err != nil {
			g.sendErr(client, err)
		}

	case *domain.MarkReadPayload:
		if err := g.svc.MarkRoomRead(ctx, p.RoomID, client.UserID); err != nil {
			g.sendErr(client, err)
		}
	}
}

// sendErr replies on the originating connection only; errors are never
// broadcast.
func (g *Gateway) sendErr(client *hub.Client, err error) {
	client.SendEvent(domain.EventError, domain.ErrorPayload{
		Code:    apperr.Code(err),
		Message: err.Error(),
	})
}
