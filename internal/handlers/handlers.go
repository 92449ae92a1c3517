package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
	"github.com/pawhaven/chat-service/internal/service"
)

// ChatAPI is the service surface the REST mirror exposes. Satisfied by
// *service.ChatService; handler tests stub it.
type ChatAPI interface {
	EnsureRoom(ctx context.Context, requesterID, ownerID, shelterID, petID, applicationID string) (*domain.Room, error)
	ListRooms(ctx context.Context, userID string) ([]*domain.RoomView, error)
	RoomForParticipant(ctx context.Context, roomID, userID string) (*domain.Room, domain.Side, error)
	History(ctx context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error)
	SendMessage(ctx context.Context, in service.SendMessageInput) (*domain.Message, error)
	DeleteMessage(ctx context.Context, messageID, requesterID string, forEveryone bool) error
	ToggleReaction(ctx context.Context, messageID, userID, emoji string) ([]domain.Reaction, error)
	BlockRoom(ctx context.Context, roomID, requesterID string) error
	CloseRoom(ctx context.Context, roomID, requesterID string) error
	MarkMessageDelivered(ctx context.Context, messageID, userID string) error
	MarkMessageRead(ctx context.Context, messageID, userID string) error
	MarkRoomRead(ctx context.Context, roomID, userID string) error
	SetWallpaper(ctx context.Context, roomID, userID, wallpaper string) error
	UploadWallpaper(ctx context.Context, roomID, userID string, img service.ImageUpload) (string, error)
}

// ChatHandler is the REST mirror of the socket surface, for clients that
// poll instead of holding a live connection.
type ChatHandler struct {
	svc ChatAPI
	log *zap.SugaredLogger
}

func NewChatHandler(svc ChatAPI, log *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{svc: svc, log: log}
}

func currentUser(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}

func (h *ChatHandler) fail(c *fiber.Ctx, err error) error {
	h.log.Warnw("request failed",
		"method", c.Method(), "path", c.OriginalURL(),
		"user", currentUser(c), "err", err,
	)
	return c.Status(apperr.HTTPStatus(err)).JSON(fiber.Map{
		"success": false,
		"error":   fiber.Map{"code": apperr.Code(err), "message": err.Error()},
	})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(fiber.Map{"success": true, "data": data})
}
