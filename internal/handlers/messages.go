package handlers

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/pawhaven/chat-service/internal/service"
)

// History returns one page of a room's messages, oldest first. Fetching
// history doubles as the read-receipt trigger for polling clients.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 50))
	msgs, err := h.svc.History(c.Context(), c.Params("roomId"), currentUser(c), page, limit)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, msgs)
}

// SendMessage accepts multipart form data: content, optional replyTo,
// optional image file.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	in := service.SendMessageInput{
		RoomID:   c.Params("roomId"),
		SenderID: currentUser(c),
		Content:  c.FormValue("content"),
		ReplyTo:  c.FormValue("replyTo"),
	}
	if img, err := formImage(c, "image"); err == nil {
		in.Image = img
	}
	m, err := h.svc.SendMessage(c.Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": m})
}

type deleteMessageInput struct {
	DeleteForEveryone bool `json:"deleteForEveryone"`
}

func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	var in deleteMessageInput
	_ = c.BodyParser(&in) // absent body means delete-for-me
	if err := h.svc.DeleteMessage(c.Context(), c.Params("messageId"), currentUser(c), in.DeleteForEveryone); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"deleted": true, "forEveryone": in.DeleteForEveryone})
}

type reactionInput struct {
	Emoji string `json:"emoji"`
}

func (h *ChatHandler) Reaction(c *fiber.Ctx) error {
	var in reactionInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": fiber.Map{"code": "BAD_REQUEST", "message": "invalid body"}})
	}
	reactions, err := h.svc.ToggleReaction(c.Context(), c.Params("messageId"), currentUser(c), in.Emoji)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"reactions": reactions})
}

func (h *ChatHandler) MarkDelivered(c *fiber.Ctx) error {
	if err := h.svc.MarkMessageDelivered(c.Context(), c.Params("messageId"), currentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"delivered": true})
}

func (h *ChatHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.svc.MarkMessageRead(c.Context(), c.Params("messageId"), currentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"read": true})
}

// MarkRoomRead is the REST mirror of the chat:mark:read socket event.
func (h *ChatHandler) MarkRoomRead(c *fiber.Ctx) error {
	if err := h.svc.MarkRoomRead(c.Context(), c.Params("roomId"), currentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"read": true})
}

func formImage(c *fiber.Ctx, field string) (*service.ImageUpload, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	data, err := readAll(fh)
	if err != nil {
		return nil, err
	}
	return &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
