package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type ensureRoomInput struct {
	OwnerID       string `json:"ownerId"`
	ShelterID     string `json:"shelterId"`
	PetID         string `json:"petId"`
	ApplicationID string `json:"applicationId"`
}

// EnsureRoom finds or creates the room for an adoption application.
func (h *ChatHandler) EnsureRoom(c *fiber.Ctx) error {
	var in ensureRoomInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": fiber.Map{"code": "BAD_REQUEST", "message": "invalid body"}})
	}
	room, err := h.svc.EnsureRoom(c.Context(), currentUser(c), in.OwnerID, in.ShelterID, in.PetID, in.ApplicationID)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, room)
}

// ListRooms returns the requester's rooms, most recently active first.
func (h *ChatHandler) ListRooms(c *fiber.Ctx) error {
	views, err := h.svc.ListRooms(c.Context(), currentUser(c))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, views)
}

func (h *ChatHandler) BlockRoom(c *fiber.Ctx) error {
	if err := h.svc.BlockRoom(c.Context(), c.Params("roomId"), currentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"status": "blocked"})
}

func (h *ChatHandler) CloseRoom(c *fiber.Ctx) error {
	if err := h.svc.CloseRoom(c.Context(), c.Params("roomId"), currentUser(c)); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"status": "closed"})
}

func (h *ChatHandler) GetWallpaper(c *fiber.Ctx) error {
	room, _, err := h.svc.RoomForParticipant(c.Context(), c.Params("roomId"), currentUser(c))
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"wallpaper": room.Wallpaper})
}

type wallpaperInput struct {
	Wallpaper string `json:"wallpaper"`
}

func (h *ChatHandler) SetWallpaper(c *fiber.Ctx) error {
	var in wallpaperInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": fiber.Map{"code": "BAD_REQUEST", "message": "invalid body"}})
	}
	if err := h.svc.SetWallpaper(c.Context(), c.Params("roomId"), currentUser(c), in.Wallpaper); err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"wallpaper": in.Wallpaper})
}

// UploadWallpaper accepts a multipart image, stores it and applies it.
func (h *ChatHandler) UploadWallpaper(c *fiber.Ctx) error {
	img, err := formImage(c, "wallpaper")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": fiber.Map{"code": "BAD_REQUEST", "message": "wallpaper file required"}})
	}
	url, err := h.svc.UploadWallpaper(c.Context(), c.Params("roomId"), currentUser(c), *img)
	if err != nil {
		return h.fail(c, err)
	}
	return ok(c, fiber.Map{"wallpaper": url})
}
