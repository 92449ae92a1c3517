package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Register mounts the REST mirror under /api/v1. Everything requires an
// authenticated session; auth is the caller's middleware.
func Register(app fiber.Router, h *ChatHandler, auth fiber.Handler) {
	api := app.Group("/api/v1", auth)

	api.Post("/rooms", h.EnsureRoom)
	api.Get("/rooms", h.ListRooms)
	api.Get("/rooms/:roomId/messages", h.History)
	api.Post("/rooms/:roomId/messages", h.SendMessage)
	api.Patch("/rooms/:roomId/block", h.BlockRoom)
	api.Patch("/rooms/:roomId/close", h.CloseRoom)
	api.Patch("/rooms/:roomId/read", h.MarkRoomRead)
	api.Get("/rooms/:roomId/wallpaper", h.GetWallpaper)
	api.Patch("/rooms/:roomId/wallpaper", h.SetWallpaper)
	api.Post("/rooms/:roomId/wallpaper/upload", h.UploadWallpaper)

	api.Delete("/messages/:messageId", h.DeleteMessage)
	api.Post("/messages/:messageId/reaction", h.Reaction)
	api.Patch("/messages/:messageId/delivered", h.MarkDelivered)
	api.Patch("/messages/:messageId/read", h.MarkRead)
}
