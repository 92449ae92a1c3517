package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pawhaven/chat-service/internal/apperr"
	"github.com/pawhaven/chat-service/internal/domain"
	"github.com/pawhaven/chat-service/internal/handlers"
	"github.com/pawhaven/chat-service/internal/middleware"
	"github.com/pawhaven/chat-service/internal/service"
)

const testSecret = "test-secret"

// stubAPI returns canned values and records the last call's arguments.
type stubAPI struct {
	err       error
	room      *domain.Room
	views     []*domain.RoomView
	msgs      []*domain.Message
	msg       *domain.Message
	reactions []domain.Reaction

	lastUser   string
	lastRoom   string
	lastMsg    string
	lastInput  service.SendMessageInput
	lastEmoji  string
	forAll     bool
	lastPage   int64
	lastLimit  int64
	lastPaper  string
	lastUpload service.ImageUpload
}

func (s *stubAPI) EnsureRoom(_ context.Context, requesterID, ownerID, shelterID, petID, applicationID string) (*domain.Room, error) {
	s.lastUser = requesterID
	return s.room, s.err
}

func (s *stubAPI) ListRooms(_ context.Context, userID string) ([]*domain.RoomView, error) {
	s.lastUser = userID
	return s.views, s.err
}

func (s *stubAPI) RoomForParticipant(_ context.Context, roomID, userID string) (*domain.Room, domain.Side, error) {
	s.lastRoom, s.lastUser = roomID, userID
	if s.err != nil {
		return nil, "", s.err
	}
	return s.room, domain.SideOwner, nil
}

func (s *stubAPI) History(_ context.Context, roomID, userID string, page, limit int64) ([]*domain.Message, error) {
	s.lastRoom, s.lastUser, s.lastPage, s.lastLimit = roomID, userID, page, limit
	return s.msgs, s.err
}

func (s *stubAPI) SendMessage(_ context.Context, in service.SendMessageInput) (*domain.Message, error) {
	s.lastInput = in
	return s.msg, s.err
}

func (s *stubAPI) DeleteMessage(_ context.Context, messageID, requesterID string, forEveryone bool) error {
	s.lastMsg, s.lastUser, s.forAll = messageID, requesterID, forEveryone
	return s.err
}

func (s *stubAPI) ToggleReaction(_ context.Context, messageID, userID, emoji string) ([]domain.Reaction, error) {
	s.lastMsg, s.lastUser, s.lastEmoji = messageID, userID, emoji
	return s.reactions, s.err
}

func (s *stubAPI) BlockRoom(_ context.Context, roomID, requesterID string) error {
	s.lastRoom, s.lastUser = roomID, requesterID
	return s.err
}

func (s *stubAPI) CloseRoom(_ context.Context, roomID, requesterID string) error {
	s.lastRoom, s.lastUser = roomID, requesterID
	return s.err
}

func (s *stubAPI) MarkMessageDelivered(_ context.Context, messageID, userID string) error {
	s.lastMsg, s.lastUser = messageID, userID
	return s.err
}

func (s *stubAPI) MarkMessageRead(_ context.Context, messageID, userID string) error {
	s.lastMsg, s.lastUser = messageID, userID
	return s.err
}

func (s *stubAPI) MarkRoomRead(_ context.Context, roomID, userID string) error {
	s.lastRoom, s.lastUser = roomID, userID
	return s.err
}

func (s *stubAPI) SetWallpaper(_ context.Context, roomID, userID, wallpaper string) error {
	s.lastRoom, s.lastUser, s.lastPaper = roomID, userID, wallpaper
	return s.err
}

func (s *stubAPI) UploadWallpaper(_ context.Context, roomID, userID string, img service.ImageUpload) (string, error) {
	s.lastRoom, s.lastUser, s.lastUpload = roomID, userID, img
	if s.err != nil {
		return "", s.err
	}
	return "https://cdn.test/wallpapers/" + roomID + "/" + img.Filename, nil
}

func newTestApp(stub *stubAPI) *fiber.App {
	app := fiber.New()
	h := handlers.NewChatHandler(stub, zap.NewNop().Sugar())
	handlers.Register(app, h, middleware.JWTAuth(testSecret))
	return app
}

func signToken(t *testing.T, userID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func authedRequest(t *testing.T, method, target string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "owner-1", "owner"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRequestsWithoutTokenRejected(t *testing.T) {
	app := newTestApp(&stubAPI{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRequestsWithForgedTokenRejected(t *testing.T) {
	app := newTestApp(&stubAPI{})
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{UserID: "owner-1", Role: "owner"})
	forged, err := token.SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListRoomsUsesTokenIdentity(t *testing.T) {
	stub := &stubAPI{views: []*domain.RoomView{{Room: &domain.Room{ID: "room-1"}, UnreadCount: 2}}}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodGet, "/api/v1/rooms", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "owner-1", stub.lastUser)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
}

func TestEnsureRoomParsesBody(t *testing.T) {
	stub := &stubAPI{room: &domain.Room{ID: "room-1", Status: domain.RoomOpen}}
	app := newTestApp(stub)

	payload := `{"ownerId":"owner-1","shelterId":"shelter-1","petId":"pet-1","applicationId":"app-1"}`
	resp, err := app.Test(authedRequest(t, http.MethodPost, "/api/v1/rooms", strings.NewReader(payload)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "owner-1", stub.lastUser)
}

func TestHistoryPassesPagination(t *testing.T) {
	stub := &stubAPI{msgs: []*domain.Message{}}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodGet, "/api/v1/rooms/room-1/messages?page=3&limit=20", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "room-1", stub.lastRoom)
	assert.Equal(t, int64(3), stub.lastPage)
	assert.Equal(t, int64(20), stub.lastLimit)
}

func TestSendMessageMultipart(t *testing.T) {
	stub := &stubAPI{msg: &domain.Message{ID: "m1", Content: "hello"}}
	app := newTestApp(stub)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", "hello"))
	require.NoError(t, w.WriteField("replyTo", "m0"))
	part, err := w.CreateFormFile("image", "yard.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte{0xff, 0xd8})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rooms/room-1/messages", &buf)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "owner-1", "owner"))
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "room-1", stub.lastInput.RoomID)
	assert.Equal(t, "owner-1", stub.lastInput.SenderID)
	assert.Equal(t, "hello", stub.lastInput.Content)
	assert.Equal(t, "m0", stub.lastInput.ReplyTo)
	require.NotNil(t, stub.lastInput.Image)
	assert.Equal(t, "yard.jpg", stub.lastInput.Image.Filename)
}

func TestDeleteMessageDefaultsToDeleteForMe(t *testing.T) {
	stub := &stubAPI{}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodDelete, "/api/v1/messages/m1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "m1", stub.lastMsg)
	assert.False(t, stub.forAll)
}

func TestDeleteMessageForEveryone(t *testing.T) {
	stub := &stubAPI{}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodDelete, "/api/v1/messages/m1",
		strings.NewReader(`{"deleteForEveryone":true}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, stub.forAll)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", apperr.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"access denied", apperr.ErrAccessDenied, http.StatusForbidden, "ACCESS_DENIED"},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{"room closed", apperr.ErrRoomClosed, http.StatusBadRequest, "ROOM_CLOSED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp(&stubAPI{err: tc.err})
			resp, err := app.Test(authedRequest(t, http.MethodPatch, "/api/v1/rooms/room-1/block", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)

			body := decodeBody(t, resp)
			assert.Equal(t, false, body["success"])
			errObj, ok := body["error"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, tc.code, errObj["code"])
		})
	}
}

func TestReactionBody(t *testing.T) {
	stub := &stubAPI{reactions: []domain.Reaction{{UserID: "owner-1", Emoji: "👍"}}}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodPost, "/api/v1/messages/m1/reaction",
		strings.NewReader(`{"emoji":"👍"}`)))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "👍", stub.lastEmoji)
}

func TestMarkRoomRead(t *testing.T) {
	stub := &stubAPI{}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodPatch, "/api/v1/rooms/room-1/read", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "room-1", stub.lastRoom)
	assert.Equal(t, "owner-1", stub.lastUser)
}

func TestGetWallpaper(t *testing.T) {
	stub := &stubAPI{room: &domain.Room{ID: "room-1", Wallpaper: "sunset.png"}}
	app := newTestApp(stub)

	resp, err := app.Test(authedRequest(t, http.MethodGet, "/api/v1/rooms/room-1/wallpaper", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sunset.png", data["wallpaper"])
}

func TestUploadWallpaperMissingFile(t *testing.T) {
	app := newTestApp(&stubAPI{})
	resp, err := app.Test(authedRequest(t, http.MethodPost, "/api/v1/rooms/room-1/wallpaper/upload", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
