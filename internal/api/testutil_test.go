package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/models"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, userID primitive.ObjectID) {
	c.Set("user_id", userID)
}

// oid builds a deterministic ObjectID from a single byte for readable tests.
func oid(b byte) primitive.ObjectID {
	var id primitive.ObjectID
	id[11] = b
	return id
}

// ---------------------------------------------------------------------------
// Mock gateway dispatcher
// ---------------------------------------------------------------------------

type dispatchedEvent struct {
	ChatID       primitive.ObjectID
	UserID       primitive.ObjectID
	ExceptUserID primitive.ObjectID
	Event        string
	Data         any
}

type mockGateway struct {
	mu     sync.Mutex
	events []dispatchedEvent
}

func (m *mockGateway) DispatchToChat(chatID primitive.ObjectID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{ChatID: chatID, Event: event, Data: data})
}

func (m *mockGateway) DispatchToChatExcept(chatID, exceptUserID primitive.ObjectID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{ChatID: chatID, ExceptUserID: exceptUserID, Event: event, Data: data})
}

func (m *mockGateway) DispatchToUser(userID primitive.ObjectID, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, dispatchedEvent{UserID: userID, Event: event, Data: data})
}

func (m *mockGateway) SubscribeToChat(userID, chatID primitive.ObjectID) {}

func (m *mockGateway) UnsubscribeFromChat(userID, chatID primitive.ObjectID) {}

// ---------------------------------------------------------------------------
// Mock media storage
// ---------------------------------------------------------------------------

type mockStorage struct {
	mu        sync.Mutex
	uploaded  []string
	destroyed []string

	UploadFn  func(ctx context.Context, publicID string, reader io.Reader, size int64, contentType string) error
	DestroyFn func(ctx context.Context, publicID string) error
}

func (m *mockStorage) Upload(ctx context.Context, publicID string, reader io.Reader, size int64, contentType string) error {
	if m.UploadFn != nil {
		if err := m.UploadFn(ctx, publicID, reader, size, contentType); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploaded = append(m.uploaded, publicID)
	return nil
}

func (m *mockStorage) URL(publicID string) string {
	return "https://media.test/" + publicID
}

func (m *mockStorage) Destroy(ctx context.Context, publicID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DestroyFn != nil {
		if err := m.DestroyFn(ctx, publicID); err != nil {
			return err
		}
	}
	m.destroyed = append(m.destroyed, publicID)
	return nil
}

func (m *mockStorage) destroyedIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.destroyed))
	copy(out, m.destroyed)
	return out
}

// ---------------------------------------------------------------------------
// Mock repositories
// ---------------------------------------------------------------------------

// mockUserRepo implements database.UserRepository.
type mockUserRepo struct {
	CreateFn        func(ctx context.Context, user *models.User) error
	GetByIDFn       func(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByUsernameFn func(ctx context.Context, username string) (*models.User, error)
	SearchFn        func(ctx context.Context, query string, limit int) ([]models.User, error)
	UpdateFn        func(ctx context.Context, user *models.User) error
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	return nil, nil
}

func (m *mockUserRepo) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, query, limit)
	}
	return nil, nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, user)
	}
	return nil
}

// mockChatRepo implements database.ChatRepository.
type mockChatRepo struct {
	CreateFn       func(ctx context.Context, chat *models.Chat) error
	GetByIDFn      func(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	GetByMemberFn  func(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error)
	FindDirectFn   func(ctx context.Context, userA, userB primitive.ObjectID) (*models.Chat, error)
	UpdateFn       func(ctx context.Context, chat *models.Chat) error
	AddMemberFn    func(ctx context.Context, chatID, userID primitive.ObjectID) error
	RemoveMemberFn func(ctx context.Context, chatID, userID primitive.ObjectID) error
	AddAdminFn     func(ctx context.Context, chatID, userID primitive.ObjectID) error
	RemoveAdminFn  func(ctx context.Context, chatID, userID primitive.ObjectID) error
	TouchFn        func(ctx context.Context, chatID primitive.ObjectID, at time.Time) error
}

func (m *mockChatRepo) Create(ctx context.Context, chat *models.Chat) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, chat)
	}
	return nil
}

func (m *mockChatRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockChatRepo) GetByMember(ctx context.Context, userID primitive.ObjectID) ([]models.Chat, error) {
	if m.GetByMemberFn != nil {
		return m.GetByMemberFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockChatRepo) FindDirect(ctx context.Context, userA, userB primitive.ObjectID) (*models.Chat, error) {
	if m.FindDirectFn != nil {
		return m.FindDirectFn(ctx, userA, userB)
	}
	return nil, nil
}

func (m *mockChatRepo) Update(ctx context.Context, chat *models.Chat) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, chat)
	}
	return nil
}

func (m *mockChatRepo) AddMember(ctx context.Context, chatID, userID primitive.ObjectID) error {
	if m.AddMemberFn != nil {
		return m.AddMemberFn(ctx, chatID, userID)
	}
	return nil
}

func (m *mockChatRepo) RemoveMember(ctx context.Context, chatID, userID primitive.ObjectID) error {
	if m.RemoveMemberFn != nil {
		return m.RemoveMemberFn(ctx, chatID, userID)
	}
	return nil
}

func (m *mockChatRepo) AddAdmin(ctx context.Context, chatID, userID primitive.ObjectID) error {
	if m.AddAdminFn != nil {
		return m.AddAdminFn(ctx, chatID, userID)
	}
	return nil
}

func (m *mockChatRepo) RemoveAdmin(ctx context.Context, chatID, userID primitive.ObjectID) error {
	if m.RemoveAdminFn != nil {
		return m.RemoveAdminFn(ctx, chatID, userID)
	}
	return nil
}

func (m *mockChatRepo) Touch(ctx context.Context, chatID primitive.ObjectID, at time.Time) error {
	if m.TouchFn != nil {
		return m.TouchFn(ctx, chatID, at)
	}
	return nil
}

// mockMessageRepo implements database.MessageRepository.
type mockMessageRepo struct {
	CreateFn      func(ctx context.Context, msg *models.Message) error
	GetByIDFn     func(ctx context.Context, id primitive.ObjectID) (*models.MessageWithSender, error)
	GetByChatIDFn func(ctx context.Context, chatID primitive.ObjectID, before *primitive.ObjectID, limit int) ([]models.MessageWithSender, error)
	DeleteFn      func(ctx context.Context, id primitive.ObjectID) error
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, msg)
	}
	return nil
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.MessageWithSender, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockMessageRepo) GetByChatID(ctx context.Context, chatID primitive.ObjectID, before *primitive.ObjectID, limit int) ([]models.MessageWithSender, error) {
	if m.GetByChatIDFn != nil {
		return m.GetByChatIDFn(ctx, chatID, before, limit)
	}
	return nil, nil
}

func (m *mockMessageRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return nil
}

// mockAttachmentRepo implements database.AttachmentRepository.
type mockAttachmentRepo struct {
	CreateFn      func(ctx context.Context, staged *models.StagedAttachment) error
	GetByIDsFn    func(ctx context.Context, ids []primitive.ObjectID) ([]models.StagedAttachment, error)
	DeleteByIDsFn func(ctx context.Context, ids []primitive.ObjectID) error
}

func (m *mockAttachmentRepo) Create(ctx context.Context, staged *models.StagedAttachment) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, staged)
	}
	return nil
}

func (m *mockAttachmentRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.StagedAttachment, error) {
	if m.GetByIDsFn != nil {
		return m.GetByIDsFn(ctx, ids)
	}
	return nil, nil
}

func (m *mockAttachmentRepo) DeleteByIDs(ctx context.Context, ids []primitive.ObjectID) error {
	if m.DeleteByIDsFn != nil {
		return m.DeleteByIDsFn(ctx, ids)
	}
	return nil
}
