package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/gateway"
	"github.com/arnb-smnta/chatline/internal/models"
	"github.com/arnb-smnta/chatline/internal/service"
)

func newChatHandler(chats *mockChatRepo, users *mockUserRepo, gw *mockGateway) *ChatHandler {
	return NewChatHandler(service.NewChatService(chats, users, gw))
}

func knownUsers(ids ...primitive.ObjectID) *mockUserRepo {
	return &mockUserRepo{
		GetByIDFn: func(_ context.Context, id primitive.ObjectID) (*models.User, error) {
			for _, known := range ids {
				if id == known {
					return &models.User{ID: id, Username: "u" + id.Hex()[22:]}, nil
				}
			}
			return nil, nil
		},
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	return resp.Error.Code
}

// ---------------------------------------------------------------------------
// Direct chat tests
// ---------------------------------------------------------------------------

func TestCreateDirect_New(t *testing.T) {
	gw := &mockGateway{}
	var created *models.Chat
	chats := &mockChatRepo{
		CreateFn: func(_ context.Context, chat *models.Chat) error {
			created = chat
			return nil
		},
	}
	h := newChatHandler(chats, knownUsers(testOtherID), gw)

	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/direct",
		strings.NewReader(`{"user_id":"`+testOtherID.Hex()+`"}`))
	setAuthUser(c, testUserID)

	if err := h.CreateDirect(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if created == nil || created.IsGroup {
		t.Fatalf("expected a direct chat, got %+v", created)
	}
	if len(created.MemberIDs) != 2 {
		t.Fatalf("expected 2 members, got %v", created.MemberIDs)
	}
	// Members are stored in sorted order for the unique index.
	if created.MemberIDs[0].Hex() > created.MemberIDs[1].Hex() {
		t.Fatalf("member pair not sorted: %v", created.MemberIDs)
	}
	if len(gw.events) != 1 || gw.events[0].Event != gateway.EventChatCreate || gw.events[0].UserID != testOtherID {
		t.Fatalf("expected CHAT_CREATE pushed to the other user, got %+v", gw.events)
	}
}

func TestCreateDirect_Existing(t *testing.T) {
	existing := &models.Chat{ID: testChatID, MemberIDs: []primitive.ObjectID{testUserID, testOtherID}}
	createCalled := false
	chats := &mockChatRepo{
		FindDirectFn: func(_ context.Context, _, _ primitive.ObjectID) (*models.Chat, error) {
			return existing, nil
		},
		CreateFn: func(_ context.Context, _ *models.Chat) error {
			createCalled = true
			return nil
		},
	}
	h := newChatHandler(chats, knownUsers(testOtherID), &mockGateway{})

	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/direct",
		strings.NewReader(`{"user_id":"`+testOtherID.Hex()+`"}`))
	setAuthUser(c, testUserID)

	if err := h.CreateDirect(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if createCalled {
		t.Fatal("should have returned the existing chat, not created a new one")
	}
}

func TestCreateDirect_Self(t *testing.T) {
	h := newChatHandler(&mockChatRepo{}, knownUsers(testUserID), &mockGateway{})

	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/direct",
		strings.NewReader(`{"user_id":"`+testUserID.Hex()+`"}`))
	setAuthUser(c, testUserID)

	if err := h.CreateDirect(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateDirect_UnknownUser(t *testing.T) {
	h := newChatHandler(&mockChatRepo{}, knownUsers(), &mockGateway{})

	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/direct",
		strings.NewReader(`{"user_id":"`+testOtherID.Hex()+`"}`))
	setAuthUser(c, testUserID)

	if err := h.CreateDirect(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Group chat tests
// ---------------------------------------------------------------------------

func TestCreateGroup_Success(t *testing.T) {
	gw := &mockGateway{}
	var created *models.Chat
	chats := &mockChatRepo{
		CreateFn: func(_ context.Context, chat *models.Chat) error {
			created = chat
			return nil
		},
	}
	h := newChatHandler(chats, knownUsers(testOtherID, testAdminID), gw)

	body := `{"name":"study group","member_ids":["` + testOtherID.Hex() + `","` + testAdminID.Hex() + `"]}`
	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/group", strings.NewReader(body))
	setAuthUser(c, testUserID)

	if err := h.CreateGroup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if created == nil || !created.IsGroup {
		t.Fatalf("expected a group chat, got %+v", created)
	}
	if len(created.MemberIDs) != 3 {
		t.Fatalf("expected creator plus two members, got %v", created.MemberIDs)
	}
	if len(created.AdminIDs) != 1 || created.AdminIDs[0] != testUserID {
		t.Fatalf("creator should be the sole admin, got %v", created.AdminIDs)
	}
}

func TestCreateGroup_TooFewMembers(t *testing.T) {
	h := newChatHandler(&mockChatRepo{}, knownUsers(testOtherID), &mockGateway{})

	// Duplicates of the creator do not count.
	body := `{"name":"tiny","member_ids":["` + testUserID.Hex() + `","` + testOtherID.Hex() + `"]}`
	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/group", strings.NewReader(body))
	setAuthUser(c, testUserID)

	if err := h.CreateGroup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "NOT_ENOUGH_MEMBERS" {
		t.Fatalf("expected NOT_ENOUGH_MEMBERS, got %q", code)
	}
}

func TestCreateGroup_EmptyName(t *testing.T) {
	h := newChatHandler(&mockChatRepo{}, knownUsers(testOtherID, testAdminID), &mockGateway{})

	body := `{"name":"","member_ids":["` + testOtherID.Hex() + `","` + testAdminID.Hex() + `"]}`
	c, rec := newTestContext(http.MethodPost, "/api/v1/chats/group", strings.NewReader(body))
	setAuthUser(c, testUserID)

	if err := h.CreateGroup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Update tests
// ---------------------------------------------------------------------------

func TestUpdateChat_AdminTogglesOnlyAdmins(t *testing.T) {
	gw := &mockGateway{}
	var updated *models.Chat
	chats := groupChatMock()
	chats.UpdateFn = func(_ context.Context, chat *models.Chat) error {
		updated = chat
		return nil
	}
	h := newChatHandler(chats, knownUsers(), gw)

	c, rec := newTestContext(http.MethodPatch, "/api/v1/chats/x", strings.NewReader(`{"only_admins":true}`))
	c.SetParamNames("id")
	c.SetParamValues(testChatID.Hex())
	setAuthUser(c, testAdminID)

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if updated == nil || !updated.OnlyAdmins {
		t.Fatalf("only_admins not persisted: %+v", updated)
	}
	if len(gw.events) != 1 || gw.events[0].Event != gateway.EventChatUpdate {
		t.Fatalf("expected CHAT_UPDATE event, got %+v", gw.events)
	}
}

func TestUpdateChat_NonAdmin(t *testing.T) {
	h := newChatHandler(groupChatMock(), knownUsers(), &mockGateway{})

	c, rec := newTestContext(http.MethodPatch, "/api/v1/chats/x", strings.NewReader(`{"name":"renamed"}`))
	c.SetParamNames("id")
	c.SetParamValues(testChatID.Hex())
	setAuthUser(c, testUserID)

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

// ---------------------------------------------------------------------------
// Membership tests
// ---------------------------------------------------------------------------

func TestAddMember_AdminOnly(t *testing.T) {
	h := newChatHandler(groupChatMock(), knownUsers(testStrange), &mockGateway{})

	c, rec := newTestContext(http.MethodPut, "/api/v1/chats/x/members/y", nil)
	c.SetParamNames("id", "userID")
	c.SetParamValues(testChatID.Hex(), testStrange.Hex())
	setAuthUser(c, testUserID)

	if err := h.AddMember(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAddMember_Success(t *testing.T) {
	gw := &mockGateway{}
	addCalled := false
	chats := groupChatMock()
	chats.AddMemberFn = func(_ context.Context, _, userID primitive.ObjectID) error {
		if userID != testStrange {
			t.Fatalf("wrong user added: %v", userID)
		}
		addCalled = true
		return nil
	}
	h := newChatHandler(chats, knownUsers(testStrange), gw)

	c, rec := newTestContext(http.MethodPut, "/api/v1/chats/x/members/y", nil)
	c.SetParamNames("id", "userID")
	c.SetParamValues(testChatID.Hex(), testStrange.Hex())
	setAuthUser(c, testAdminID)

	if err := h.AddMember(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !addCalled {
		t.Fatal("member not added")
	}
}

func TestRemoveMember_SelfLeave(t *testing.T) {
	removeCalled := false
	chats := groupChatMock()
	chats.RemoveMemberFn = func(_ context.Context, _, userID primitive.ObjectID) error {
		removeCalled = userID == testUserID
		return nil
	}
	h := newChatHandler(chats, knownUsers(), &mockGateway{})

	c, rec := newTestContext(http.MethodDelete, "/api/v1/chats/x/members/y", nil)
	c.SetParamNames("id", "userID")
	c.SetParamValues(testChatID.Hex(), testUserID.Hex())
	setAuthUser(c, testUserID)

	if err := h.RemoveMember(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !removeCalled {
		t.Fatal("member not removed")
	}
}

func TestRemoveMember_LastAdminCannotLeave(t *testing.T) {
	h := newChatHandler(groupChatMock(), knownUsers(), &mockGateway{})

	c, rec := newTestContext(http.MethodDelete, "/api/v1/chats/x/members/y", nil)
	c.SetParamNames("id", "userID")
	c.SetParamValues(testChatID.Hex(), testAdminID.Hex())
	setAuthUser(c, testAdminID)

	if err := h.RemoveMember(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "LAST_ADMIN" {
		t.Fatalf("expected LAST_ADMIN, got %q", code)
	}
}

func TestDemoteAdmin_LastAdmin(t *testing.T) {
	h := newChatHandler(groupChatMock(), knownUsers(), &mockGateway{})

	c, rec := newTestContext(http.MethodDelete, "/api/v1/chats/x/admins/y", nil)
	c.SetParamNames("id", "userID")
	c.SetParamValues(testChatID.Hex(), testAdminID.Hex())
	setAuthUser(c, testAdminID)

	if err := h.DemoteAdmin(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec.Body.Bytes()); code != "LAST_ADMIN" {
		t.Fatalf("expected LAST_ADMIN, got %q", code)
	}
}

func TestPromoteAdmin_Success(t *testing.T) {
	addCalled := false
	chats := groupChatMock()
	chats.AddAdminFn = func(_ context.Context, _, userID primitive.ObjectID) error {
		addCalled = userID == testUserID
		return nil
	}
	h := newChatHandler(chats, knownUsers(), &mockGateway{})

	c, rec := newTestContext(http.MethodPut, "/api/v1/chats/x/admins/y", nil)
	c.SetParamNames("id", "userID")
	c.SetParamValues(testChatID.Hex(), testUserID.Hex())
	setAuthUser(c, testAdminID)

	if err := h.PromoteAdmin(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	if !addCalled {
		t.Fatal("admin not added")
	}
}
