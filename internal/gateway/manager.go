package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/auth"
	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/redis"
)

const replayBufferSize = 100

// Manager manages all active WebSocket connections and event routing.
// Subscriptions are keyed by chat: every member of a chat who is connected
// receives that chat's dispatch events.
type Manager struct {
	mu            sync.RWMutex
	connections   map[primitive.ObjectID]*Connection              // userID → connection
	subscriptions map[primitive.ObjectID]map[primitive.ObjectID]bool // chatID → set of userIDs
	sessions      map[string]*Connection                          // sessionID → connection

	// Ring buffer per chat for session resume replay.
	replayMu     sync.RWMutex
	replayBuffer map[primitive.ObjectID]*ringBuffer

	tokens *auth.TokenService
	chats  database.ChatRepository
	redis  *redis.Client
}

// NewManager creates a new gateway Manager.
func NewManager(tokens *auth.TokenService, chats database.ChatRepository, redisClient *redis.Client) *Manager {
	return &Manager{
		connections:   make(map[primitive.ObjectID]*Connection),
		subscriptions: make(map[primitive.ObjectID]map[primitive.ObjectID]bool),
		sessions:      make(map[string]*Connection),
		replayBuffer:  make(map[primitive.ObjectID]*ringBuffer),
		tokens:        tokens,
		chats:         chats,
		redis:         redisClient,
	}
}

// register adds a connection to the manager.
func (m *Manager) register(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Disconnect existing connection for this user.
	if old, ok := m.connections[c.UserID]; ok {
		old.SendPayload(GatewayPayload{Op: OpReconnect})
		old.Close()
		delete(m.sessions, old.SessionID)
	}

	m.connections[c.UserID] = c
	m.sessions[c.SessionID] = c
}

// unregister removes a connection from the manager and cleans up subscriptions.
func (m *Manager) unregister(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.connections[c.UserID]; ok && existing == c {
		delete(m.connections, c.UserID)

		// Remove from all chat subscriptions.
		for chatID, members := range m.subscriptions {
			delete(members, c.UserID)
			if len(members) == 0 {
				delete(m.subscriptions, chatID)
			}
		}

		// Clear presence with grace period.
		go m.clearPresenceWithGrace(c.UserID)
	}

	delete(m.sessions, c.SessionID)
}

// clearPresenceWithGrace waits before setting offline, allowing reconnection.
func (m *Manager) clearPresenceWithGrace(userID primitive.ObjectID) {
	time.Sleep(10 * time.Second)

	m.mu.RLock()
	_, stillConnected := m.connections[userID]
	m.mu.RUnlock()

	if stillConnected {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.redis.SetPresence(ctx, userID, "offline"); err != nil {
		slog.Error("failed to clear presence", "userID", userID, "error", err)
	}

	m.broadcastPresence(userID, "offline")
}

// subscribe adds a user to a chat's event subscription.
func (m *Manager) subscribe(userID, chatID primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.subscriptions[chatID] == nil {
		m.subscriptions[chatID] = make(map[primitive.ObjectID]bool)
	}
	m.subscriptions[chatID][userID] = true
}

// SubscribeToChat adds a user to a chat's event subscription.
func (m *Manager) SubscribeToChat(userID, chatID primitive.ObjectID) {
	m.subscribe(userID, chatID)
}

// UnsubscribeFromChat removes a user from a chat's event subscription.
func (m *Manager) UnsubscribeFromChat(userID, chatID primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if members, ok := m.subscriptions[chatID]; ok {
		delete(members, userID)
		if len(members) == 0 {
			delete(m.subscriptions, chatID)
		}
	}
}

// DispatchToUser sends a dispatch event to a specific connected user.
func (m *Manager) DispatchToUser(userID primitive.ObjectID, event string, data any) {
	m.mu.RLock()
	c, ok := m.connections[userID]
	m.mu.RUnlock()

	if ok {
		c.SendEvent(event, data)
	}
}

// DispatchToChat sends a dispatch event to all users subscribed to a chat.
func (m *Manager) DispatchToChat(chatID primitive.ObjectID, event string, data any) {
	m.mu.RLock()
	members := m.subscriptions[chatID]
	conns := make([]*Connection, 0, len(members))
	for userID := range members {
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.SendEvent(event, data)
	}

	m.storeReplayEvent(chatID, Event{Name: event, Data: data})
}

// DispatchToChatExcept sends a dispatch event to all chat subscribers except
// one user. Message events use this so the acting client does not echo.
func (m *Manager) DispatchToChatExcept(chatID, exceptUserID primitive.ObjectID, event string, data any) {
	m.mu.RLock()
	members := m.subscriptions[chatID]
	conns := make([]*Connection, 0, len(members))
	for userID := range members {
		if userID == exceptUserID {
			continue
		}
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.SendEvent(event, data)
	}

	m.storeReplayEvent(chatID, Event{Name: event, Data: data})
}

// sendToChatInternal sends an Event to all chat subscribers (internal use).
func (m *Manager) sendToChatInternal(chatID primitive.ObjectID, event Event) {
	m.mu.RLock()
	members := m.subscriptions[chatID]
	conns := make([]*Connection, 0, len(members))
	for userID := range members {
		if c, ok := m.connections[userID]; ok {
			conns = append(conns, c)
		}
	}
	m.mu.RUnlock()

	for _, c := range conns {
		c.SendEvent(event.Name, event.Data)
	}

	m.storeReplayEvent(chatID, event)
}

// handleIdentify processes an IDENTIFY payload from a client.
func (m *Manager) handleIdentify(c *Connection, data json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(data, &identify); err != nil {
		slog.Error("invalid identify data", "error", err)
		c.Close()
		return
	}

	userID, err := m.tokens.ValidateAccessToken(identify.Token)
	if err != nil {
		slog.Warn("invalid token in identify", "error", err)
		c.Close()
		return
	}

	c.UserID = userID
	c.SessionID = uuid.NewString()

	// Load the user's chats and subscribe to each.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chats, err := m.chats.GetByMember(ctx, c.UserID)
	if err != nil {
		slog.Error("failed to get chats for user", "userID", c.UserID, "error", err)
		c.Close()
		return
	}

	m.register(c)

	chatIDs := make([]primitive.ObjectID, len(chats))
	for i, ch := range chats {
		chatIDs[i] = ch.ID
		m.subscribe(c.UserID, ch.ID)
	}

	// Set presence to online.
	if err := m.redis.SetPresence(ctx, c.UserID, "online"); err != nil {
		slog.Error("failed to set presence", "userID", c.UserID, "error", err)
	}

	c.SendEvent(EventReady, ReadyData{
		SessionID: c.SessionID,
		UserID:    c.UserID,
		Chats:     chatIDs,
	})

	// Broadcast presence online to the user's chats.
	m.broadcastPresence(c.UserID, "online")
}

// handleResume processes a RESUME payload to replay missed events.
func (m *Manager) handleResume(c *Connection, data json.RawMessage) {
	var resume ResumeData
	if err := json.Unmarshal(data, &resume); err != nil {
		slog.Error("invalid resume data", "error", err)
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	userID, err := m.tokens.ValidateAccessToken(resume.Token)
	if err != nil {
		slog.Warn("invalid token in resume", "error", err)
		c.Close()
		return
	}

	c.UserID = userID
	c.SessionID = resume.SessionID

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chats, err := m.chats.GetByMember(ctx, c.UserID)
	if err != nil {
		slog.Error("failed to get chats on resume", "userID", c.UserID, "error", err)
		c.SendPayload(GatewayPayload{Op: OpReconnect})
		c.Close()
		return
	}

	m.register(c)

	for _, ch := range chats {
		m.subscribe(c.UserID, ch.ID)

		// Replay missed events from ring buffer.
		m.replayMu.RLock()
		rb, ok := m.replayBuffer[ch.ID]
		m.replayMu.RUnlock()

		if ok {
			events := rb.since(resume.Sequence)
			for _, ev := range events {
				c.SendEvent(ev.Name, ev.Data)
			}
		}
	}
}

// handlePresenceUpdate processes a client presence update.
func (m *Manager) handlePresenceUpdate(c *Connection, data json.RawMessage) {
	var update ClientPresenceUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return
	}

	switch update.Status {
	case "online", "idle", "dnd", "invisible":
		// valid
	default:
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status := update.Status
	if status == "invisible" {
		status = "offline"
	}
	if err := m.redis.SetPresence(ctx, c.UserID, status); err != nil {
		slog.Error("failed to update presence", "userID", c.UserID, "error", err)
		return
	}

	m.broadcastPresence(c.UserID, status)
}

// broadcastPresence sends a PRESENCE_UPDATE event to all chats the user is in.
func (m *Manager) broadcastPresence(userID primitive.ObjectID, status string) {
	event := Event{
		Name: EventPresenceUpdate,
		Data: PresenceUpdateData{
			UserID: userID,
			Status: status,
		},
	}

	m.mu.RLock()
	var chatIDs []primitive.ObjectID
	for chatID, members := range m.subscriptions {
		if members[userID] {
			chatIDs = append(chatIDs, chatID)
		}
	}
	m.mu.RUnlock()

	for _, chatID := range chatIDs {
		m.sendToChatInternal(chatID, event)
	}
}

// storeReplayEvent adds an event to the chat's replay ring buffer.
func (m *Manager) storeReplayEvent(chatID primitive.ObjectID, event Event) {
	m.replayMu.Lock()
	defer m.replayMu.Unlock()

	rb, ok := m.replayBuffer[chatID]
	if !ok {
		rb = newRingBuffer(replayBufferSize)
		m.replayBuffer[chatID] = rb
	}
	rb.add(event)
}

// sequencedEvent pairs an event with its sequence number for replay.
type sequencedEvent struct {
	Sequence int64
	Event
}

// ringBuffer is a fixed-size circular buffer for replay events.
type ringBuffer struct {
	events []sequencedEvent
	size   int
	pos    int
	seq    int64
	full   bool
}

func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		events: make([]sequencedEvent, size),
		size:   size,
	}
}

func (rb *ringBuffer) add(event Event) {
	rb.seq++
	rb.events[rb.pos] = sequencedEvent{Sequence: rb.seq, Event: event}
	rb.pos = (rb.pos + 1) % rb.size
	if rb.pos == 0 {
		rb.full = true
	}
}

// since returns all events with sequence > afterSeq.
func (rb *ringBuffer) since(afterSeq int64) []Event {
	var result []Event
	count := rb.size
	if !rb.full {
		count = rb.pos
	}

	start := 0
	if rb.full {
		start = rb.pos
	}

	for i := 0; i < count; i++ {
		idx := (start + i) % rb.size
		if rb.events[idx].Sequence > afterSeq {
			result = append(result, rb.events[idx].Event)
		}
	}
	return result
}
