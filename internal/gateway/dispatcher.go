package gateway

import "go.mongodb.org/mongo-driver/bson/primitive"

// Dispatcher is the interface used by services to push events to connected
// WebSocket clients. The concrete Manager implements this interface.
type Dispatcher interface {
	DispatchToChat(chatID primitive.ObjectID, event string, data any)
	DispatchToChatExcept(chatID, exceptUserID primitive.ObjectID, event string, data any)
	DispatchToUser(userID primitive.ObjectID, event string, data any)
	SubscribeToChat(userID, chatID primitive.ObjectID)
	UnsubscribeFromChat(userID, chatID primitive.ObjectID)
}
