package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a conversation document. Direct chats hold exactly two members and
// no admins; group chats carry a name, an admin list, and the admin-only flag.
type Chat struct {
	ID         primitive.ObjectID   `bson:"_id" json:"id"`
	Name       string               `bson:"name,omitempty" json:"name,omitempty"`
	IsGroup    bool                 `bson:"is_group" json:"is_group"`
	OnlyAdmins bool                 `bson:"only_admins" json:"only_admins"`
	MemberIDs  []primitive.ObjectID `bson:"member_ids" json:"member_ids"`
	AdminIDs   []primitive.ObjectID `bson:"admin_ids,omitempty" json:"admin_ids,omitempty"`
	CreatedBy  primitive.ObjectID   `bson:"created_by" json:"created_by"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}

// HasMember reports whether userID belongs to the chat.
func (c *Chat) HasMember(userID primitive.ObjectID) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// HasAdmin reports whether userID is an admin of the chat.
func (c *Chat) HasAdmin(userID primitive.ObjectID) bool {
	for _, id := range c.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
