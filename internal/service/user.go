package service

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/models"
)

const maxSearchResults = 20

// UserService handles user profile business logic.
type UserService struct {
	users database.UserRepository
}

// NewUserService creates a UserService.
func NewUserService(users database.UserRepository) *UserService {
	return &UserService{users: users}
}

// GetByID returns the user with the given ID.
func (s *UserService) GetByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if user == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}
	return user, nil
}

// UpdateProfile updates the authenticated user's display name and/or avatar.
func (s *UserService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, displayName *string, avatarURL *string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if user == nil {
		return nil, NotFound("NOT_FOUND", "user not found")
	}

	if displayName != nil {
		if len(*displayName) < 1 || len(*displayName) > 32 {
			return nil, BadRequest("INVALID_DISPLAY_NAME", "display name must be 1-32 characters")
		}
		user.DisplayName = *displayName
	}
	if avatarURL != nil {
		user.AvatarURL = avatarURL
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}

	return user, nil
}

// Search finds users by username or display name for starting chats.
func (s *UserService) Search(ctx context.Context, query string) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, BadRequest("MISSING_QUERY", "search query is required")
	}

	users, err := s.users.Search(ctx, query, maxSearchResults)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if users == nil {
		users = []models.User{}
	}
	return users, nil
}
