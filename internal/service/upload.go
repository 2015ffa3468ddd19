package service

import (
	"context"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"

	"github.com/arnb-smnta/chatline/internal/database"
	"github.com/arnb-smnta/chatline/internal/models"
)

const (
	maxUploadSize  = 10 << 20 // 10 MB
	maxUploadBatch = 10
)

var allowedContentTypes = map[string]bool{
	"application/pdf": true,
	"text/plain":      true,
}

// MediaStorage abstracts the vendor object store for testability.
type MediaStorage interface {
	Upload(ctx context.Context, publicID string, reader io.Reader, size int64, contentType string) error
	URL(publicID string) string
	Destroy(ctx context.Context, publicID string) error
}

// UploadFile describes one file in an upload batch.
type UploadFile struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadService stages media attachments for later claiming by a message.
type UploadService struct {
	attachments database.AttachmentRepository
	chats       database.ChatRepository
	storage     MediaStorage
}

// NewUploadService creates an UploadService.
func NewUploadService(
	attachments database.AttachmentRepository,
	chats database.ChatRepository,
	storage MediaStorage,
) *UploadService {
	return &UploadService{
		attachments: attachments,
		chats:       chats,
		storage:     storage,
	}
}

// UploadFiles stores a batch of files in the media store concurrently and
// records one staged attachment per file. The files in a batch are
// independent; if any upload fails, objects already stored by this batch are
// best-effort removed so a failed batch leaves no cloud state behind.
func (s *UploadService) UploadFiles(ctx context.Context, chatID, userID primitive.ObjectID, files []UploadFile) ([]models.StagedAttachment, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, Internal("INTERNAL", "internal server error")
	}
	if chat == nil {
		return nil, NotFound("NOT_FOUND", "chat not found")
	}
	if !chat.HasMember(userID) {
		return nil, Forbidden("NOT_MEMBER", "you are not a member of this chat")
	}

	if len(files) == 0 {
		return nil, BadRequest("MISSING_FILE", "at least one file is required")
	}
	if len(files) > maxUploadBatch {
		return nil, BadRequest("TOO_MANY_FILES", "at most 10 files per upload")
	}
	for _, f := range files {
		if f.Size > maxUploadSize {
			return nil, BadRequest("FILE_TOO_LARGE", "each file must be under 10 MB")
		}
		if !isAllowedContentType(f.ContentType) {
			return nil, BadRequest("INVALID_CONTENT_TYPE", "file type not allowed")
		}
	}

	now := time.Now()
	staged := make([]models.StagedAttachment, len(files))

	var mu sync.Mutex
	var stored []string // public IDs confirmed in the object store

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			publicID := newPublicID(f.Filename)

			src, err := f.Open()
			if err != nil {
				return err
			}
			defer src.Close()

			if err := s.storage.Upload(gctx, publicID, src, f.Size, f.ContentType); err != nil {
				return err
			}

			mu.Lock()
			stored = append(stored, publicID)
			mu.Unlock()

			staged[i] = models.StagedAttachment{
				ID:         primitive.NewObjectID(),
				ChatID:     chatID,
				UploaderID: userID,
				Attachment: models.Attachment{
					PublicID:    publicID,
					Filename:    filepath.Base(f.Filename),
					ContentType: f.ContentType,
					Size:        f.Size,
					URL:         s.storage.URL(publicID),
					UploadedAt:  now,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.rollbackStored(stored)
		return nil, NewError(ErrInternal, "UPLOAD_FAILED", "failed to upload files")
	}

	for i := range staged {
		if err := s.attachments.Create(ctx, &staged[i]); err != nil {
			return nil, Internal("INTERNAL", "internal server error")
		}
	}

	return staged, nil
}

// rollbackStored removes objects a failed batch managed to store.
func (s *UploadService) rollbackStored(publicIDs []string) {
	if len(publicIDs) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), destroyTimeout)
	defer cancel()

	for _, id := range publicIDs {
		if err := s.storage.Destroy(ctx, id); err != nil {
			slog.Error("failed to roll back stored object", "publicID", id, "error", err)
		}
	}
}

// newPublicID mints an opaque object key. The original filename contributes
// only its extension; everything identifying comes from the UUID.
func newPublicID(filename string) string {
	return uuid.NewString() + strings.ToLower(path.Ext(filename))
}

func isAllowedContentType(ct string) bool {
	if allowedContentTypes[ct] {
		return true
	}
	return strings.HasPrefix(ct, "image/")
}
