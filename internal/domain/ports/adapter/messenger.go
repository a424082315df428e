package adapter

import (
	"context"

	"telegram-content-relay/internal/domain/model"
)

// ProgressFunc receives byte progress during downloads and uploads.
type ProgressFunc func(current, total int64)

// RemoteMessage is a fetched source message with enough attributes to decide
// a relay strategy.
type RemoteMessage struct {
	Ref      model.MessageRef
	Kind     model.MediaKind
	Text     string // message text, or caption for media
	FileID   string // platform media reference for by-reference sends
	FileName string
	FileSize int64
	Duration int
	Width    int
	Height   int
}

// MediaUpload describes one local file to post.
type MediaUpload struct {
	Kind     model.MediaKind
	Path     string
	Caption  string
	FileName string
	Duration int
	Width    int
	Height   int
}

// MessengerClient is one live identity on the messaging platform. Capability
// (reading private chats, posting under a brand) comes from which credential
// the client was built with, not from the interface.
type MessengerClient interface {
	// GetMessage fetches a source message. domain.ErrNotFound covers missing,
	// deleted, and access-denied sources alike.
	GetMessage(ctx context.Context, ref model.SourceReference) (*RemoteMessage, error)

	SendText(ctx context.Context, chatID int64, text string, replyTo int) (model.MessageRef, error)
	// SendMediaByID re-posts existing media by platform reference without
	// moving bytes through this process.
	SendMediaByID(ctx context.Context, chatID int64, msg *RemoteMessage, caption string, replyTo int) error
	UploadMedia(ctx context.Context, chatID int64, up MediaUpload, replyTo int, progress ProgressFunc) (model.MessageRef, error)
	CopyMessage(ctx context.Context, toChatID int64, from model.MessageRef) error

	// Download fetches media bytes into dir and returns the local path.
	Download(ctx context.Context, msg *RemoteMessage, dir string, progress ProgressFunc) (string, error)

	EditMessage(ctx context.Context, ref model.MessageRef, text string) error
	DeleteMessage(ctx context.Context, ref model.MessageRef) error
	Close()
}

// ClientFactory builds live clients from credentials. Construction performs
// the network handshake and may be slow; the pool serializes it per user.
type ClientFactory interface {
	NewBotClient(ctx context.Context, token string) (MessengerClient, error)
	NewSessionClient(ctx context.Context, session string) (MessengerClient, error)
}
