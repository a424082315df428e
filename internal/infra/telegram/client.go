// File: internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/adapter"
)

// Client is one live Bot API identity implementing adapter.MessengerClient.
type Client struct {
	bot         *tgbotapi.BotAPI
	stagingChat int64
	http        *http.Client
	log         *zerolog.Logger
}

var _ adapter.MessengerClient = (*Client)(nil)

func NewClient(token string, stagingChat int64, logger *zerolog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot handshake: %w", err)
	}
	l := logger.With().Str("component", "TelegramClient").Str("identity", bot.Self.UserName).Logger()
	return &Client{
		bot:         bot,
		stagingChat: stagingChat,
		http:        &http.Client{Timeout: 10 * time.Minute},
		log:         &l,
	}, nil
}

// GetMessage fetches a source message by forwarding a probe copy into the
// staging chat and reading the attributes off the returned copy. The probe is
// deleted right away. Any platform refusal maps to domain.ErrNotFound: from
// the engine's view a message it cannot reach does not exist.
func (c *Client) GetMessage(ctx context.Context, ref model.SourceReference) (*adapter.RemoteMessage, error) {
	if c.stagingChat == 0 {
		return nil, domain.ErrNotFound
	}

	fwd := tgbotapi.ForwardConfig{
		BaseChat:  tgbotapi.BaseChat{ChatID: c.stagingChat},
		MessageID: ref.MessageID,
	}
	if ref.Visibility == model.VisibilityPrivate {
		fwd.FromChatID = ref.ChatID()
	} else {
		fwd.FromChannelUsername = "@" + ref.Chat
	}

	probe, err := c.bot.Send(fwd)
	if err != nil {
		c.log.Debug().Err(err).Str("source", ref.Render()).Msg("probe forward refused")
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, ref.Render())
	}
	defer func() {
		_, _ = c.bot.Request(tgbotapi.NewDeleteMessage(c.stagingChat, probe.MessageID))
	}()

	return remoteFromMessage(ref, &probe), nil
}

func remoteFromMessage(ref model.SourceReference, m *tgbotapi.Message) *adapter.RemoteMessage {
	out := &adapter.RemoteMessage{
		Ref:  model.MessageRef{ChatID: ref.ChatID(), MessageID: ref.MessageID},
		Text: m.Text,
	}
	out.Kind = model.DetectKind(model.MediaAttributes{
		HasVideo:     m.Video != nil,
		HasVideoNote: m.VideoNote != nil,
		HasVoice:     m.Voice != nil,
		HasAudio:     m.Audio != nil,
		HasPhoto:     len(m.Photo) > 0,
		HasSticker:   m.Sticker != nil,
		HasDocument:  m.Document != nil,
	})
	if out.Kind.IsMedia() {
		out.Text = m.Caption
	}

	switch out.Kind {
	case model.MediaVideo:
		out.FileID = m.Video.FileID
		out.FileName = m.Video.FileName
		out.FileSize = int64(m.Video.FileSize)
		out.Duration = m.Video.Duration
		out.Width = m.Video.Width
		out.Height = m.Video.Height
	case model.MediaVideoNote:
		out.FileID = m.VideoNote.FileID
		out.FileSize = int64(m.VideoNote.FileSize)
		out.Duration = m.VideoNote.Duration
		out.Width = m.VideoNote.Length
		out.Height = m.VideoNote.Length
	case model.MediaVoice:
		out.FileID = m.Voice.FileID
		out.FileSize = int64(m.Voice.FileSize)
		out.Duration = m.Voice.Duration
	case model.MediaAudio:
		out.FileID = m.Audio.FileID
		out.FileName = m.Audio.FileName
		out.FileSize = int64(m.Audio.FileSize)
		out.Duration = m.Audio.Duration
	case model.MediaPhoto:
		best := m.Photo[len(m.Photo)-1]
		out.FileID = best.FileID
		out.FileSize = int64(best.FileSize)
		out.Width = best.Width
		out.Height = best.Height
	case model.MediaSticker:
		out.FileID = m.Sticker.FileID
		out.FileSize = int64(m.Sticker.FileSize)
		out.Width = m.Sticker.Width
		out.Height = m.Sticker.Height
	case model.MediaDocument:
		out.FileID = m.Document.FileID
		out.FileName = m.Document.FileName
		out.FileSize = int64(m.Document.FileSize)
	}
	return out
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, replyTo int) (model.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyToMessageID = replyTo
	sent, err := c.bot.Send(msg)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("send text: %w", err)
	}
	return model.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (c *Client) SendMediaByID(ctx context.Context, chatID int64, msg *adapter.RemoteMessage, caption string, replyTo int) error {
	cfg, err := mediaConfig(chatID, msg.Kind, tgbotapi.FileID(msg.FileID), caption, replyTo, msg.Duration, msg.Width, msg.Height)
	if err != nil {
		return err
	}
	if _, err := c.bot.Send(cfg); err != nil {
		return fmt.Errorf("send by reference: %w", err)
	}
	return nil
}

func (c *Client) UploadMedia(ctx context.Context, chatID int64, up adapter.MediaUpload, replyTo int, progress adapter.ProgressFunc) (model.MessageRef, error) {
	f, err := os.Open(up.Path)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("stat upload: %w", err)
	}

	name := up.FileName
	if name == "" {
		name = filepath.Base(up.Path)
	}
	file := tgbotapi.FileReader{
		Name:   name,
		Reader: &progressReader{r: f, total: info.Size(), progress: progress},
	}

	cfg, err := mediaConfig(chatID, up.Kind, file, up.Caption, replyTo, up.Duration, up.Width, up.Height)
	if err != nil {
		return model.MessageRef{}, err
	}
	sent, err := c.bot.Send(cfg)
	if err != nil {
		return model.MessageRef{}, fmt.Errorf("upload: %w", err)
	}
	if progress != nil {
		progress(info.Size(), info.Size())
	}
	return model.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// mediaConfig builds the kind-specific send config. The Bot API has a
// distinct method per media kind; this is the single place that mapping
// lives.
func mediaConfig(chatID int64, kind model.MediaKind, file tgbotapi.RequestFileData, caption string, replyTo, duration, width, height int) (tgbotapi.Chattable, error) {
	switch kind {
	case model.MediaVideo:
		cfg := tgbotapi.NewVideo(chatID, file)
		cfg.Caption = caption
		cfg.ReplyToMessageID = replyTo
		cfg.Duration = duration
		cfg.SupportsStreaming = true
		return cfg, nil
	case model.MediaVideoNote:
		cfg := tgbotapi.NewVideoNote(chatID, width, file)
		cfg.ReplyToMessageID = replyTo
		cfg.Duration = duration
		return cfg, nil
	case model.MediaVoice:
		cfg := tgbotapi.NewVoice(chatID, file)
		cfg.ReplyToMessageID = replyTo
		cfg.Duration = duration
		return cfg, nil
	case model.MediaAudio:
		cfg := tgbotapi.NewAudio(chatID, file)
		cfg.Caption = caption
		cfg.ReplyToMessageID = replyTo
		cfg.Duration = duration
		return cfg, nil
	case model.MediaPhoto:
		cfg := tgbotapi.NewPhoto(chatID, file)
		cfg.Caption = caption
		cfg.ReplyToMessageID = replyTo
		return cfg, nil
	case model.MediaSticker:
		cfg := tgbotapi.NewSticker(chatID, file)
		cfg.ReplyToMessageID = replyTo
		return cfg, nil
	case model.MediaDocument:
		cfg := tgbotapi.NewDocument(chatID, file)
		cfg.Caption = caption
		cfg.ReplyToMessageID = replyTo
		return cfg, nil
	}
	return nil, fmt.Errorf("%w: media kind %q", domain.ErrInvalidArgument, kind)
}

func (c *Client) CopyMessage(ctx context.Context, toChatID int64, from model.MessageRef) error {
	cfg := tgbotapi.NewCopyMessage(toChatID, from.ChatID, from.MessageID)
	if _, err := c.bot.Send(cfg); err != nil {
		return fmt.Errorf("copy message: %w", err)
	}
	return nil
}

// Download fetches the media bytes into dir. The destination name prefers the
// original file name; collisions are avoided with the message id.
func (c *Client) Download(ctx context.Context, msg *adapter.RemoteMessage, dir string, progress adapter.ProgressFunc) (string, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: msg.FileID})
	if err != nil {
		return "", fmt.Errorf("%w: resolve file: %v", domain.ErrTransferFailed, err)
	}

	name := msg.FileName
	if name == "" {
		name = filepath.Base(file.FilePath)
	}
	dest := filepath.Join(dir, fmt.Sprintf("%d_%s", msg.Ref.MessageID, name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(c.bot.Token), nil)
	if err != nil {
		return "", fmt.Errorf("%w: build download request: %v", domain.ErrTransferFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: download: %v", domain.ErrTransferFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download status %d", domain.ErrTransferFailed, resp.StatusCode)
	}

	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", domain.ErrTransferFailed, err)
	}

	total := msg.FileSize
	if total == 0 {
		total = int64(file.FileSize)
	}
	_, err = io.Copy(&progressWriter{w: out, total: total, progress: progress}, resp.Body)
	cerr := out.Close()
	if err != nil || cerr != nil {
		_ = os.Remove(dest)
		if err == nil {
			err = cerr
		}
		return "", fmt.Errorf("%w: write download: %v", domain.ErrTransferFailed, err)
	}
	return dest, nil
}

func (c *Client) EditMessage(ctx context.Context, ref model.MessageRef, text string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if _, err := c.bot.Request(edit); err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, ref model.MessageRef) error {
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// Close releases the identity. The Bot API is stateless per call; cached
// handles just drop their reference.
func (c *Client) Close() {}

// Bot exposes the raw API handle for the transport's polling loop.
func (c *Client) Bot() *tgbotapi.BotAPI { return c.bot }

type progressReader struct {
	r        io.Reader
	total    int64
	read     int64
	progress adapter.ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		if p.progress != nil {
			p.progress(p.read, p.total)
		}
	}
	return n, err
}

type progressWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress adapter.ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 {
		p.written += int64(n)
		if p.progress != nil {
			p.progress(p.written, p.total)
		}
	}
	return n, err
}
