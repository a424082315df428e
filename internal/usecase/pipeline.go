// File: internal/usecase/pipeline.go
package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"telegram-content-relay/internal/domain"
	"telegram-content-relay/internal/domain/model"
	"telegram-content-relay/internal/domain/ports/adapter"
	"telegram-content-relay/internal/domain/ports/repository"
	"telegram-content-relay/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// TextTransform applies the user's caption/text rules. Pure function from the
// pipeline's point of view.
type TextTransform func(ctx context.Context, userID int64, text string) string

// Pipeline performs one item transfer: fetch, transform, then either a direct
// by-reference relay or download-and-upload, splitting oversized objects.
type Pipeline struct {
	users     repository.UserRepository
	transform TextTransform

	tmpDir      string
	sizeCap     int64 // bytes; single-message upload ceiling
	partSize    int64 // bytes; split part size
	stagingChat int64

	log *zerolog.Logger
}

func NewPipeline(
	users repository.UserRepository,
	transform TextTransform,
	tmpDir string,
	sizeCapMB, partSizeMB int64,
	stagingChat int64,
	logger *zerolog.Logger,
) *Pipeline {
	l := logger.With().Str("component", "Pipeline").Logger()
	return &Pipeline{
		users:       users,
		transform:   transform,
		tmpDir:      tmpDir,
		sizeCap:     sizeCapMB * mb,
		partSize:    partSizeMB * mb,
		stagingChat: stagingChat,
		log:         &l,
	}
}

// TransferRequest carries everything one item transfer needs. Clients are
// resolved by the caller so a capability failure is visible per item.
type TransferRequest struct {
	UserID     int64
	Ref        model.SourceReference
	Poster     adapter.MessengerClient // posts to the destination, edits status
	Reader     adapter.MessengerClient // nil when no read capability resolved
	Privileged adapter.MessengerClient // nil when no high-capacity identity exists
	DestChat   int64
	ReplyTo    int
	Status     model.MessageRef // transient status message for progress edits
}

// Transfer runs the pipeline for one source reference. Every failure mode is
// folded into the outcome; errors never escape to the batch loop. No
// temporary file survives any exit path.
func (p *Pipeline) Transfer(ctx context.Context, req TransferRequest) model.TransferOutcome {
	out := p.transfer(ctx, req)
	metrics.IncTransfer(string(out.Kind))
	return out
}

func (p *Pipeline) transfer(ctx context.Context, req TransferRequest) model.TransferOutcome {
	started := time.Now()

	destChat, replyTo := p.destination(ctx, req)

	msg, err := p.fetch(ctx, req)
	if err != nil {
		return model.Skipped()
	}

	// Plain text: transform and post, done.
	if msg.Kind == model.MediaText {
		text := p.transform(ctx, req.UserID, msg.Text)
		if text == "" {
			text = msg.Text
		}
		if _, err := req.Poster.SendText(ctx, destChat, text, replyTo); err != nil {
			return model.Failed("send text: " + short(err))
		}
		metrics.ObserveTransfer("text", time.Since(started).Seconds())
		return model.Sent()
	}

	caption := p.caption(ctx, req.UserID, msg)

	// Direct relay: re-post by reference, no bytes through this process.
	// Attempted opportunistically; any refusal falls through to download.
	if req.Ref.Visibility == model.VisibilityPublic && msg.FileID != "" {
		if err := req.Poster.SendMediaByID(ctx, destChat, msg, caption, replyTo); err == nil {
			metrics.ObserveTransfer("relay", time.Since(started).Seconds())
			return model.Relayed()
		}
	}

	reader := req.Reader
	if reader == nil {
		if req.Ref.Visibility != model.VisibilityPublic {
			return model.Skipped()
		}
		reader = req.Poster
	}

	p.status(ctx, req, "Downloading...")
	dl := NewProgressReporter(p.statusEditor(req), "Downloading...")
	path, err := reader.Download(ctx, msg, p.tmpDir, dl.Bind(ctx))
	if err != nil {
		return model.Failed("download: " + short(err))
	}
	defer func() {
		if path != "" {
			_ = os.Remove(path)
		}
	}()

	info, err := os.Stat(path)
	if err != nil {
		return model.Failed("stat download: " + short(err))
	}
	metrics.AddTransferBytes("download", info.Size())

	if msg.FileName != "" {
		renamed, err := p.rename(ctx, req.UserID, path)
		if err != nil {
			p.log.Debug().Err(err).Int64("user_id", req.UserID).Msg("rename rules not applied")
		} else {
			path = renamed
		}
	}

	if info.Size() > p.sizeCap {
		return p.transferLarge(ctx, req, msg, path, caption, destChat, replyTo, started)
	}

	p.status(ctx, req, "Uploading...")
	ul := NewProgressReporter(p.statusEditor(req), "Uploading...")
	up := buildUpload(msg, path, caption)
	if _, err := req.Poster.UploadMedia(ctx, destChat, up, replyTo, ul.Bind(ctx)); err != nil {
		return model.Failed("upload: " + short(err))
	}
	metrics.AddTransferBytes("upload", info.Size())
	metrics.ObserveTransfer("upload", time.Since(started).Seconds())
	return model.Uploaded(false)
}

// fetch reads the source message through the reader, falling back to the
// poster for public sources when no dedicated reader exists.
func (p *Pipeline) fetch(ctx context.Context, req TransferRequest) (*adapter.RemoteMessage, error) {
	if req.Reader != nil {
		if msg, err := req.Reader.GetMessage(ctx, req.Ref); err == nil {
			return msg, nil
		} else if req.Ref.Visibility != model.VisibilityPublic {
			return nil, err
		}
	}
	if req.Ref.Visibility == model.VisibilityPublic {
		return req.Poster.GetMessage(ctx, req.Ref)
	}
	return nil, domain.ErrNotFound
}

// transferLarge handles objects over the single-message ceiling: through the
// privileged identity and a staging chat when available, else split into
// bounded parts.
func (p *Pipeline) transferLarge(
	ctx context.Context,
	req TransferRequest,
	msg *adapter.RemoteMessage,
	path, caption string,
	destChat int64,
	replyTo int,
	started time.Time,
) model.TransferOutcome {
	if req.Privileged != nil && p.stagingChat != 0 {
		p.status(ctx, req, "File is over the upload ceiling. Relaying through staging...")
		ul := NewProgressReporter(p.statusEditor(req), "Uploading (staging)...")
		up := buildUpload(msg, path, caption)
		stagedRef, err := req.Privileged.UploadMedia(ctx, p.stagingChat, up, 0, ul.Bind(ctx))
		if err != nil {
			return model.Failed("staging upload: " + short(err))
		}
		if err := req.Poster.CopyMessage(ctx, destChat, stagedRef); err != nil {
			return model.Failed("copy from staging: " + short(err))
		}
		metrics.ObserveTransfer("staging", time.Since(started).Seconds())
		return model.Uploaded(true)
	}

	if err := p.splitUpload(ctx, req, path, caption, destChat, replyTo); err != nil {
		return model.Failed("split upload: " + short(err))
	}
	metrics.ObserveTransfer("split", time.Since(started).Seconds())
	return model.Uploaded(true)
}

// splitUpload slices the file into partSize chunks and posts each as a
// separate document with a strictly increasing part index. Each part file is
// removed right after its upload; the combined original is removed by the
// caller's deferred cleanup.
func (p *Pipeline) splitUpload(ctx context.Context, req TransferRequest, path, caption string, destChat int64, replyTo int) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	buf := make([]byte, 4*mb)
	for part := 0; ; part++ {
		partPath := fmt.Sprintf("%s.part%03d%s", base, part, ext)
		written, err := writePart(src, partPath, p.partSize, buf)
		if err != nil {
			_ = os.Remove(partPath)
			return err
		}
		if written == 0 {
			_ = os.Remove(partPath)
			return nil
		}

		partCaption := fmt.Sprintf("Part : %d", part+1)
		if caption != "" {
			partCaption = caption + "\n\n" + partCaption
		}
		p.status(ctx, req, fmt.Sprintf("Uploading part %d...", part+1))
		ul := NewProgressReporter(p.statusEditor(req), fmt.Sprintf("Uploading part %d...", part+1))
		up := adapter.MediaUpload{
			Kind:     model.MediaDocument,
			Path:     partPath,
			Caption:  partCaption,
			FileName: filepath.Base(partPath),
		}
		_, upErr := req.Poster.UploadMedia(ctx, destChat, up, replyTo, ul.Bind(ctx))
		_ = os.Remove(partPath)
		if upErr != nil {
			return upErr
		}
		metrics.AddTransferBytes("upload", written)

		if written < p.partSize {
			return nil
		}
	}
}

func writePart(src *os.File, partPath string, limit int64, buf []byte) (int64, error) {
	dst, err := os.Create(partPath)
	if err != nil {
		return 0, err
	}
	defer dst.Close()

	var written int64
	for written < limit {
		chunk := int64(len(buf))
		if rest := limit - written; rest < chunk {
			chunk = rest
		}
		n, rerr := src.Read(buf[:chunk])
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if rerr == io.EOF {
			break // a short part is the final part
		}
		if rerr != nil {
			return written, rerr
		}
	}
	return written, nil
}

// caption composes the final media caption: transformed original caption,
// then the user's custom caption when configured.
func (p *Pipeline) caption(ctx context.Context, userID int64, msg *adapter.RemoteMessage) string {
	processed := p.transform(ctx, userID, msg.Text)
	custom, _ := p.users.GetPref(ctx, userID, model.PrefCaption, "")
	switch {
	case processed != "" && custom != "":
		return processed + "\n\n" + custom
	case custom != "":
		return custom
	default:
		return processed
	}
}

// destination resolves the target chat, honoring the user's
// "<chat>" or "<chat>/<reply_to>" preference override.
func (p *Pipeline) destination(ctx context.Context, req TransferRequest) (int64, int) {
	destChat, replyTo := req.DestChat, req.ReplyTo
	cfg, _ := p.users.GetPref(ctx, req.UserID, model.PrefTargetChat, "")
	if cfg == "" {
		return destChat, replyTo
	}
	parts := strings.SplitN(cfg, "/", 2)
	if chat, err := strconv.ParseInt(parts[0], 10, 64); err == nil {
		destChat = chat
		replyTo = 0
		if len(parts) == 2 {
			if id, err := strconv.Atoi(parts[1]); err == nil {
				replyTo = id
			}
		}
	}
	return destChat, replyTo
}

// rename applies the user's filename rules: delete words, replacements, then
// an optional tag before the extension.
func (p *Pipeline) rename(ctx context.Context, userID int64, path string) (string, error) {
	dir := filepath.Dir(path)
	ext := filepath.Ext(path)
	name := strings.TrimSuffix(filepath.Base(path), ext)

	if raw, _ := p.users.GetPref(ctx, userID, model.PrefDeleteWords, ""); raw != "" {
		var words []string
		if err := json.Unmarshal([]byte(raw), &words); err == nil {
			for _, w := range words {
				name = strings.ReplaceAll(name, w, "")
			}
		}
	}
	if raw, _ := p.users.GetPref(ctx, userID, model.PrefReplaceRules, ""); raw != "" {
		var rules map[string]string
		if err := json.Unmarshal([]byte(raw), &rules); err == nil {
			for old, repl := range rules {
				name = strings.ReplaceAll(name, old, repl)
			}
		}
	}
	if tag, _ := p.users.GetPref(ctx, userID, model.PrefRenameTag, ""); tag != "" {
		name = strings.TrimSpace(name) + " " + tag
	}

	name = sanitizeFilename(strings.TrimSpace(name))
	if name == "" {
		return path, nil
	}
	renamed := filepath.Join(dir, name+ext)
	if renamed == path {
		return path, nil
	}
	if err := os.Rename(path, renamed); err != nil {
		return path, err
	}
	return renamed, nil
}

var filenameSanitizer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", "\"", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_",
)

func sanitizeFilename(name string) string {
	return filenameSanitizer.Replace(name)
}

// buildUpload decides the final upload kind from the detected media kind and
// the local extension: an .mp4 always uploads as video regardless of how the
// source stored it.
func buildUpload(msg *adapter.RemoteMessage, path, caption string) adapter.MediaUpload {
	kind := msg.Kind
	if strings.EqualFold(filepath.Ext(path), ".mp4") {
		kind = model.MediaVideo
	}
	if !kind.SupportsCaption() {
		caption = ""
	}
	return adapter.MediaUpload{
		Kind:     kind,
		Path:     path,
		Caption:  caption,
		FileName: filepath.Base(path),
		Duration: msg.Duration,
		Width:    msg.Width,
		Height:   msg.Height,
	}
}

func (p *Pipeline) status(ctx context.Context, req TransferRequest, text string) {
	if req.Status.ChatID == 0 {
		return
	}
	_ = req.Poster.EditMessage(ctx, req.Status, text)
}

func (p *Pipeline) statusEditor(req TransferRequest) func(ctx context.Context, text string) error {
	return func(ctx context.Context, text string) error {
		if req.Status.ChatID == 0 {
			return nil
		}
		return req.Poster.EditMessage(ctx, req.Status, text)
	}
}

func short(err error) string {
	s := err.Error()
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
