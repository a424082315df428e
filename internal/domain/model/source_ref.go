package model

import (
	"fmt"
	"regexp"
	"strconv"

	"telegram-content-relay/internal/domain"
)

// Visibility classifies how a source chat can be reached.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// SourceReference identifies one message to transfer. Immutable once parsed.
type SourceReference struct {
	Chat       string // public: bare handle; private: numeric id with -100 prefix
	MessageID  int
	Visibility Visibility
}

// Private channel links carry a bare internal id; the resolvable chat id is
// that id behind the -100 marker.
const privateChatPrefix = "-100"

var (
	// Optional scheme, t.me or telegram.me, optional topic segment before the
	// message id.
	privateLinkRe = regexp.MustCompile(`^(?:https?://)?(?:t\.me|telegram\.me)/c/(\d+)/(?:\d+/)?(\d+)$`)
	publicLinkRe  = regexp.MustCompile(`^(?:https?://)?(?:t\.me|telegram\.me)/([A-Za-z0-9_]+)/(?:\d+/)?(\d+)$`)
)

// ParseMessageLink parses a public or private message link into a
// SourceReference. Returns domain.ErrLinkParse for anything else.
func ParseMessageLink(link string) (SourceReference, error) {
	if m := privateLinkRe.FindStringSubmatch(link); m != nil {
		id, err := strconv.Atoi(m[2])
		if err != nil || id <= 0 {
			return SourceReference{}, domain.ErrLinkParse
		}
		return SourceReference{
			Chat:       privateChatPrefix + m[1],
			MessageID:  id,
			Visibility: VisibilityPrivate,
		}, nil
	}
	if m := publicLinkRe.FindStringSubmatch(link); m != nil {
		id, err := strconv.Atoi(m[2])
		if err != nil || id <= 0 {
			return SourceReference{}, domain.ErrLinkParse
		}
		return SourceReference{
			Chat:       m[1],
			MessageID:  id,
			Visibility: VisibilityPublic,
		}, nil
	}
	return SourceReference{}, domain.ErrLinkParse
}

// Render re-renders the canonical link for this reference.
func (r SourceReference) Render() string {
	if r.Visibility == VisibilityPrivate {
		return fmt.Sprintf("https://t.me/c/%s/%d", r.Chat[len(privateChatPrefix):], r.MessageID)
	}
	return fmt.Sprintf("https://t.me/%s/%d", r.Chat, r.MessageID)
}

// At returns the reference offset messages after this one. Batch runs
// enumerate At(0) .. At(count-1).
func (r SourceReference) At(offset int) SourceReference {
	r.MessageID += offset
	return r
}

// ChatID returns the numeric chat id for private references, 0 otherwise.
func (r SourceReference) ChatID() int64 {
	if r.Visibility != VisibilityPrivate {
		return 0
	}
	id, err := strconv.ParseInt(r.Chat, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
