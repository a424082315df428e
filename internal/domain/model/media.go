package model

// MediaKind is the closed set of transferable message kinds. Ambiguous
// messages resolve through a fixed precedence rather than attribute probing.
type MediaKind string

const (
	MediaText      MediaKind = "text"
	MediaVideo     MediaKind = "video"
	MediaVideoNote MediaKind = "video_note"
	MediaVoice     MediaKind = "voice"
	MediaAudio     MediaKind = "audio"
	MediaPhoto     MediaKind = "photo"
	MediaSticker   MediaKind = "sticker"
	MediaDocument  MediaKind = "document"
)

// MediaAttributes describes which media facets a remote message carries.
// A message may legitimately carry more than one (e.g. a video stored as a
// document); DetectKind settles the conflict.
type MediaAttributes struct {
	HasVideo     bool
	HasVideoNote bool
	HasVoice     bool
	HasAudio     bool
	HasPhoto     bool
	HasSticker   bool
	HasDocument  bool
}

// kindPrecedence orders ambiguous media kinds, most specific first.
var kindPrecedence = []struct {
	kind MediaKind
	has  func(MediaAttributes) bool
}{
	{MediaVideo, func(a MediaAttributes) bool { return a.HasVideo }},
	{MediaVideoNote, func(a MediaAttributes) bool { return a.HasVideoNote }},
	{MediaVoice, func(a MediaAttributes) bool { return a.HasVoice }},
	{MediaAudio, func(a MediaAttributes) bool { return a.HasAudio }},
	{MediaSticker, func(a MediaAttributes) bool { return a.HasSticker }},
	{MediaPhoto, func(a MediaAttributes) bool { return a.HasPhoto }},
	{MediaDocument, func(a MediaAttributes) bool { return a.HasDocument }},
}

// DetectKind resolves an attribute set to exactly one kind. Messages with no
// media facet are text.
func DetectKind(a MediaAttributes) MediaKind {
	for _, p := range kindPrecedence {
		if p.has(a) {
			return p.kind
		}
	}
	return MediaText
}

// IsMedia reports whether the kind carries a payload beyond text.
func (k MediaKind) IsMedia() bool { return k != MediaText }

// SupportsCaption reports whether the platform accepts a caption for this
// kind. Video notes, voice messages and stickers do not.
func (k MediaKind) SupportsCaption() bool {
	switch k {
	case MediaVideoNote, MediaVoice, MediaSticker:
		return false
	}
	return k.IsMedia()
}
