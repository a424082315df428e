//go:build !integration

// File: internal/domain/model/media_test.go
package model

import "testing"

func TestDetectKindPrecedence(t *testing.T) {
	cases := []struct {
		name string
		attr MediaAttributes
		want MediaKind
	}{
		{"none", MediaAttributes{}, MediaText},
		{"document only", MediaAttributes{HasDocument: true}, MediaDocument},
		{"video beats document", MediaAttributes{HasVideo: true, HasDocument: true}, MediaVideo},
		{"video beats everything", MediaAttributes{HasVideo: true, HasVideoNote: true, HasVoice: true, HasAudio: true, HasPhoto: true, HasDocument: true}, MediaVideo},
		{"video note beats voice", MediaAttributes{HasVideoNote: true, HasVoice: true}, MediaVideoNote},
		{"voice beats audio", MediaAttributes{HasVoice: true, HasAudio: true}, MediaVoice},
		{"audio beats photo", MediaAttributes{HasAudio: true, HasPhoto: true}, MediaAudio},
		{"sticker beats photo", MediaAttributes{HasSticker: true, HasPhoto: true}, MediaSticker},
		{"photo beats document", MediaAttributes{HasPhoto: true, HasDocument: true}, MediaPhoto},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := DetectKind(c.attr); got != c.want {
				t.Fatalf("DetectKind(%+v) = %s, want %s", c.attr, got, c.want)
			}
		})
	}
}

func TestSupportsCaption(t *testing.T) {
	yes := []MediaKind{MediaVideo, MediaAudio, MediaPhoto, MediaDocument}
	no := []MediaKind{MediaText, MediaVideoNote, MediaVoice, MediaSticker}
	for _, k := range yes {
		if !k.SupportsCaption() {
			t.Errorf("%s should support captions", k)
		}
	}
	for _, k := range no {
		if k.SupportsCaption() {
			t.Errorf("%s should not support captions", k)
		}
	}
}

func TestOutcomeCounted(t *testing.T) {
	if !Sent().Counted() || !Relayed().Counted() || !Uploaded(true).Counted() {
		t.Fatal("successful outcomes must count")
	}
	if Skipped().Counted() || Failed("x").Counted() {
		t.Fatal("skipped and failed outcomes must not count")
	}
}
