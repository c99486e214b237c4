package blocks

import (
	"fmt"
	"regexp"
)

var (
	youTubeRe = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/|youtube\.com/embed/)([^&\n?#/]+)`)
	driveRe   = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
)

// YouTubeID extracts the video id from a watch, short or embed URL.
func YouTubeID(url string) (string, bool) {
	m := youTubeRe.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// DriveID extracts the file id from a Google Drive share URL.
func DriveID(url string) (string, bool) {
	m := driveRe.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// EmbedURL returns the player URL for an embed block. It reports false for
// non-embed blocks and for URLs the platform pattern does not match; such
// blocks still save, they just render without a player.
func EmbedURL(b Block) (string, bool) {
	m, ok := b.Content.(Media)
	if !ok {
		return "", false
	}
	switch b.Type {
	case TypeYouTube:
		if id, ok := YouTubeID(m.URL); ok {
			return "https://www.youtube.com/embed/" + id, true
		}
	case TypeDrive:
		if id, ok := DriveID(m.URL); ok {
			return "https://drive.google.com/file/d/" + id + "/preview", true
		}
	}
	return "", false
}

// Warnings lists advisory problems that do not prevent saving.
func (d Document) Warnings() []string {
	var out []string
	for _, b := range d.Blocks {
		m, ok := b.Content.(Media)
		if !ok {
			continue
		}
		if m.URL == "" {
			out = append(out, fmt.Sprintf("block %s: %s has no url", b.ID, b.Type))
			continue
		}
		if b.Type.Embed() {
			if _, ok := EmbedURL(b); !ok {
				out = append(out, fmt.Sprintf("block %s: %q is not a recognised %s link", b.ID, m.URL, b.Type))
			}
		}
	}
	return out
}
