package models

import "encoding/json"

// Theme is a named UI theme document (themes/ and movingUI/).
type Theme struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// QuickReplySet is a named quick-reply preset document.
type QuickReplySet struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// WorldInfo is a named lorebook. Data always contains an "entries" member.
type WorldInfo struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// BackgroundMeta is one record of the backgrounds/metadata.json sidecar index.
type BackgroundMeta struct {
	AspectRatio         float64 `json:"aspect_ratio"`
	Animated            bool    `json:"animated"`
	DominantColor       string  `json:"dominant_color,omitempty"`
	AddedTimestamp      int64   `json:"added_timestamp"`
	ThumbnailResolution [2]int  `json:"thumbnail_resolution"`
}

// Background is a bitmap in the backgrounds directory plus its sidecar entry.
type Background struct {
	FileName string          `json:"file_name"`
	Meta     *BackgroundMeta `json:"meta,omitempty"`
}

// Avatar is a user persona image in the User Avatars directory.
type Avatar struct {
	FileName string `json:"file_name"`
}
