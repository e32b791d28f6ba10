package files

import (
	"path/filepath"
	"strings"
)

// Profile is a named derivative specification: which bucket the derivative
// lives in and the bounding box it is resized to fit. All derivatives are
// encoded as WebP.
type Profile struct {
	Name   string
	Bucket string
	SizePx int
}

// Derivative box sizes, in pixels.
const (
	CoverSize  = 564
	SlideSize  = 1000
	AvatarSize = 240
)

// Profile names.
const (
	ProfileCover  = "cover"
	ProfileSlide  = "slide"
	ProfileAvatar = "avatar"
)

// NormalizedName returns the storage key a derivative of name is written
// under: the logical name with its file extension replaced by ".webp".
// It is a pure function of its input.
func NormalizedName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".webp"
}
