// Package imagesize validates and normalizes requested image sizes.
//
// A size is either one of the four named presets (thumbnail, medium, large,
// full) or an explicit width/height pair. Both forms share the Size type so
// callers never juggle a string-or-record union.
package imagesize

import (
	"fmt"
	"strconv"
	"strings"
)

// Named presets.
const (
	Thumbnail = "thumbnail"
	Medium    = "medium"
	Large     = "large"
	Full      = "full"
)

// Size is a requested image size. A named size sets Name; an explicit size
// leaves Name empty and sets both Width and Height. A zero dimension means
// the key was not supplied.
type Size struct {
	Name   string `json:"name,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Named returns a named size.
func Named(name string) Size {
	return Size{Name: name}
}

// Explicit returns an explicit width/height size.
func Explicit(width, height int) Size {
	return Size{Width: width, Height: height}
}

// IsZero reports whether no size was given at all.
func (s Size) IsZero() bool {
	return s.Name == "" && s.Width == 0 && s.Height == 0
}

// IsExplicit reports whether s carries both dimensions and no name.
func (s Size) IsExplicit() bool {
	return s.Name == "" && s.Width > 0 && s.Height > 0
}

// IsFull reports whether s asks for the original, unresized image.
func (s Size) IsFull() bool {
	return s.Name == Full
}

// Prefix returns the filename prefix used for cached variants:
// "{width}x{height}" for explicit sizes, otherwise the name.
func (s Size) Prefix() string {
	if s.IsExplicit() {
		return fmt.Sprintf("%dx%d", s.Width, s.Height)
	}
	return s.Name
}

// String implements fmt.Stringer.
func (s Size) String() string {
	if s.IsZero() {
		return "<none>"
	}
	if s.Name == "" {
		return fmt.Sprintf("%dx%d", s.Width, s.Height)
	}
	return s.Name
}

// IsNamedSize reports whether value is one of the four named presets.
func IsNamedSize(value string) bool {
	switch value {
	case Medium, Full, Thumbnail, Large:
		return true
	}
	return false
}

// IsAcceptable reports whether s is a named preset or an explicit pair with
// both width and height present.
func IsAcceptable(s Size) bool {
	return IsNamedSize(s.Name) || s.IsExplicit()
}

// Parse reads a size from its textual form: a preset name ("medium") or
// "{width}x{height}" ("150x150"). Input that is neither is returned as a
// named Size that IsAcceptable rejects.
func Parse(value string) Size {
	value = strings.TrimSpace(value)
	if IsNamedSize(value) {
		return Named(value)
	}
	w, h, ok := strings.Cut(strings.ToLower(value), "x")
	if ok {
		width, errW := strconv.Atoi(w)
		height, errH := strconv.Atoi(h)
		if errW == nil && errH == nil && width > 0 && height > 0 {
			return Explicit(width, height)
		}
	}
	return Named(value)
}
