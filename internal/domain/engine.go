package domain

import (
	"image"
	"strings"
)

// ZoomMode selects how the engine sizes a page in the viewport.
type ZoomMode string

const (
	ZoomFitWidth  ZoomMode = "fit_width"
	ZoomFitHeight ZoomMode = "fit_height"
	ZoomFitBest   ZoomMode = "fit_best"
	ZoomCustom    ZoomMode = "custom"
)

// ParseZoomMode returns the zoom mode named by s.
func ParseZoomMode(s string) (ZoomMode, bool) {
	switch ZoomMode(strings.ToLower(strings.TrimSpace(s))) {
	case ZoomFitWidth:
		return ZoomFitWidth, true
	case ZoomFitHeight:
		return ZoomFitHeight, true
	case ZoomFitBest:
		return ZoomFitBest, true
	case ZoomCustom:
		return ZoomCustom, true
	}
	return "", false
}

// DisplayMode is the page presentation used by the viewer.
type DisplayMode string

const (
	DisplaySinglePage DisplayMode = "single_page"
	DisplayContinuous DisplayMode = "continuous"
	DisplayBook       DisplayMode = "book"
)

// ParseDisplayMode returns the display mode named by s.
func ParseDisplayMode(s string) (DisplayMode, bool) {
	switch DisplayMode(strings.ToLower(strings.TrimSpace(s))) {
	case DisplaySinglePage:
		return DisplaySinglePage, true
	case DisplayContinuous:
		return DisplayContinuous, true
	case DisplayBook:
		return DisplayBook, true
	}
	return "", false
}

// PageStep is the number of pages one navigation step moves in this mode.
func (m DisplayMode) PageStep() int {
	if m == DisplayBook {
		return 2
	}
	return 1
}

// RotateDirection is a quarter turn direction.
type RotateDirection string

const (
	RotateClockwise        RotateDirection = "clockwise"
	RotateCounterclockwise RotateDirection = "counterclockwise"
)

// ParseRotateDirection returns the direction named by s.
func ParseRotateDirection(s string) (RotateDirection, bool) {
	switch RotateDirection(strings.ToLower(strings.TrimSpace(s))) {
	case RotateClockwise:
		return RotateClockwise, true
	case RotateCounterclockwise:
		return RotateCounterclockwise, true
	}
	return "", false
}

// Rotation is the page rotation in degrees, always one of 0, 90, 180, 270.
type Rotation int

// Turn applies one quarter turn in the given direction.
func (r Rotation) Turn(dir RotateDirection) Rotation {
	switch dir {
	case RotateClockwise:
		return (r + 90) % 360
	case RotateCounterclockwise:
		return (r + 270) % 360
	}
	return r
}

// RenderFlags is the bit set passed to the rasterizer.
type RenderFlags uint32

const (
	RenderNone         RenderFlags = 0
	RenderAnnotations  RenderFlags = 1 << 0
	RenderLcdText      RenderFlags = 1 << 1
	RenderNoNativeText RenderFlags = 1 << 2
	RenderGrayscale    RenderFlags = 1 << 3
	RenderTransparent  RenderFlags = 1 << 12
)

var renderFlagNames = map[string]RenderFlags{
	"annotations":    RenderAnnotations,
	"lcd_text":       RenderLcdText,
	"no_native_text": RenderNoNativeText,
	"grayscale":      RenderGrayscale,
	"transparent":    RenderTransparent,
}

// ParseRenderFlag returns the single flag named by s.
func ParseRenderFlag(s string) (RenderFlags, bool) {
	f, ok := renderFlagNames[strings.ToLower(strings.TrimSpace(s))]
	return f, ok
}

// Has reports whether every bit of f is set.
func (r RenderFlags) Has(f RenderFlags) bool {
	return f != 0 && r&f == f
}

// Toggle flips exactly the bits of f.
func (r RenderFlags) Toggle(f RenderFlags) RenderFlags {
	return r ^ f
}

// Names lists the named flags that are set.
func (r RenderFlags) Names() []string {
	names := make([]string, 0, len(renderFlagNames))
	for _, name := range []string{"annotations", "lcd_text", "no_native_text", "grayscale", "transparent"} {
		if r.Has(renderFlagNames[name]) {
			names = append(names, name)
		}
	}
	return names
}

// DocumentEngine is the capability surface of the document engine the
// session controller drives. Page indexes are zero-based. Implementations
// are not safe for concurrent callers; the controller serializes access.
type DocumentEngine interface {
	Open(data []byte) error
	Close() error
	IsOpen() bool

	PageCount() int
	CurrentPage() int
	SetCurrentPage(index int) error
	NextPage() error
	PreviousPage() error

	ZoomMode() ZoomMode
	SetZoomMode(mode ZoomMode)
	ZoomIn()
	ZoomOut()
	Rotation() Rotation
	Rotate(dir RotateDirection)
	DisplayMode() DisplayMode
	SetDisplayMode(mode DisplayMode)
	RenderFlags() RenderFlags
	SetRenderFlags(flags RenderFlags)

	Information() (Metadata, error)
	PageText(index int) (string, error)
	Search(term string, matchCase, wholeWord bool) ([]SearchMatch, error)
	Rendered(index int) (image.Image, error)

	// Subscribe registers fn to run after every engine-visible mutation.
	Subscribe(fn func()) (unsubscribe func())
}
