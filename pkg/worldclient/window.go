package worldclient

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/sessamekesh/universe-client/pkg/tile"
)

// ClientWindow is the region of the world the client wants replicated,
// centered on the player. Tiles are kept for a padded margin around it so
// small movements do not thrash the tile store.
type ClientWindow struct {
	halfWidth  int32
	halfHeight int32
	padding    int32

	center tile.Pos
	rect   tile.Rect
}

func NewClientWindow(halfWidth, halfHeight, padding int32) *ClientWindow {
	return &ClientWindow{halfWidth: halfWidth, halfHeight: halfHeight, padding: padding}
}

// Recenter moves the window onto position and reports whether the tile
// region changed.
func (w *ClientWindow) Recenter(position mgl32.Vec2) bool {
	center := tile.PosAt(position)
	if center == w.center && !w.rect.IsEmpty() {
		return false
	}
	w.center = center
	w.rect = tile.RectAround(center, w.halfWidth, w.halfHeight)
	return true
}

func (w *ClientWindow) Rect() tile.Rect {
	return w.rect
}

// Retained is the region outside of which tiles are evicted.
func (w *ClientWindow) Retained() tile.Rect {
	return w.rect.Padded(w.padding)
}

func (w *ClientWindow) Reset() {
	w.center = tile.Pos{}
	w.rect = tile.Rect{}
}
