package render

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

// actionKeys lists movement bindings in priority order. When several are
// held, the first match wins.
var actionKeys = []struct {
	action game.Action
	keys   []ebiten.Key
}{
	{game.ActionUp, []ebiten.Key{ebiten.KeyW, ebiten.KeyArrowUp}},
	{game.ActionDown, []ebiten.Key{ebiten.KeyS, ebiten.KeyArrowDown}},
	{game.ActionLeft, []ebiten.Key{ebiten.KeyA, ebiten.KeyArrowLeft}},
	{game.ActionRight, []ebiten.Key{ebiten.KeyD, ebiten.KeyArrowRight}},
}

// actionFromKeys maps held keys to an action; no movement key means stay.
func actionFromKeys(pressed func(ebiten.Key) bool) game.Action {
	for _, b := range actionKeys {
		for _, k := range b.keys {
			if pressed(k) {
				return b.action
			}
		}
	}
	return game.ActionStay
}

// edgeKeys tracks keys that act once per press.
type edgeKeys struct {
	prev map[ebiten.Key]bool
}

// pressed reports whether k went down since the previous call for k.
func (e *edgeKeys) pressed(k ebiten.Key, down bool) bool {
	if e.prev == nil {
		e.prev = map[ebiten.Key]bool{}
	}
	was := e.prev[k]
	e.prev[k] = down
	return down && !was
}
