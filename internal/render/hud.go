package render

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

const hudLineHeight = 16

// hudLines renders the status block shown under the playfield.
func (v *Viewer) hudLines(s game.Snapshot) []string {
	progress := fmt.Sprintf("t=%.1fs", s.Elapsed)
	if s.Cells {
		progress = fmt.Sprintf("step=%d", s.Steps)
	}
	lines := []string{
		fmt.Sprintf("%s | %s | %s | bullets=%d | reward=%.1f", v.opts.Mode, s.Variant, progress, len(s.Bullets), v.reward),
		fmt.Sprintf("episodes=%d survived=%d hit=%d best=%s", v.episode, v.survived, v.hits, v.bestText()),
	}
	switch {
	case v.status != "" && v.tick < v.statusUntil:
		lines = append(lines, v.status)
	case s.Done:
		lines = append(lines, fmt.Sprintf("%s, restarting", s.Outcome))
	default:
		lines = append(lines, "WASD/arrows move | C copy | Esc quit")
	}
	return lines
}

func (v *Viewer) bestText() string {
	if v.episode == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", v.best)
}

// summary is the text copied to the clipboard.
func (v *Viewer) summary() string {
	return strings.Join(v.hudLines(v.env.Snapshot())[:2], "\n")
}

func (v *Viewer) drawHUD(screen *ebiten.Image, s game.Snapshot) {
	y := float64(v.opts.ViewSize) + 4
	for _, line := range v.hudLines(s) {
		op := &text.DrawOptions{}
		op.GeoM.Translate(8, y)
		op.ColorScale.ScaleWithColor(color.White)
		text.Draw(screen, line, v.face, op)
		y += hudLineHeight
	}
}
