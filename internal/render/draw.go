package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Garsondee/Dodge-Sense/internal/game"
)

var (
	colBackground = color.RGBA{R: 14, G: 16, B: 22, A: 255}
	colArena      = color.RGBA{R: 22, G: 26, B: 34, A: 255}
	colGridLine   = color.RGBA{R: 40, G: 46, B: 58, A: 255}
	colPlayer     = color.RGBA{R: 90, G: 200, B: 250, A: 255}
	colBullet     = color.RGBA{R: 250, G: 96, B: 80, A: 255}
	colHit        = color.RGBA{R: 255, G: 60, B: 60, A: 90}
	colSurvived   = color.RGBA{R: 80, G: 220, B: 120, A: 70}
)

// Draw implements ebiten.Game.
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(colBackground)
	s := v.env.Snapshot()
	size := float32(v.opts.ViewSize)
	vector.FillRect(screen, 0, 0, size, size, colArena, false)

	if s.Cells {
		v.drawCells(screen, s)
	} else {
		v.drawBodies(screen, s)
	}

	if s.Done {
		tint := colHit
		if s.Outcome == game.OutcomeSurvived {
			tint = colSurvived
		}
		vector.FillRect(screen, 0, 0, size, size, tint, false)
	}
	v.drawHUD(screen, s)
}

func (v *Viewer) drawBodies(screen *ebiten.Image, s game.Snapshot) {
	sc := float32(v.scale)
	for _, b := range s.Bullets {
		vector.FillCircle(screen, float32(b.X)*sc, float32(b.Y)*sc, float32(b.R)*sc, colBullet, true)
	}
	p := s.Player
	vector.FillCircle(screen, float32(p.X)*sc, float32(p.Y)*sc, float32(p.R)*sc, colPlayer, true)
}

func (v *Viewer) drawCells(screen *ebiten.Image, s game.Snapshot) {
	cell := float32(v.scale)
	w, h := int(s.Width), int(s.Height)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			vector.StrokeRect(screen, float32(x)*cell, float32(y)*cell, cell, cell, 1, colGridLine, false)
		}
	}
	const inset = 3
	for _, b := range s.Bullets {
		vector.FillRect(screen, float32(b.X)*cell+inset, float32(b.Y)*cell+inset, cell-2*inset, cell-2*inset, colBullet, false)
	}
	p := s.Player
	vector.FillRect(screen, float32(p.X)*cell+inset, float32(p.Y)*cell+inset, cell-2*inset, cell-2*inset, colPlayer, false)
}
