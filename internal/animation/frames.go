package animation

import (
	"image"
	"image/color"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"io"

	"github.com/fogleman/gg"
)

// MouthState is the mouth shape drawn on one frame.
type MouthState string

const (
	MouthClosed MouthState = "closed"
	MouthOpen   MouthState = "open"
	MouthWide   MouthState = "wide"
)

const (
	cycleRepeats = 3
	// frameDelay is in hundredths of a second.
	frameDelay = 20
)

var mouthCycle = []MouthState{MouthClosed, MouthOpen, MouthWide, MouthClosed}

// MouthSequence returns the state of every frame in the loop.
func MouthSequence() []MouthState {
	seq := make([]MouthState, 0, len(mouthCycle)*cycleRepeats)
	for i := 0; i < cycleRepeats; i++ {
		seq = append(seq, mouthCycle...)
	}
	return seq
}

// Frame is one rendered picture of the loop.
type Frame struct {
	State MouthState
	Image image.Image
}

// MouthRegion is the rough lower-third box where a face's mouth sits.
func MouthRegion(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	x := bounds.Min.X + w/3
	y := bounds.Min.Y + h*2/3
	return image.Rect(x, y, x+w/3, y+h/6)
}

// RenderFrames copies base once per state and draws the mouth on each copy.
func RenderFrames(base image.Image) []Frame {
	seq := MouthSequence()
	frames := make([]Frame, len(seq))
	for i, state := range seq {
		frames[i] = Frame{State: state, Image: drawMouth(base, state)}
	}
	return frames
}

func drawMouth(base image.Image, state MouthState) image.Image {
	dc := gg.NewContextForImage(base)
	b := base.Bounds()
	m := MouthRegion(image.Rect(0, 0, b.Dx(), b.Dy()))
	mx, my := float64(m.Min.X), float64(m.Min.Y)
	mw, mh := m.Dx(), m.Dy()
	cx := mx + float64(mw)/2
	cy := my + float64(mh)/2

	dc.SetColor(color.Black)
	switch state {
	case MouthClosed:
		dc.DrawRectangle(mx, float64(m.Min.Y+mh/2-2), float64(mw), 4)
	case MouthOpen:
		dc.DrawEllipse(cx, cy, float64(mw)/2, float64(mh)/2)
	case MouthWide:
		dc.DrawEllipse(cx, cy, float64(mw)/2, float64(mh))
	}
	dc.Fill()
	return dc.Image()
}

// EncodeGIF writes frames as an endlessly looping GIF, 200ms per frame.
func EncodeGIF(w io.Writer, frames []Frame) error {
	anim := &gif.GIF{LoopCount: 0}
	for _, f := range frames {
		b := f.Image.Bounds()
		p := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), palette.Plan9)
		draw.FloydSteinberg.Draw(p, p.Bounds(), f.Image, b.Min)
		anim.Image = append(anim.Image, p)
		anim.Delay = append(anim.Delay, frameDelay)
	}
	return gif.EncodeAll(w, anim)
}
