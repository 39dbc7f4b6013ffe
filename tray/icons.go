package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

var (
	grey  = color.RGBA{R: 0x9E, G: 0x9E, B: 0x9E, A: 255}
	green = color.RGBA{R: 0x4C, G: 0xAF, B: 0x50, A: 255}
	red   = color.RGBA{R: 0xF4, G: 0x43, B: 0x36, A: 255}

	iconIdle   = IdleIcon(44)
	iconActive = ActiveIcon(44)
)

func IdleIcon(size int) []byte   { return encodePNG(renderMic(size, grey, false)) }
func ActiveIcon(size int) []byte { return encodePNG(renderMic(size, green, true)) }

func encodePNG(img image.Image) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("encodePNG: " + err.Error())
	}
	return buf.Bytes()
}

// renderMic draws a microphone on a 24-unit grid scaled to size: a
// capsule body, a pickup arc and a stand, plus an optional recording dot.
func renderMic(size int, c color.RGBA, dot bool) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	u := float64(size) / 24
	stroke := 1.0 * u

	for y := range size {
		for x := range size {
			px, py := (float64(x)+0.5)/u, (float64(y)+0.5)/u
			if dot && math.Hypot(px-19, py-5) <= 3 {
				img.Set(x, y, red)
				continue
			}
			if inCapsule(px, py) || onArc(px, py, stroke/u) || onStand(px, py, stroke/u) {
				img.Set(x, y, c)
			}
		}
	}
	return img
}

// Body: x 9..15, y 2..13, radius 3.
func inCapsule(x, y float64) bool {
	if x < 9 || x > 15 || y < 2 || y > 13 {
		return false
	}
	switch {
	case y < 5:
		return math.Hypot(x-12, y-5) <= 3
	case y > 10:
		return math.Hypot(x-12, y-10) <= 3
	}
	return true
}

// Lower half circle centred at (12, 9), radius 7.
func onArc(x, y, w float64) bool {
	if y < 9 {
		return false
	}
	return math.Abs(math.Hypot(x-12, y-9)-7) <= w
}

func onStand(x, y, w float64) bool {
	vertical := math.Abs(x-12) <= w && y >= 15 && y <= 19
	base := math.Abs(y-19) <= w && x >= 8 && x <= 16
	return vertical || base
}
