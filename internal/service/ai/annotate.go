package ai

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"math"
	"yoloweb/internal/dto"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PaletteSize is the number of distinct box colours handed out to classes.
const PaletteSize = 20

// Annotator draws detection boxes and labels onto a copy of an image.
type Annotator struct {
	palette []color.Color
	face    font.Face
}

func NewAnnotator() *Annotator {
	return &Annotator{
		palette: Palette(PaletteSize),
		face:    basicfont.Face7x13,
	}
}

// Palette returns n well separated, saturated colours (golden-angle hue steps).
func Palette(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		hue := math.Mod(float64(i)*137.508, 360)
		colors[i] = colorful.Hsv(hue, 0.85, 0.95).Clamped()
	}
	return colors
}

// ColorFor returns the box colour of a class. The same name always maps to the same colour.
func (a *Annotator) ColorFor(className string) color.Color {
	h := fnv.New32a()
	h.Write([]byte(className))
	return a.palette[h.Sum32()%uint32(len(a.palette))]
}

// Annotate returns a copy of img with every detection drawn on it.
func (a *Annotator) Annotate(img image.Image, detections []dto.Detection) *image.NRGBA {
	dst := imaging.Clone(img)
	bounds := dst.Bounds()

	thickness := min(bounds.Dx(), bounds.Dy()) / 250
	if thickness < 2 {
		thickness = 2
	}

	// Clone rebases the image to (0,0); shift boxes by the same amount.
	offset := img.Bounds().Min
	for _, det := range detections {
		rect := det.BBox.Rect().Sub(offset).Intersect(bounds)
		if rect.Empty() {
			continue
		}
		c := a.ColorFor(det.ClassName)
		drawBox(dst, rect, thickness, c)
		a.drawLabel(dst, rect, fmt.Sprintf("%s %.2f", det.ClassName, det.Confidence), c)
	}

	return dst
}

// AnnotateFile loads srcPath, draws the detections and writes the copy to
// dstPath in the format implied by its extension.
func (a *Annotator) AnnotateFile(srcPath, dstPath string, detections []dto.Detection) error {
	img, err := LoadImage(srcPath)
	if err != nil {
		return err
	}

	if err := imaging.Save(a.Annotate(img, detections), dstPath); err != nil {
		return fmt.Errorf("failed to save annotated image: %w", err)
	}
	return nil
}

// drawBox strokes rect with the given line thickness, inside its bounds.
func drawBox(dst draw.Image, rect image.Rectangle, thickness int, c color.Color) {
	src := image.NewUniform(c)
	t := min(thickness, rect.Dx(), rect.Dy())
	if t <= 0 {
		t = 1
	}

	edges := []image.Rectangle{
		image.Rect(rect.Min.X, rect.Min.Y, rect.Max.X, rect.Min.Y+t),
		image.Rect(rect.Min.X, rect.Max.Y-t, rect.Max.X, rect.Max.Y),
		image.Rect(rect.Min.X, rect.Min.Y, rect.Min.X+t, rect.Max.Y),
		image.Rect(rect.Max.X-t, rect.Min.Y, rect.Max.X, rect.Max.Y),
	}
	for _, edge := range edges {
		draw.Draw(dst, edge, src, image.Point{}, draw.Src)
	}
}

// drawLabel puts text on a filled tag above the box, or just inside it when
// the box touches the top edge.
func (a *Annotator) drawLabel(dst *image.NRGBA, rect image.Rectangle, text string, c color.Color) {
	bounds := dst.Bounds()
	metrics := a.face.Metrics()
	textWidth := font.MeasureString(a.face, text).Ceil()
	tagHeight := metrics.Height.Ceil() + 2
	tagWidth := textWidth + 4

	x := rect.Min.X
	if x+tagWidth > bounds.Max.X {
		x = max(bounds.Min.X, bounds.Max.X-tagWidth)
	}
	y := rect.Min.Y - tagHeight
	if y < bounds.Min.Y {
		y = rect.Min.Y
	}

	tag := image.Rect(x, y, x+tagWidth, y+tagHeight).Intersect(bounds)
	draw.Draw(dst, tag, image.NewUniform(c), image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(textColorOn(c)),
		Face: a.face,
		Dot:  fixed.P(x+2, y+1+metrics.Ascent.Ceil()),
	}
	drawer.DrawString(text)
}

// textColorOn picks black or white, whichever reads better on bg.
func textColorOn(bg color.Color) color.Color {
	cf, ok := colorful.MakeColor(bg)
	if !ok {
		return color.White
	}
	if l, _, _ := cf.Lab(); l > 0.6 {
		return color.Black
	}
	return color.White
}
