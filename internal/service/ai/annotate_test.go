package ai

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"yoloweb/internal/dto"
)

func whiteImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()

	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
}

func TestPalette(t *testing.T) {
	palette := Palette(PaletteSize)
	if len(palette) != PaletteSize {
		t.Fatalf("Expected %d colours, got %d", PaletteSize, len(palette))
	}

	seen := map[color.NRGBA]bool{}
	for _, c := range palette {
		seen[color.NRGBAModel.Convert(c).(color.NRGBA)] = true
	}
	if len(seen) != PaletteSize {
		t.Errorf("Expected %d distinct colours, got %d", PaletteSize, len(seen))
	}
}

func TestColorFor_Stable(t *testing.T) {
	a := NewAnnotator()
	b := NewAnnotator()

	for _, class := range []string{"person", "dog", "traffic light"} {
		if a.ColorFor(class) != b.ColorFor(class) {
			t.Errorf("Colour for %s differs between annotators", class)
		}
	}
}

func TestAnnotate_DrawsBox(t *testing.T) {
	a := NewAnnotator()
	src := whiteImage(100, 80)
	detections := []dto.Detection{
		{ClassName: "person", Confidence: 0.9, BBox: dto.BoundingBox{10, 10, 50, 50}},
	}

	out := a.Annotate(src, detections)

	if out.Bounds() != src.Bounds() {
		t.Fatalf("Expected bounds %v, got %v", src.Bounds(), out.Bounds())
	}

	white := color.NRGBA{0xff, 0xff, 0xff, 0xff}
	boxColor := color.NRGBAModel.Convert(a.ColorFor("person")).(color.NRGBA)

	edges := []image.Point{{10, 40}, {49, 40}, {30, 49}}
	for _, p := range edges {
		if got := out.NRGBAAt(p.X, p.Y); got != boxColor {
			t.Errorf("Pixel %v: expected box colour %v, got %v", p, boxColor, got)
		}
	}

	if got := out.NRGBAAt(30, 40); got != white {
		t.Errorf("Box interior should stay untouched, got %v", got)
	}
	if got := out.NRGBAAt(80, 70); got != white {
		t.Errorf("Pixel outside the box should stay untouched, got %v", got)
	}
	if got := src.NRGBAAt(10, 40); got != white {
		t.Error("Annotate must not modify the source image")
	}
}

func TestAnnotate_NoDetections(t *testing.T) {
	src := whiteImage(20, 20)
	out := NewAnnotator().Annotate(src, nil)

	for i := range out.Pix {
		if out.Pix[i] != 0xff {
			t.Fatalf("Expected untouched copy, byte %d is %d", i, out.Pix[i])
		}
	}
}

func TestAnnotate_BoxOutsideImage(t *testing.T) {
	src := whiteImage(20, 20)
	detections := []dto.Detection{
		{ClassName: "car", Confidence: 0.5, BBox: dto.BoundingBox{100, 100, 200, 200}},
	}

	out := NewAnnotator().Annotate(src, detections)
	if out.Bounds() != src.Bounds() {
		t.Errorf("Unexpected bounds %v", out.Bounds())
	}
}

func TestAnnotateFile(t *testing.T) {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "in.png")
	dstPath := filepath.Join(dir, "out.png")
	writePNG(t, srcPath, whiteImage(64, 48))

	detections := []dto.Detection{
		{ClassName: "dog", Confidence: 0.75, BBox: dto.BoundingBox{5, 5, 30, 30}},
	}
	if err := NewAnnotator().AnnotateFile(srcPath, dstPath, detections); err != nil {
		t.Fatalf("AnnotateFile failed: %v", err)
	}

	img, err := LoadImage(dstPath)
	if err != nil {
		t.Fatalf("Failed to load result: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("Expected 64x48 result, got %v", img.Bounds())
	}
}

func TestAnnotateFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	err := NewAnnotator().AnnotateFile(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"), nil)
	if err == nil {
		t.Error("Expected error for missing source")
	}
}

func TestTextColorOn(t *testing.T) {
	if textColorOn(color.White) != color.Black {
		t.Error("Expected black text on white")
	}
	if textColorOn(color.Black) != color.White {
		t.Error("Expected white text on black")
	}
}
