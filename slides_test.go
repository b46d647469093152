package docconv

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func readZipPart(t *testing.T, zr *zip.ReadCloser, name string) string {
	t.Helper()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("opening %s: %v", name, err)
		}
		defer func() { _ = rc.Close() }()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		return string(data)
	}
	t.Fatalf("part %s missing", name)
	return ""
}

// ---------------------------------------------------------------------------
// TestSlideDeck - Package structure and placement
// ---------------------------------------------------------------------------

func TestSlideDeck_WritesValidPackage(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	deck, err := createSlideDeck(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := deck.AddImage(solidImage(1920, 1080, color.White), ScreenDPI, 85); err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	if err := deck.AddImage(solidImage(100, 400, color.Black), ScreenDPI, 0); err != nil {
		t.Fatalf("AddImage() error = %v", err)
	}
	if deck.Slides() != 2 {
		t.Errorf("Slides() = %d, want 2", deck.Slides())
	}
	if err := deck.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	defer func() { _ = zr.Close() }()

	for _, name := range []string{
		"[Content_Types].xml",
		"_rels/.rels",
		"ppt/presentation.xml",
		"ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml",
		"ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml",
		"ppt/slides/slide2.xml",
		"ppt/slides/_rels/slide2.xml.rels",
		"ppt/media/image1.jpeg",
		"ppt/media/image2.png",
	} {
		content := readZipPart(t, zr, name)
		if strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".rels") {
			if err := xml.Unmarshal([]byte(content), new(struct{})); err != nil {
				t.Errorf("%s is not well-formed XML: %v", name, err)
			}
		}
	}

	pres := readZipPart(t, zr, "ppt/presentation.xml")
	if !strings.Contains(pres, `<p:sldSz cx="12192000" cy="6858000"/>`) {
		t.Error("slide size is not 16:9")
	}
	if !strings.Contains(pres, `<p:sldId id="257" r:id="rId4"/>`) {
		t.Errorf("second slide id missing:\n%s", pres)
	}
	if rels := readZipPart(t, zr, "ppt/slides/_rels/slide2.xml.rels"); !strings.Contains(rels, "../media/image2.png") {
		t.Errorf("slide 2 does not reference its media:\n%s", rels)
	}
}

var xfrmPattern = regexp.MustCompile(`<a:off x="(\d+)" y="(\d+)"/><a:ext cx="(\d+)" cy="(\d+)"/>`)

func TestSlideDeck_PlacementIsCentered(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "deck.pptx")
	deck, err := createSlideDeck(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := deck.AddImage(solidImage(1920, 1080, color.White), ScreenDPI, 85); err != nil {
		t.Fatal(err)
	}
	if err := deck.Close(); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = zr.Close() }()

	m := xfrmPattern.FindStringSubmatch(readZipPart(t, zr, "ppt/slides/slide1.xml"))
	if m == nil {
		t.Fatal("no picture transform in slide")
	}
	v := make([]int64, 4)
	for i := range v {
		v[i], _ = strconv.ParseInt(m[i+1], 10, 64)
	}

	// 16:9 image on a 16:9 slide: both dimensions bind at 95%.
	want := []int64{304800, 171450, 11582400, 6515100}
	for i := range want {
		if d := v[i] - want[i]; d < -1 || d > 1 {
			t.Errorf("xfrm[%d] = %d, want %d", i, v[i], want[i])
		}
	}
}

func TestSlideDeck_EmptyIsDiscarded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "empty.pptx")
	deck, err := createSlideDeck(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := deck.Close(); !errors.Is(err, ErrExternalOperation) {
		t.Errorf("Close() error = %v, want ErrExternalOperation", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("leftover files: %d", len(entries))
	}
}

func TestSlideDeck_AbortRemovesTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	deck, err := createSlideDeck(filepath.Join(dir, "x.pptx"))
	if err != nil {
		t.Fatal(err)
	}
	if err := deck.AddImage(solidImage(10, 10, color.White), ScreenDPI, 0); err != nil {
		t.Fatal(err)
	}
	deck.Abort()
	deck.Abort()

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("leftover files after Abort: %d", len(entries))
	}
}
