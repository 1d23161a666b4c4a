package catalog

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/setanarut/timericon"
	"github.com/setanarut/timericon/utils"
)

func writeSprite(t *testing.T, dir string) string {
	t.Helper()
	m := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 3; y < 13; y++ {
		for x := 4; x < 12; x++ {
			m.SetNRGBA(x, y, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
		}
	}
	path := filepath.Join(dir, "ghost.png")
	if err := utils.SaveImage(m, path); err != nil {
		t.Fatal(err)
	}
	return path
}

func testCatalog(t *testing.T, out string, edit func(*Series)) *Catalog {
	t.Helper()
	s := DefaultSeries()
	s.Sprite = writeSprite(t, t.TempDir())
	if edit != nil {
		edit(&s)
	}
	opt := DefaultOptions()
	opt.Output = out
	opt.MaxSegments = 3
	opt.Presets = []int{2}
	opt.Workers = 4
	opt.Logger = zerolog.New(zerolog.NewTestWriter(t))
	return New(opt, s)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRunWritesMatrix(t *testing.T) {
	out := t.TempDir()
	res, err := testCatalog(t, out, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 9 || res.Failed != 0 || res.Files != 12 {
		t.Fatalf("result %+v, want 9 units and 12 files", res)
	}
	got := listDir(t, filepath.Join(out, "ghost"))
	want := []string{
		"2-segments-0.gif", "2-segments-1.gif", "2-segments-2.gif",
		"ghost-1-0.gif", "ghost-1-1.gif",
		"ghost-2-0.gif", "ghost-2-1.gif", "ghost-2-2.gif",
		"ghost-3-0.gif", "ghost-3-1.gif", "ghost-3-2.gif", "ghost-3-3.gif",
	}
	if len(got) != len(want) {
		t.Fatalf("files %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("files %v, want %v", got, want)
		}
	}

	primary, _ := os.ReadFile(filepath.Join(out, "ghost", "ghost-2-1.gif"))
	alias, _ := os.ReadFile(filepath.Join(out, "ghost", "2-segments-1.gif"))
	if !bytes.Equal(primary, alias) {
		t.Error("alias differs from primary file")
	}
}

func decodeGIF(t *testing.T, path string) *gif.GIF {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	g, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestGIFFormat(t *testing.T) {
	out := t.TempDir()
	if _, err := testCatalog(t, out, nil).Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	g := decodeGIF(t, filepath.Join(out, "ghost", "ghost-3-1.gif"))
	if len(g.Image) != 8 {
		t.Fatalf("%d frames, want 8", len(g.Image))
	}
	if g.Config.Width != 16 || g.Config.Height != 16 {
		t.Errorf("screen %dx%d, want 16x16", g.Config.Width, g.Config.Height)
	}
	for i, m := range g.Image {
		if m.Bounds() != image.Rect(0, 0, 16, 16) {
			t.Errorf("frame %d bounds %v", i, m.Bounds())
		}
		if _, _, _, a := m.Palette[0].RGBA(); a != 0 {
			t.Errorf("frame %d palette entry 0 is opaque", i)
		}
		if m.ColorIndexAt(0, 0) != 0 {
			t.Errorf("frame %d corner index %d", i, m.ColorIndexAt(0, 0))
		}
		if g.Disposal[i] != gif.DisposalBackground || g.Delay[i] != 12 {
			t.Errorf("frame %d disposal %d delay %d", i, g.Disposal[i], g.Delay[i])
		}
	}

	last := decodeGIF(t, filepath.Join(out, "ghost", "ghost-3-3.gif"))
	if len(last.Image) != 1 {
		t.Fatalf("final track has %d frames, want 1", len(last.Image))
	}
	for _, idx := range last.Image[0].Pix {
		if idx != 0 {
			t.Fatal("final track is not fully transparent")
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	out := t.TempDir()
	blocked := filepath.Join(out, "ghost", "ghost-2-1.gif")
	if err := os.MkdirAll(filepath.Join(blocked, "x"), 0o755); err != nil {
		t.Fatal(err)
	}
	res, err := testCatalog(t, out, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Succeeded != 8 {
		t.Fatalf("result %+v, want 8 ok and 1 failed", res)
	}
	ue := res.Failures[0]
	if ue.Segments != 2 || ue.Track != 1 || ue.Series != "ghost" {
		t.Errorf("failure tagged %+v", ue)
	}
	if _, err := os.Stat(filepath.Join(out, "ghost", "ghost-2-0.gif")); err != nil {
		t.Errorf("sibling unit missing: %v", err)
	}
}

func TestRunFailedAliasLeavesNoPrimary(t *testing.T) {
	out := t.TempDir()
	blocked := filepath.Join(out, "ghost", "2-segments-1.gif")
	if err := os.MkdirAll(filepath.Join(blocked, "x"), 0o755); err != nil {
		t.Fatal(err)
	}
	res, err := testCatalog(t, out, nil).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Succeeded != 8 || res.Files != 10 {
		t.Fatalf("result %+v, want 8 ok, 1 failed and 10 files", res)
	}
	if ue := res.Failures[0]; ue.Segments != 2 || ue.Track != 1 {
		t.Errorf("failure tagged %+v", ue)
	}
	if _, err := os.Stat(filepath.Join(out, "ghost", "ghost-2-1.gif")); !os.IsNotExist(err) {
		t.Errorf("primary of a failed unit is on disk: %v", err)
	}
	for _, name := range listDir(t, filepath.Join(out, "ghost")) {
		if strings.Contains(name, ".tmp-") {
			t.Errorf("temporary file %s left behind", name)
		}
	}
}

func TestRunMissingSprite(t *testing.T) {
	out := t.TempDir()
	c := testCatalog(t, out, func(s *Series) { s.Sprite = filepath.Join(out, "nope.png") })
	res, err := c.Run(context.Background())
	if !errors.Is(err, timericon.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if res.Succeeded+res.Failed != 0 {
		t.Errorf("units ran: %+v", res)
	}
	if _, err := os.Stat(filepath.Join(out, "ghost")); !os.IsNotExist(err) {
		t.Errorf("output directory created: %v", err)
	}
}

func TestRunDeterministic(t *testing.T) {
	fill := func(s *Series) {
		s.Composer.Mode = timericon.ModeFill
		s.Seed = 99
	}
	a, b := t.TempDir(), t.TempDir()
	sprite := writeSprite(t, t.TempDir())
	for _, out := range []string{a, b} {
		c := testCatalog(t, out, func(s *Series) { fill(s); s.Sprite = sprite })
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range listDir(t, filepath.Join(a, "ghost")) {
		x, _ := os.ReadFile(filepath.Join(a, "ghost", name))
		y, _ := os.ReadFile(filepath.Join(b, "ghost", name))
		if !bytes.Equal(x, y) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestRunPNGAndAPNG(t *testing.T) {
	for _, f := range []Format{FormatPNG, FormatAPNG} {
		out := t.TempDir()
		c := testCatalog(t, out, func(s *Series) { s.Format = f; s.Name = f.String() })
		res, err := c.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if res.Failed != 0 {
			t.Fatalf("%v: %+v", f, res.Failures)
		}
		r, err := os.Open(filepath.Join(out, f.String(), Name(f.String(), Unit{Segments: 3, Track: 1}, "png")))
		if err != nil {
			t.Fatal(err)
		}
		m, err := png.Decode(r)
		r.Close()
		if err != nil {
			t.Fatalf("%v: %v", f, err)
		}
		if m.Bounds() != image.Rect(0, 0, 16, 16) {
			t.Errorf("%v: bounds %v", f, m.Bounds())
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := testCatalog(t, t.TempDir(), nil).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Succeeded != 0 {
		t.Errorf("%d units ran after cancel", res.Succeeded)
	}
}

func TestNames(t *testing.T) {
	u := Unit{Segments: 12, Track: 4}
	if got := Name("pumpkin", u, "gif"); got != "pumpkin-12-4.gif" {
		t.Errorf("Name = %q", got)
	}
	if got := AliasName(u, "png"); got != "12-segments-4.png" {
		t.Errorf("AliasName = %q", got)
	}
	if n := len(Units(20)); n != 230 {
		t.Errorf("Units(20) has %d entries, want 230", n)
	}
}

func TestPreview(t *testing.T) {
	s := DefaultSeries()
	s.Sprite = writeSprite(t, t.TempDir())
	dir := t.TempDir()
	if err := Preview(s, Unit{Segments: 4, Track: 1}, dir, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	got := listDir(t, dir)
	if len(got) != 9 {
		t.Fatalf("preview wrote %v, want 8 frames and a swatch", got)
	}
	if got[len(got)-1] != "ghost-4-1_7.png" || got[0] != "ghost-4-1-palette.png" {
		t.Errorf("preview files %v", got)
	}
}

func TestRunBlocks(t *testing.T) {
	out := t.TempDir()
	opt := DefaultOptions()
	opt.Output = out
	opt.MaxSegments = 3
	opt.Presets = []int{2}
	opt.Logger = zerolog.New(zerolog.NewTestWriter(t))

	s := DefaultBlocksSeries()
	res, err := New(opt, s).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Succeeded != 9 || res.Failed != 0 || res.Files != 12 {
		t.Fatalf("result %+v, want 9 units and 12 files", res)
	}

	g := decodeGIF(t, filepath.Join(out, "blocks", "blocks-3-1.gif"))
	if len(g.Image) != 12 {
		t.Fatalf("%d frames, want 12", len(g.Image))
	}
	for i := range g.Image {
		if g.Delay[i] != 8 || g.Disposal[i] != gif.DisposalBackground {
			t.Errorf("frame %d delay %d disposal %d", i, g.Delay[i], g.Disposal[i])
		}
	}
	// 3 segments: a 3x1 row of 4x16 blocks; track 1 leaves the right one dark.
	if idx := g.Image[0].ColorIndexAt(13, 8); idx != 0 {
		t.Errorf("elapsed block index %d, want transparent", idx)
	}
	if idx := g.Image[0].ColorIndexAt(2, 8); idx == 0 {
		t.Error("first block is transparent")
	}

	last := decodeGIF(t, filepath.Join(out, "blocks", "2-segments-2.gif"))
	if len(last.Image) != 1 {
		t.Errorf("final track has %d frames, want 1", len(last.Image))
	}
}

func TestPreviewBlocks(t *testing.T) {
	dir := t.TempDir()
	if err := Preview(DefaultBlocksSeries(), Unit{Segments: 5, Track: 2}, dir, zerolog.Nop()); err != nil {
		t.Fatal(err)
	}
	if got := listDir(t, dir); len(got) != 13 {
		t.Errorf("preview wrote %v, want 12 frames and a swatch", got)
	}
}

func TestParseSource(t *testing.T) {
	for _, src := range []Source{SourceSprite, SourceBlocks} {
		got, err := ParseSource(src.String())
		if err != nil || got != src {
			t.Errorf("ParseSource(%q) = %v, %v", src.String(), got, err)
		}
	}
	if _, err := ParseSource("tree"); !errors.Is(err, timericon.ErrInvalidOptions) {
		t.Errorf("ParseSource(tree) err = %v", err)
	}
}
