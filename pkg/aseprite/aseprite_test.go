package aseprite

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

// spriteBuilder assembles a single-frame sprite for tests
type spriteBuilder struct {
	width, height uint16
	depth         uint16
	flags         uint32
	transparent   uint8
	chunks        [][]byte
}

func newSprite(w, h, depth uint16) *spriteBuilder {
	return &spriteBuilder{width: w, height: h, depth: depth, flags: flagLayerOpacity}
}

func (s *spriteBuilder) chunk(kind uint16, data []byte) *spriteBuilder {
	var b bytes.Buffer
	binary.Write(&b, binary.LittleEndian, uint32(len(data)+6))
	binary.Write(&b, binary.LittleEndian, kind)
	b.Write(data)
	s.chunks = append(s.chunks, b.Bytes())
	return s
}

func (s *spriteBuilder) layer(name string, flags uint16, childLevel uint16, opacity uint8) *spriteBuilder {
	var b bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&b, le, flags)
	binary.Write(&b, le, uint16(layerTypeImage))
	binary.Write(&b, le, childLevel)
	binary.Write(&b, le, uint16(0)) // default width
	binary.Write(&b, le, uint16(0)) // default height
	binary.Write(&b, le, uint16(0)) // blend mode
	b.WriteByte(opacity)
	b.Write([]byte{0, 0, 0})
	binary.Write(&b, le, uint16(len(name)))
	b.WriteString(name)
	return s.chunk(chunkLayer, b.Bytes())
}

func (s *spriteBuilder) cel(layer uint16, x, y int16, w, h uint16, pixels []byte, compressed bool) *spriteBuilder {
	var b bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&b, le, layer)
	binary.Write(&b, le, x)
	binary.Write(&b, le, y)
	b.WriteByte(255)
	celType := uint16(celRaw)
	if compressed {
		celType = celCompressed
	}
	binary.Write(&b, le, celType)
	binary.Write(&b, le, int16(0))
	b.Write(make([]byte, 5))
	binary.Write(&b, le, w)
	binary.Write(&b, le, h)

	if compressed {
		zw := zlib.NewWriter(&b)
		zw.Write(pixels)
		zw.Close()
	} else {
		b.Write(pixels)
	}
	return s.chunk(chunkCel, b.Bytes())
}

func (s *spriteBuilder) palette(colors ...color.NRGBA) *spriteBuilder {
	var b bytes.Buffer
	le := binary.LittleEndian
	binary.Write(&b, le, uint32(len(colors)))
	binary.Write(&b, le, uint32(0))
	binary.Write(&b, le, uint32(len(colors)-1))
	b.Write(make([]byte, 8))
	for _, c := range colors {
		binary.Write(&b, le, uint16(0))
		b.Write([]byte{c.R, c.G, c.B, c.A})
	}
	return s.chunk(chunkPalette, b.Bytes())
}

func (s *spriteBuilder) bytes() []byte {
	le := binary.LittleEndian

	var body bytes.Buffer
	for _, c := range s.chunks {
		body.Write(c)
	}

	var frame bytes.Buffer
	binary.Write(&frame, le, uint32(frameHeaderSize+body.Len()))
	binary.Write(&frame, le, uint16(frameMagic))
	binary.Write(&frame, le, uint16(len(s.chunks)))
	binary.Write(&frame, le, uint16(100))
	frame.Write([]byte{0, 0})
	binary.Write(&frame, le, uint32(len(s.chunks)))
	frame.Write(body.Bytes())

	header := make([]byte, headerSize)
	le.PutUint32(header[0:], uint32(headerSize+frame.Len()))
	le.PutUint16(header[4:], headerMagic)
	le.PutUint16(header[6:], 1)
	le.PutUint16(header[8:], s.width)
	le.PutUint16(header[10:], s.height)
	le.PutUint16(header[12:], s.depth)
	le.PutUint32(header[14:], s.flags)
	header[28] = s.transparent

	return append(header, frame.Bytes()...)
}

func rgba(pixels ...color.NRGBA) []byte {
	out := make([]byte, 0, len(pixels)*4)
	for _, p := range pixels {
		out = append(out, p.R, p.G, p.B, p.A)
	}
	return out
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	none  = color.NRGBA{}
)

func TestDecode_RGBACompressed(t *testing.T) {
	data := newSprite(2, 2, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 2, 2, rgba(red, green, blue, none), true).
		bytes()

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nrgba := img.(*image.NRGBA)
	if nrgba.Bounds() != image.Rect(0, 0, 2, 2) {
		t.Fatalf("unexpected bounds %v", nrgba.Bounds())
	}

	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, red},
		{1, 0, green},
		{0, 1, blue},
		{1, 1, none},
	}
	for _, tt := range tests {
		if got := nrgba.NRGBAAt(tt.x, tt.y); got != tt.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestDecode_RawCelOffset(t *testing.T) {
	data := newSprite(3, 3, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		cel(0, 2, 1, 1, 1, rgba(blue), false).
		bytes()

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nrgba := img.(*image.NRGBA)
	if got := nrgba.NRGBAAt(2, 1); got != blue {
		t.Errorf("expected blue at (2,1), got %v", got)
	}
	if got := nrgba.NRGBAAt(0, 0); got != none {
		t.Errorf("expected transparent at (0,0), got %v", got)
	}
}

func TestDecode_LayerOrderAndVisibility(t *testing.T) {
	data := newSprite(1, 1, DepthRGBA).
		layer("bottom", layerVisible, 0, 255).
		layer("top", layerVisible, 0, 255).
		layer("hidden", 0, 0, 255).
		cel(1, 0, 0, 1, 1, rgba(green), false).
		cel(0, 0, 0, 1, 1, rgba(red), false).
		cel(2, 0, 0, 1, 1, rgba(blue), false).
		bytes()

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != green {
		t.Errorf("expected top visible layer (green), got %v", got)
	}
}

func TestDecode_HiddenGroupHidesChildren(t *testing.T) {
	data := newSprite(1, 1, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		layer("group", 0, 0, 255).
		layer("child", layerVisible, 1, 255).
		cel(0, 0, 0, 1, 1, rgba(red), false).
		cel(2, 0, 0, 1, 1, rgba(blue), false).
		bytes()

	layers, err := Layers(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Layers: %v", err)
	}
	if len(layers) != 3 || layers[2].Visible {
		t.Fatalf("child of hidden group should be invisible: %+v", layers)
	}
	if layers[2].Name != "child" {
		t.Errorf("unexpected layer name %q", layers[2].Name)
	}

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != red {
		t.Errorf("expected red, got %v", got)
	}
}

func TestDecode_FirstFrameOnly(t *testing.T) {
	first := newSprite(1, 1, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 1, 1, rgba(red), false).
		bytes()
	second := newSprite(1, 1, DepthRGBA).
		cel(0, 0, 0, 1, 1, rgba(blue), false).
		bytes()

	data := append(first, second[headerSize:]...)
	binary.LittleEndian.PutUint16(data[6:], 2)
	binary.LittleEndian.PutUint32(data[0:], uint32(len(data)))

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1 || b.Dy() != 1 {
		t.Fatalf("expected a single 1x1 frame, got %v", b)
	}
	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != red {
		t.Errorf("expected the first frame (red), got %v", got)
	}
}

func TestDecode_ZeroOpacityLayer(t *testing.T) {
	data := newSprite(1, 1, DepthRGBA).
		layer("ghost", layerVisible, 0, 0).
		cel(0, 0, 0, 1, 1, rgba(red), false).
		bytes()

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("expected transparent pixel, got %v", got)
	}
}

func TestDecode_Indexed(t *testing.T) {
	s := newSprite(2, 1, DepthIndexed)
	s.transparent = 0
	data := s.
		palette(none, red, green).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 2, 1, []byte{2, 0}, true).
		bytes()

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nrgba := img.(*image.NRGBA)
	if got := nrgba.NRGBAAt(0, 0); got != green {
		t.Errorf("expected green, got %v", got)
	}
	if got := nrgba.NRGBAAt(1, 0); got.A != 0 {
		t.Errorf("transparent index should be clear, got %v", got)
	}
}

func TestDecode_Grayscale(t *testing.T) {
	data := newSprite(1, 1, DepthGrayscale).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 1, 1, []byte{128, 255}, false).
		bytes()

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := color.NRGBA{R: 128, G: 128, B: 128, A: 255}
	if got := img.(*image.NRGBA).NRGBAAt(0, 0); got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestDecode_Errors(t *testing.T) {
	valid := newSprite(1, 1, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 1, 1, rgba(red), false).
		bytes()

	badMagic := append([]byte(nil), valid...)
	badMagic[4] = 0

	badDepth := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(badDepth[12:], 24)

	noFrames := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint16(noFrames[6:], 0)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrTruncated},
		{"short header", valid[:50], ErrTruncated},
		{"bad magic", badMagic, ErrBadMagic},
		{"bad depth", badDepth, ErrUnsupported},
		{"no frames", noFrames, ErrNoFrames},
		{"truncated frame", valid[:len(valid)-3], ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDecodeConfig(t *testing.T) {
	data := newSprite(16, 8, DepthRGBA).layer("base", layerVisible, 0, 255).bytes()

	cfg, err := DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Width != 16 || cfg.Height != 8 {
		t.Errorf("expected 16x8, got %dx%d", cfg.Width, cfg.Height)
	}
}

func TestImageDecodeRegistered(t *testing.T) {
	data := newSprite(1, 1, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 1, 1, rgba(red), false).
		bytes()

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("image.Decode: %v", err)
	}
	if format != "aseprite" {
		t.Errorf("expected format aseprite, got %q", format)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brick.aseprite")
	data := newSprite(1, 1, DepthRGBA).
		layer("base", layerVisible, 0, 255).
		cel(0, 0, 0, 1, 1, rgba(green), true).
		bytes()
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := img.NRGBAAt(0, 0); got != green {
		t.Errorf("expected green, got %v", got)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.aseprite")); err == nil {
		t.Error("expected error for missing file")
	}
}
