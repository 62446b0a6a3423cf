// Package aseprite decodes the first frame of an Aseprite (.ase/.aseprite)
// sprite into an image. Visible layers are flattened with normal blending;
// tilemap layers are skipped.
package aseprite

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"os"
	"sort"
)

const (
	headerSize      = 128
	frameHeaderSize = 16
	headerMagic     = 0xA5E0
	frameMagic      = 0xF1FA

	chunkOldPalette = 0x0004
	chunkLayer      = 0x2004
	chunkCel        = 0x2005
	chunkPalette    = 0x2019

	celRaw        = 0
	celLinked     = 1
	celCompressed = 2

	layerVisible    = 1
	layerBackground = 8
	layerTypeImage  = 0

	flagLayerOpacity = 1
)

// Color depths in bits per pixel
const (
	DepthIndexed   = 8
	DepthGrayscale = 16
	DepthRGBA      = 32
)

var (
	ErrBadMagic    = errors.New("aseprite: bad magic number")
	ErrNoFrames    = errors.New("aseprite: file has no frames")
	ErrUnsupported = errors.New("aseprite: unsupported color depth")
	ErrTruncated   = errors.New("aseprite: truncated data")
)

func init() {
	image.RegisterFormat("aseprite", "????\xe0\xa5", Decode, DecodeConfig)
}

// Header is the fixed file header
type Header struct {
	FileSize         uint32
	Frames           uint16
	Width            uint16
	Height           uint16
	Depth            uint16
	Flags            uint32
	TransparentIndex uint8
	NumColors        uint16
}

// Layer describes one layer of the sprite
type Layer struct {
	Name       string
	Flags      uint16
	Type       uint16
	ChildLevel uint16
	BlendMode  uint16
	Opacity    uint8

	// Visible is false when the layer or any group above it is hidden
	Visible bool
}

type cel struct {
	layer   int
	x, y    int
	opacity uint8
	zIndex  int
	img     *image.NRGBA
}

type decoder struct {
	header  Header
	palette color.Palette
	layers  []Layer
	cels    []cel
}

// Load reads and decodes the sprite at path
func Load(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img.(*image.NRGBA), nil
}

// DecodeConfig returns the sprite dimensions without decoding pixels
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return image.Config{}, ErrTruncated
	}
	h, err := parseHeader(buf)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// Decode flattens the first frame into an *image.NRGBA
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize {
		return nil, ErrTruncated
	}

	d := &decoder{}
	if d.header, err = parseHeader(data); err != nil {
		return nil, err
	}
	if d.header.Frames == 0 {
		return nil, ErrNoFrames
	}

	if err := d.readFrame(data[headerSize:]); err != nil {
		return nil, err
	}
	return d.compose(), nil
}

// Layers returns the layer table of the sprite in r
func Layers(r io.Reader) ([]Layer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize {
		return nil, ErrTruncated
	}

	d := &decoder{}
	if d.header, err = parseHeader(data); err != nil {
		return nil, err
	}
	if d.header.Frames == 0 {
		return nil, ErrNoFrames
	}
	if err := d.readFrame(data[headerSize:]); err != nil {
		return nil, err
	}
	return d.layers, nil
}

func parseHeader(b []byte) (Header, error) {
	le := binary.LittleEndian
	if le.Uint16(b[4:]) != headerMagic {
		return Header{}, ErrBadMagic
	}

	h := Header{
		FileSize:         le.Uint32(b[0:]),
		Frames:           le.Uint16(b[6:]),
		Width:            le.Uint16(b[8:]),
		Height:           le.Uint16(b[10:]),
		Depth:            le.Uint16(b[12:]),
		Flags:            le.Uint32(b[14:]),
		TransparentIndex: b[28],
		NumColors:        le.Uint16(b[32:]),
	}

	switch h.Depth {
	case DepthRGBA, DepthGrayscale, DepthIndexed:
	default:
		return Header{}, fmt.Errorf("%w: %d", ErrUnsupported, h.Depth)
	}
	return h, nil
}

func (d *decoder) readFrame(b []byte) error {
	le := binary.LittleEndian
	if len(b) < frameHeaderSize {
		return ErrTruncated
	}
	if le.Uint16(b[4:]) != frameMagic {
		return fmt.Errorf("%w: frame", ErrBadMagic)
	}

	size := int(le.Uint32(b[0:]))
	if size < frameHeaderSize || size > len(b) {
		return ErrTruncated
	}

	chunks := int(le.Uint32(b[12:]))
	if chunks == 0 {
		chunks = int(le.Uint16(b[6:]))
	}

	pos := frameHeaderSize
	for i := 0; i < chunks; i++ {
		if pos+6 > size {
			return ErrTruncated
		}
		chunkSize := int(le.Uint32(b[pos:]))
		chunkType := le.Uint16(b[pos+4:])
		if chunkSize < 6 || pos+chunkSize > size {
			return ErrTruncated
		}

		if err := d.readChunk(chunkType, b[pos+6:pos+chunkSize]); err != nil {
			return err
		}
		pos += chunkSize
	}

	return nil
}

func (d *decoder) readChunk(kind uint16, b []byte) error {
	switch kind {
	case chunkLayer:
		return d.readLayer(b)
	case chunkCel:
		return d.readCel(b)
	case chunkPalette:
		return d.readPalette(b)
	case chunkOldPalette:
		// The newer palette chunk wins when both are present
		if d.palette == nil {
			return d.readOldPalette(b)
		}
	}
	return nil
}

func (d *decoder) readLayer(b []byte) error {
	le := binary.LittleEndian
	if len(b) < 18 {
		return ErrTruncated
	}

	l := Layer{
		Flags:      le.Uint16(b[0:]),
		Type:       le.Uint16(b[2:]),
		ChildLevel: le.Uint16(b[4:]),
		BlendMode:  le.Uint16(b[10:]),
		Opacity:    255,
	}
	if d.header.Flags&flagLayerOpacity != 0 {
		l.Opacity = b[12]
	}

	nameLen := int(le.Uint16(b[16:]))
	if 18+nameLen > len(b) {
		return ErrTruncated
	}
	l.Name = string(b[18 : 18+nameLen])

	l.Visible = l.Flags&layerVisible != 0
	if l.ChildLevel > 0 {
		l.Visible = l.Visible && d.parentVisible(int(l.ChildLevel))
	}

	d.layers = append(d.layers, l)
	return nil
}

// parentVisible finds the closest preceding layer one level up
func (d *decoder) parentVisible(level int) bool {
	for i := len(d.layers) - 1; i >= 0; i-- {
		if int(d.layers[i].ChildLevel) == level-1 {
			return d.layers[i].Visible
		}
	}
	return true
}

func (d *decoder) readCel(b []byte) error {
	le := binary.LittleEndian
	if len(b) < 16 {
		return ErrTruncated
	}

	c := cel{
		layer:   int(le.Uint16(b[0:])),
		x:       int(int16(le.Uint16(b[2:]))),
		y:       int(int16(le.Uint16(b[4:]))),
		opacity: b[6],
		zIndex:  int(int16(le.Uint16(b[9:]))),
	}
	celType := le.Uint16(b[7:])

	switch celType {
	case celRaw, celCompressed:
	case celLinked:
		// Links point at earlier frames, which the first frame does not have
		return nil
	default:
		return nil
	}

	if len(b) < 20 {
		return ErrTruncated
	}
	w := int(le.Uint16(b[16:]))
	h := int(le.Uint16(b[18:]))
	pixels := b[20:]

	if celType == celCompressed {
		zr, err := zlib.NewReader(bytes.NewReader(pixels))
		if err != nil {
			return fmt.Errorf("aseprite: cel data: %w", err)
		}
		defer zr.Close()
		if pixels, err = io.ReadAll(zr); err != nil {
			return fmt.Errorf("aseprite: cel data: %w", err)
		}
	}

	bpp := int(d.header.Depth) / 8
	if len(pixels) < w*h*bpp {
		return ErrTruncated
	}

	background := c.layer < len(d.layers) && d.layers[c.layer].Flags&layerBackground != 0
	c.img = image.NewNRGBA(image.Rect(c.x, c.y, c.x+w, c.y+h))
	for py := 0; py < h; py++ {
		for px := 0; px < w; px++ {
			off := (py*w + px) * bpp
			c.img.SetNRGBA(c.x+px, c.y+py, d.pixel(pixels[off:off+bpp], background))
		}
	}

	d.cels = append(d.cels, c)
	return nil
}

func (d *decoder) pixel(p []byte, background bool) color.NRGBA {
	switch d.header.Depth {
	case DepthRGBA:
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	case DepthGrayscale:
		return color.NRGBA{R: p[0], G: p[0], B: p[0], A: p[1]}
	default:
		idx := p[0]
		if idx == d.header.TransparentIndex && !background {
			return color.NRGBA{}
		}
		if int(idx) >= len(d.palette) {
			return color.NRGBA{}
		}
		return color.NRGBAModel.Convert(d.palette[idx]).(color.NRGBA)
	}
}

func (d *decoder) readPalette(b []byte) error {
	le := binary.LittleEndian
	if len(b) < 20 {
		return ErrTruncated
	}

	size := int(le.Uint32(b[0:]))
	first := int(le.Uint32(b[4:]))
	last := int(le.Uint32(b[8:]))
	if last < first || size > 1<<16 {
		return fmt.Errorf("aseprite: invalid palette range %d-%d", first, last)
	}

	if len(d.palette) < size {
		grown := make(color.Palette, size)
		copy(grown, d.palette)
		for i := len(d.palette); i < size; i++ {
			grown[i] = color.NRGBA{}
		}
		d.palette = grown
	}

	pos := 20
	for i := first; i <= last; i++ {
		if pos+6 > len(b) {
			return ErrTruncated
		}
		flags := le.Uint16(b[pos:])
		entry := color.NRGBA{R: b[pos+2], G: b[pos+3], B: b[pos+4], A: b[pos+5]}
		pos += 6

		if flags&1 != 0 {
			if pos+2 > len(b) {
				return ErrTruncated
			}
			pos += 2 + int(le.Uint16(b[pos:]))
		}
		if i < len(d.palette) {
			d.palette[i] = entry
		}
	}
	return nil
}

func (d *decoder) readOldPalette(b []byte) error {
	le := binary.LittleEndian
	if len(b) < 2 {
		return ErrTruncated
	}

	d.palette = make(color.Palette, 256)
	for i := range d.palette {
		d.palette[i] = color.NRGBA{}
	}

	packets := int(le.Uint16(b[0:]))
	pos, idx := 2, 0
	for p := 0; p < packets; p++ {
		if pos+2 > len(b) {
			return ErrTruncated
		}
		idx += int(b[pos])
		count := int(b[pos+1])
		if count == 0 {
			count = 256
		}
		pos += 2

		for c := 0; c < count; c++ {
			if pos+3 > len(b) {
				return ErrTruncated
			}
			if idx < len(d.palette) {
				d.palette[idx] = color.NRGBA{R: b[pos], G: b[pos+1], B: b[pos+2], A: 255}
			}
			idx++
			pos += 3
		}
	}
	return nil
}

func (d *decoder) compose() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, int(d.header.Width), int(d.header.Height)))

	cels := make([]cel, 0, len(d.cels))
	for _, c := range d.cels {
		if c.layer >= len(d.layers) {
			continue
		}
		l := d.layers[c.layer]
		if !l.Visible || l.Type != layerTypeImage {
			continue
		}
		cels = append(cels, c)
	}

	// Stacking order is layer index plus z-index, ties broken by z-index
	sort.SliceStable(cels, func(i, j int) bool {
		oi, oj := cels[i].layer+cels[i].zIndex, cels[j].layer+cels[j].zIndex
		if oi != oj {
			return oi < oj
		}
		return cels[i].zIndex < cels[j].zIndex
	})

	for _, c := range cels {
		opacity := uint8(int(c.opacity) * int(d.layers[c.layer].Opacity) / 255)
		if opacity == 0 {
			continue
		}
		mask := image.NewUniform(color.Alpha{A: opacity})
		draw.DrawMask(dst, c.img.Bounds(), c.img, c.img.Bounds().Min, mask, image.Point{}, draw.Over)
	}

	return dst
}
