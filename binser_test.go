package binser_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/maxatome/go-testdeep/td"

	"github.com/stewi1014/binser"
	"github.com/stewi1014/binser/encio"
	"github.com/stewi1014/binser/schema"
)

type Chunk interface {
	chunk()
}

type ChunkContainer struct {
	Length    int32  `bin:"0"`
	ChunkType string `bin:"1,len=4"`
	Chunk     Chunk  `bin:"2,len=Length"`
	Crc       int32  `bin:"3"`
}

type ImageHeaderChunk struct {
	Width             uint32 `bin:"0,endian=big"`
	Height            uint32 `bin:"1,endian=big"`
	BitDepth          uint8  `bin:"2"`
	ColorType         uint8  `bin:"3"`
	CompressionMethod uint8  `bin:"4"`
	FilterMethod      uint8  `bin:"5"`
	InterlaceMethod   uint8  `bin:"6"`
}

type PaletteEntry struct {
	R uint8 `bin:"0"`
	G uint8 `bin:"1"`
	B uint8 `bin:"2"`
}

type PaletteChunk struct {
	Entries []PaletteEntry `bin:"0"`
}

type ImageDataChunk struct {
	Data []byte `bin:"0"`
}

type TestChunk struct {
	Customs []CustomSerializable `bin:"0"`
}

type RawChunk struct {
	Data []byte `bin:"0"`
}

func (*ImageHeaderChunk) chunk() {}
func (*PaletteChunk) chunk()     {}
func (*ImageDataChunk) chunk()   {}
func (*TestChunk) chunk()        {}
func (*RawChunk) chunk()         {}

// CustomSerializable encodes itself as a single byte.
type CustomSerializable struct {
	Value byte `bin:"-"`
}

func (c *CustomSerializable) SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *binser.Context) error {
	_, err := w.Write([]byte{c.Value})
	return err
}

func (c *CustomSerializable) DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *binser.Context) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	c.Value = b[0]
	return nil
}

var chunks = schema.NewRegistry()

func init() {
	chunks.MustBind(ChunkContainer{}, "Chunk",
		schema.Case("ChunkType", "IHDR", &ImageHeaderChunk{}),
		schema.Case("ChunkType", "PLTE", &PaletteChunk{}),
		schema.Case("ChunkType", "IDAT", &ImageDataChunk{}),
		schema.Case("ChunkType", "TEST", &TestChunk{}),
		schema.Case("ChunkType", "SKIP", &SkipChunk{}),
		schema.Case("ChunkType", "OVER", &OverChunk{}),
		schema.Case("ChunkType", "LOOK", &LookupChunk{}),
		schema.Case("ChunkType", "EMPT", &EmptyChunk{}),
		schema.Case("ChunkType", "GRDY", &GreedyChunk{}),
		schema.Default(&RawChunk{}),
	)
}

func newChunkSerializer(config *binser.Config) *binser.Serializer {
	c := binser.Config{Registry: chunks}
	if config != nil {
		c = *config
		c.Registry = chunks
	}
	return binser.New(&c)
}

var testContainer = ChunkContainer{
	Chunk: &TestChunk{
		Customs: []CustomSerializable{{Value: 1}, {Value: 2}},
	},
	Crc: 7,
}

var testContainerBytes = []byte{
	2, 0, 0, 0, // Length
	'T', 'E', 'S', 'T', // ChunkType
	1, 2, // Chunk
	7, 0, 0, 0, // Crc
}

func TestChunkContainer(t *testing.T) {
	s := newChunkSerializer(nil)

	var b bytes.Buffer
	td.Require(t).CmpNoError(s.Serialize(encio.ForwardOnly(&b), testContainer))
	if diff := cmp.Diff(testContainerBytes, b.Bytes()); diff != "" {
		t.Errorf("encoded layout (-want +got):\n%v", diff)
	}

	// derived fields are not written back to the caller's value.
	td.Cmp(t, testContainer.Length, int32(0))
	td.Cmp(t, testContainer.ChunkType, "")

	got, err := binser.DeserializeWith[ChunkContainer](s, encio.ForwardOnly(&b))
	td.Require(t).CmpNoError(err)
	td.Cmp(t, got, ChunkContainer{
		Length:    2,
		ChunkType: "TEST",
		Chunk: &TestChunk{
			Customs: []CustomSerializable{{Value: 1}, {Value: 2}},
		},
		Crc: 7,
	})
	td.Cmp(t, b.Len(), 0)
}

func TestChunkContainerPipe(t *testing.T) {
	s := newChunkSerializer(nil)
	p := encio.NewPipe()

	sent := []ChunkContainer{
		testContainer,
		{
			Chunk: &ImageHeaderChunk{Width: 640, Height: 480, BitDepth: 8, ColorType: 6},
			Crc:   -1,
		},
		{
			Chunk: &PaletteChunk{Entries: []PaletteEntry{{255, 0, 0}, {0, 255, 0}}},
		},
		{
			Chunk: &ImageDataChunk{Data: []byte{0x78, 0x9c, 0x01}},
			Crc:   3,
		},
		{
			ChunkType: "tEXt",
			Chunk:     &RawChunk{Data: []byte("Comment")},
		},
	}

	errc := make(chan error, 1)
	go func() {
		defer p.Close()
		for _, c := range sent {
			if err := s.Serialize(p, c); err != nil {
				errc <- err
				return
			}
		}
		errc <- nil
	}()

	r := encio.NewReader(p)
	for i := range sent {
		got, err := binser.DeserializeWith[ChunkContainer](s, r)
		td.Require(t).CmpNoError(err, "container %v", i)
		td.Cmp(t, got.Chunk, sent[i].Chunk, "container %v", i)
		td.Cmp(t, got.Crc, sent[i].Crc, "container %v", i)
	}
	td.CmpNoError(t, <-errc)

	more, err := r.More()
	td.CmpNoError(t, err)
	td.CmpFalse(t, more)
}

func TestImageHeaderLayout(t *testing.T) {
	s := newChunkSerializer(nil)

	var b bytes.Buffer
	td.Require(t).CmpNoError(s.Serialize(&b, ChunkContainer{
		Chunk: &ImageHeaderChunk{Width: 1, Height: 0x0102, BitDepth: 8, ColorType: 2},
	}))

	want := []byte{
		13, 0, 0, 0,
		'I', 'H', 'D', 'R',
		0, 0, 0, 1,
		0, 0, 1, 2,
		8, 2, 0, 0, 0,
		0, 0, 0, 0,
	}
	if diff := cmp.Diff(want, b.Bytes()); diff != "" {
		t.Errorf("encoded layout (-want +got):\n%v", diff)
	}
}

func TestDefaultSubtype(t *testing.T) {
	s := newChunkSerializer(nil)

	input := []byte{
		3, 0, 0, 0,
		'z', 'T', 'X', 't',
		9, 8, 7,
		0, 0, 0, 0,
	}
	got, err := binser.DeserializeWith[ChunkContainer](s, bytes.NewReader(input))
	td.Require(t).CmpNoError(err)
	td.Cmp(t, got.ChunkType, "zTXt")
	td.Cmp(t, got.Chunk, &RawChunk{Data: []byte{9, 8, 7}})

	// the default type leaves the selector alone.
	var b bytes.Buffer
	td.CmpNoError(t, s.Serialize(&b, got))
	td.Cmp(t, b.Bytes(), input)
}

// SkipChunk writes three bytes but only reads one back.
type SkipChunk struct {
	Value byte
}

func (*SkipChunk) chunk() {}

func (c *SkipChunk) SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *binser.Context) error {
	_, err := w.Write([]byte{c.Value, 0xee, 0xee})
	return err
}

func (c *SkipChunk) DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *binser.Context) error {
	var b [1]byte
	_, err := io.ReadFull(r, b[:])
	c.Value = b[0]
	return err
}

func TestUnderread(t *testing.T) {
	var warnings bytes.Buffer
	s := newChunkSerializer(&binser.Config{
		Warnings:      &warnings,
		WarnUnderread: true,
	})

	var b bytes.Buffer
	td.Require(t).CmpNoError(s.Serialize(&b, ChunkContainer{Chunk: &SkipChunk{Value: 5}, Crc: 42}))
	td.Cmp(t, b.Len(), 4+4+3+4)

	got, err := binser.DeserializeWith[ChunkContainer](s, encio.ForwardOnly(&b))
	td.Require(t).CmpNoError(err)
	td.Cmp(t, got, ChunkContainer{
		Length:    3,
		ChunkType: "SKIP",
		Chunk:     &SkipChunk{Value: 5},
		Crc:       42,
	})
	td.Cmp(t, warnings.String(), "binser: ChunkContainer.Chunk: 2 of 3 bytes left unread\n")
}

// OverChunk writes a single byte but reads eight.
type OverChunk struct {
	Value uint64
}

func (*OverChunk) chunk() {}

func (c *OverChunk) SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *binser.Context) error {
	_, err := w.Write([]byte{byte(c.Value)})
	return err
}

func (c *OverChunk) DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *binser.Context) error {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	c.Value = order.Uint64(b[:])
	return nil
}

// GreedyChunk writes a single byte, and reads it back before asking for one more and ignoring the answer.
type GreedyChunk struct {
	Value byte
}

func (*GreedyChunk) chunk() {}

func (c *GreedyChunk) SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *binser.Context) error {
	_, err := w.Write([]byte{c.Value})
	return err
}

func (c *GreedyChunk) DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *binser.Context) error {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return err
	}
	c.Value = b[0]
	_, _ = r.Read(b[:])
	return nil
}

func TestOverread(t *testing.T) {
	s := newChunkSerializer(nil)

	testCases := []struct {
		desc  string
		chunk Chunk
	}{
		{
			desc:  "Error returned",
			chunk: &OverChunk{Value: 1},
		},
		{
			desc:  "Error ignored",
			chunk: &GreedyChunk{Value: 1},
		},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			var b bytes.Buffer
			td.Require(t).CmpNoError(s.Serialize(&b, ChunkContainer{Chunk: tC.chunk, Crc: 5}))
			// plenty of bytes after the chunk; the bound alone must stop the read.
			b.Write(make([]byte, 16))

			_, err := binser.DeserializeWith[ChunkContainer](s, &b)
			td.CmpTrue(t, errors.Is(err, encio.ErrLengthOverrun), "got %v", err)

			var e encio.Error
			td.Require(t).True(errors.As(err, &e))
			td.Cmp(t, e.Path, "ChunkContainer.Chunk")
		})
	}
}

// Marker encodes itself as nothing at all.
type Marker struct{}

func (*Marker) SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *binser.Context) error {
	return nil
}

func (*Marker) DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *binser.Context) error {
	return nil
}

type EmptyChunk struct {
	Markers []Marker `bin:"0"`
}

func (*EmptyChunk) chunk() {}

func TestEmptyElements(t *testing.T) {
	s := newChunkSerializer(nil)

	var b bytes.Buffer
	td.Require(t).CmpNoError(s.Serialize(&b, ChunkContainer{Chunk: &EmptyChunk{Markers: make([]Marker, 3)}}))
	td.Cmp(t, b.Bytes(), []byte{0, 0, 0, 0, 'E', 'M', 'P', 'T', 0, 0, 0, 0})

	got, err := binser.DeserializeWith[ChunkContainer](s, &b)
	td.Require(t).CmpNoError(err)
	td.Cmp(t, got.Chunk, &EmptyChunk{})

	// bytes where elements that consume nothing would have to be.
	input := []byte{
		3, 0, 0, 0,
		'E', 'M', 'P', 'T',
		1, 2, 3,
		0, 0, 0, 0,
	}
	_, err = binser.DeserializeWith[ChunkContainer](s, bytes.NewReader(input))
	td.CmpTrue(t, errors.Is(err, encio.ErrMalformed), "got %v", err)

	var e encio.Error
	td.Require(t).True(errors.As(err, &e))
	td.Cmp(t, e.Path, "ChunkContainer.Chunk(EmptyChunk).Markers[0]")
	td.Cmp(t, e.Offset, int64(8))
}

func TestEmptyRoundTrip(t *testing.T) {
	s := newChunkSerializer(nil)

	for _, sent := range []Chunk{&TestChunk{}, &RawChunk{}, &PaletteChunk{}} {
		var b bytes.Buffer
		td.Require(t).CmpNoError(s.Serialize(&b, ChunkContainer{Chunk: sent}))

		got, err := binser.DeserializeWith[ChunkContainer](s, &b)
		td.Require(t).CmpNoError(err)
		td.CmpTrue(t, reflect.DeepEqual(got.Chunk, sent), "got %#v", got.Chunk)
	}
}

// LookupChunk inspects its surroundings while decoding.
type LookupChunk struct {
	Pair PaletteEntry

	Type    string
	Crc     int32
	Length  int64
	Field   string
	Path    string
	Missing error
}

func (*LookupChunk) chunk() {}

func (c *LookupChunk) SerializeBinary(w io.Writer, order binary.ByteOrder, ctx *binser.Context) error {
	crc, err := ctx.Lookup("Crc")
	if err != nil {
		return err
	}
	c.Crc = crc.(int32)
	return ctx.Encode(w, &c.Pair)
}

func (c *LookupChunk) DeserializeBinary(r io.Reader, order binary.ByteOrder, ctx *binser.Context) error {
	typ, err := ctx.Lookup("ChunkType")
	if err != nil {
		return err
	}
	c.Type = typ.(string)
	c.Length = ctx.Length()
	c.Field = ctx.Field()
	c.Path = ctx.Path()
	_, c.Missing = ctx.Lookup("Crc")

	return ctx.Decode(r, &c.Pair)
}

func TestContextLookup(t *testing.T) {
	s := newChunkSerializer(nil)

	sent := &LookupChunk{Pair: PaletteEntry{R: 1, G: 2, B: 3}}
	var b bytes.Buffer
	td.Require(t).CmpNoError(s.Serialize(&b, ChunkContainer{Chunk: sent, Crc: 99}))
	td.Cmp(t, sent.Crc, int32(99))

	got, err := binser.DeserializeWith[ChunkContainer](s, &b)
	td.Require(t).CmpNoError(err)

	chunk, ok := got.Chunk.(*LookupChunk)
	td.Require(t).True(ok)
	td.Cmp(t, chunk.Pair, sent.Pair)
	td.Cmp(t, chunk.Type, "LOOK")
	td.Cmp(t, chunk.Length, int64(3))
	td.Cmp(t, chunk.Field, "Chunk")
	td.Cmp(t, chunk.Path, "ChunkContainer.Chunk(LookupChunk)")
	td.CmpTrue(t, errors.Is(chunk.Missing, encio.ErrMissingDependency), "got %v", chunk.Missing)
}

func TestChunkErrors(t *testing.T) {
	s := newChunkSerializer(nil)

	t.Run("Nil chunk", func(t *testing.T) {
		err := s.Serialize(new(bytes.Buffer), ChunkContainer{})
		td.CmpTrue(t, errors.Is(err, encio.ErrNilPointer), "got %v", err)
	})

	t.Run("Truncated", func(t *testing.T) {
		_, err := binser.DeserializeWith[ChunkContainer](s, encio.ForwardOnly(bytes.NewReader(testContainerBytes[:12])))
		td.CmpTrue(t, errors.Is(err, encio.ErrUnexpectedEOF), "got %v", err)

		var e encio.Error
		td.Require(t).True(errors.As(err, &e))
		td.Cmp(t, e.Path, "ChunkContainer.Crc")
		td.Cmp(t, e.Offset, int64(12))
	})

	t.Run("Truncated chunk", func(t *testing.T) {
		_, err := binser.DeserializeWith[ChunkContainer](s, bytes.NewReader(testContainerBytes[:9]))
		td.CmpTrue(t, errors.Is(err, encio.ErrUnexpectedEOF), "got %v", err)
	})

	t.Run("Negative length", func(t *testing.T) {
		input := append([]byte{0xff, 0xff, 0xff, 0xff}, testContainerBytes[4:]...)
		_, err := binser.DeserializeWith[ChunkContainer](s, bytes.NewReader(input))
		td.CmpTrue(t, errors.Is(err, encio.ErrInvalidLength), "got %v", err)
	})

	t.Run("Seek unsupported", func(t *testing.T) {
		r := encio.NewReader(encio.ForwardOnly(bytes.NewReader(testContainerBytes)))
		_, err := binser.DeserializeWith[ChunkContainer](s, r)
		td.CmpNoError(t, err)

		_, err = r.Seek(0, io.SeekStart)
		td.CmpTrue(t, errors.Is(err, encio.ErrUnsupported))
		_, err = r.Len()
		td.CmpTrue(t, errors.Is(err, encio.ErrUnsupported))
	})
}

func BenchmarkChunkContainer(b *testing.B) {
	s := newChunkSerializer(nil)
	var buff encio.Buffer

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		buff.Reset()
		if err := s.Serialize(&buff, testContainer); err != nil {
			b.Fatal(err)
		}
		if _, err := binser.DeserializeWith[ChunkContainer](s, &buff); err != nil {
			b.Fatal(err)
		}
	}
}
