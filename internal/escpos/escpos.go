// Package escpos holds the thermal printer control vocabulary. Byte values are
// interpreted literally by the device and must not change.
//
// The vocabulary is complete even where the ticket renderers pad text
// themselves: center and right alignment and double width are kept for
// callers composing their own jobs. The golden vocabulary test pins every
// command.
package escpos

import "bytes"

const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Align is a justification mode for ESC a.
type Align byte

const (
	AlignLeft   Align = 0
	AlignCenter Align = 1
	AlignRight  Align = 2
)

// Size is a character size selection for GS !.
type Size byte

const (
	SizeNormal       Size = 0x00
	SizeDoubleHeight Size = 0x01
	SizeDoubleWidth  Size = 0x10
	SizeDoubleSize   Size = 0x11
)

// Command is a named control sequence.
type Command struct {
	Name  string
	Bytes []byte
}

// Vocabulary lists every sequence the ticket renderers emit.
func Vocabulary() []Command {
	return []Command{
		{"init", []byte{ESC, '@'}},
		{"align-left", alignCmd(AlignLeft)},
		{"align-center", alignCmd(AlignCenter)},
		{"align-right", alignCmd(AlignRight)},
		{"size-normal", sizeCmd(SizeNormal)},
		{"double-height", sizeCmd(SizeDoubleHeight)},
		{"double-width", sizeCmd(SizeDoubleWidth)},
		{"double-size", sizeCmd(SizeDoubleSize)},
		{"bold-on", []byte{ESC, 'E', 1}},
		{"bold-off", []byte{ESC, 'E', 0}},
		{"underline-on", []byte{ESC, '-', 1}},
		{"underline-off", []byte{ESC, '-', 0}},
		{"char-spacing-2", []byte{ESC, ' ', 2}},
		{"feed-4", []byte{ESC, 'd', 4}},
		{"cut", []byte{GS, 'V', 0}},
	}
}

func alignCmd(a Align) []byte { return []byte{ESC, 'a', byte(a)} }
func sizeCmd(s Size) []byte   { return []byte{GS, '!', byte(s)} }

// Buffer accumulates a print stream.
type Buffer struct {
	buf bytes.Buffer
}

// Init resets the printer to its power-on defaults.
func (b *Buffer) Init() *Buffer {
	b.buf.Write([]byte{ESC, '@'})
	return b
}

// Align sets justification.
func (b *Buffer) Align(a Align) *Buffer {
	b.buf.Write(alignCmd(a))
	return b
}

// Size sets character scale.
func (b *Buffer) Size(s Size) *Buffer {
	b.buf.Write(sizeCmd(s))
	return b
}

// Bold toggles emphasis.
func (b *Buffer) Bold(on bool) *Buffer {
	b.buf.Write([]byte{ESC, 'E', boolByte(on)})
	return b
}

// Underline toggles single-dot underline.
func (b *Buffer) Underline(on bool) *Buffer {
	b.buf.Write([]byte{ESC, '-', boolByte(on)})
	return b
}

// CharSpacing sets right-side character spacing in motion units.
func (b *Buffer) CharSpacing(n byte) *Buffer {
	b.buf.Write([]byte{ESC, ' ', n})
	return b
}

// Text writes s verbatim. Callers sanitise beforehand.
func (b *Buffer) Text(s string) *Buffer {
	b.buf.WriteString(s)
	return b
}

// Line writes s followed by a line feed.
func (b *Buffer) Line(s string) *Buffer {
	b.buf.WriteString(s)
	b.buf.WriteByte(LF)
	return b
}

// Lines writes each line followed by a line feed.
func (b *Buffer) Lines(lines []string) *Buffer {
	for _, l := range lines {
		b.Line(l)
	}
	return b
}

// Blank writes an empty line.
func (b *Buffer) Blank() *Buffer {
	b.buf.WriteByte(LF)
	return b
}

// Feed prints and advances the paper n lines.
func (b *Buffer) Feed(n byte) *Buffer {
	b.buf.Write([]byte{ESC, 'd', n})
	return b
}

// Cut performs a full paper cut.
func (b *Buffer) Cut() *Buffer {
	b.buf.Write([]byte{GS, 'V', 0})
	return b
}

// Bytes returns a copy of the accumulated stream.
func (b *Buffer) Bytes() []byte {
	return bytes.Clone(b.buf.Bytes())
}

func boolByte(on bool) byte {
	if on {
		return 1
	}
	return 0
}
