// SPDX-License-Identifier: GPL-2.0-or-later

package bspfile

import (
	"encoding/binary"

	"gobsp/bytebuf"
)

// Lump is one slot of the outer directory. The buffer holds the raw bytes
// as stored in the file, which may be an LZMA envelope.
type Lump struct {
	Index   int
	Offset  int
	Version int32
	// FourCC holds the uncompressed size while the lump is compressed,
	// 0 otherwise.
	FourCC int32
	// ParentFile is set when a sibling lump file replaced the payload.
	ParentFile string

	buf   *bytebuf.Buffer
	order binary.ByteOrder
}

func newLump(index int, order binary.ByteOrder) *Lump {
	return &Lump{
		Index: index,
		buf:   bytebuf.New(nil, order),
		order: order,
	}
}

func (l *Lump) Length() int { return l.buf.Cap() }

// Buffer returns the raw payload view with its position rewound.
func (l *Lump) Buffer() *bytebuf.Buffer {
	l.buf.SetPos(0)
	return l.buf
}

func (l *Lump) SetBuffer(b *bytebuf.Buffer) {
	l.buf = b
	l.buf.SetOrder(l.order)
}

func (l *Lump) IsCompressed() bool {
	return IsCompressed(l.buf.Bytes())
}

// Content returns the uncompressed payload, decoding the envelope when
// present. The stored buffer is not modified.
func (l *Lump) Content() ([]byte, error) {
	return UncompressLump(l.buf.Bytes())
}

// ContentBuffer wraps Content in a positioned buffer with the lump's order.
func (l *Lump) ContentBuffer() (*bytebuf.Buffer, error) {
	data, err := l.Content()
	if err != nil {
		return nil, err
	}
	return bytebuf.New(data, l.order), nil
}

// Compress replaces the payload with its envelope. Already compressed or
// tiny payloads are left alone.
func (l *Lump) Compress() error {
	if l.IsCompressed() {
		return nil
	}
	size := l.buf.Cap()
	out, ok, err := CompressLump(l.buf.Bytes())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	l.SetBuffer(bytebuf.New(out, l.order))
	l.FourCC = int32(size)
	return nil
}

// Uncompress replaces an enveloped payload with the plain bytes.
func (l *Lump) Uncompress() error {
	if !l.IsCompressed() {
		return nil
	}
	out, err := UncompressLump(l.buf.Bytes())
	if err != nil {
		return err
	}
	l.SetBuffer(bytebuf.New(out, l.order))
	l.FourCC = 0
	return nil
}

func (l *Lump) Type(version int) LumpType {
	return TypeForIndex(l.Index, version)
}

func (l *Lump) Name(version int) string {
	return l.Type(version).Name
}
