// SPDX-License-Identifier: GPL-2.0-or-later

package bspfile

import (
	"encoding/binary"

	"gobsp/bytebuf"
)

// GameLump is one entry of the secondary directory inside LUMP_GAME_LUMP.
// Flags and Version are 16 bit on disk except for Vindictus, which widens
// both to 32 bit.
type GameLump struct {
	// FourCC is the four character identifier, low byte first on disk.
	// A dummy trailing descriptor has a blank FourCC.
	FourCC  string
	Flags   int32
	Version int32
	// Offset is relative to the containing lump after load.
	Offset int32
	// Length is the descriptor's length field. For compressed entries this
	// is the uncompressed size, which differs from the buffer size.
	Length int32

	buf   *bytebuf.Buffer
	order binary.ByteOrder
}

func (g *GameLump) IsCompressed() bool { return g.Flags&1 != 0 }

func (g *GameLump) Buffer() *bytebuf.Buffer {
	g.buf.SetPos(0)
	return g.buf
}

func (g *GameLump) SetBuffer(b *bytebuf.Buffer) {
	g.buf = b
	g.buf.SetOrder(g.order)
}

// Content returns the uncompressed payload.
func (g *GameLump) Content() ([]byte, error) {
	return UncompressLump(g.buf.Bytes())
}

// Name returns the FourCC, or "<dummy>" for the blank trailing descriptor.
func (g *GameLump) Name() string {
	if g.FourCC == "" {
		return "<dummy>"
	}
	return g.FourCC
}

func fourCCString(v uint32) string {
	if v == 0 {
		return ""
	}
	return string([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func fourCCValue(s string) uint32 {
	var b [4]byte
	copy(b[:], s)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
