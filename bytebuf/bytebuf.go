// SPDX-License-Identifier: GPL-2.0-or-later

// Package bytebuf provides positioned, endian-aware reads and writes over a
// byte slice, with zero-copy sub-slicing and an optional memory-mapped
// backing for read-only access.
package bytebuf

import (
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type Buffer struct {
	data     []byte
	order    binary.ByteOrder
	pos      int
	mapped   bool
	readOnly bool
}

// New wraps an owned byte slice.
func New(data []byte, order binary.ByteOrder) *Buffer {
	return &Buffer{data: data, order: order}
}

// Load reads the whole file into an owned buffer.
func Load(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	return &Buffer{data: data, order: binary.LittleEndian}, nil
}

// OpenMapped maps the file read-only. The mapping is released by Close.
// Empty files degrade to an owned empty buffer.
func OpenMapped(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if fi.Size() == 0 {
		return &Buffer{order: binary.LittleEndian, readOnly: true}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mapping %s", path)
	}
	return &Buffer{
		data:     data,
		order:    binary.LittleEndian,
		mapped:   true,
		readOnly: true,
	}, nil
}

// Close releases the memory mapping, if any. Slices taken from a mapped
// buffer are invalid afterwards.
func (b *Buffer) Close() error {
	if !b.mapped {
		return nil
	}
	b.mapped = false
	data := b.data
	b.data = nil
	return unix.Munmap(data)
}

func (b *Buffer) Order() binary.ByteOrder     { return b.order }
func (b *Buffer) SetOrder(o binary.ByteOrder) { b.order = o }

func (b *Buffer) Cap() int      { return len(b.data) }
func (b *Buffer) Pos() int      { return b.pos }
func (b *Buffer) SetPos(p int)  { b.pos = p }
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

func (b *Buffer) ReadOnly() bool { return b.readOnly }

// Bytes returns the backing slice. Callers must not mutate it when the
// buffer is read-only.
func (b *Buffer) Bytes() []byte { return b.data }

// ToOwned returns a buffer backed by a private copy of the data. Used when
// a mapped file needs mutation (XOR decryption, saving).
func (b *Buffer) ToOwned() *Buffer {
	data := make([]byte, len(b.data))
	copy(data, b.data)
	return &Buffer{data: data, order: b.order, pos: b.pos}
}

// Slice returns a zero-copy view of [ofs, ofs+length) with inherited byte
// order and its own position.
func (b *Buffer) Slice(ofs, length int) (*Buffer, error) {
	if ofs < 0 || length < 0 || ofs+length > len(b.data) {
		return nil, errors.Errorf("slice [%d:%d] out of range (cap %d)", ofs, ofs+length, len(b.data))
	}
	return &Buffer{
		data:     b.data[ofs : ofs+length : ofs+length],
		order:    b.order,
		readOnly: b.readOnly,
	}, nil
}

// Concat joins the given buffers into a new owned buffer.
func Concat(order binary.ByteOrder, parts ...*Buffer) *Buffer {
	size := 0
	for _, p := range parts {
		size += p.Cap()
	}
	data := make([]byte, 0, size)
	for _, p := range parts {
		data = append(data, p.data...)
	}
	return &Buffer{data: data, order: order}
}

func (b *Buffer) take(n int) ([]byte, error) {
	if b.pos+n > len(b.data) {
		return nil, io.ErrUnexpectedEOF
	}
	s := b.data[b.pos : b.pos+n]
	b.pos += n
	return s, nil
}

func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	s, err := b.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, s)
	return out, nil
}

func (b *Buffer) ReadInt16() (int16, error) {
	v, err := b.ReadUint16()
	return int16(v), err
}

func (b *Buffer) ReadUint16() (uint16, error) {
	s, err := b.take(2)
	if err != nil {
		return 0, err
	}
	return b.order.Uint16(s), nil
}

func (b *Buffer) ReadInt32() (int32, error) {
	v, err := b.ReadUint32()
	return int32(v), err
}

func (b *Buffer) ReadUint32() (uint32, error) {
	s, err := b.take(4)
	if err != nil {
		return 0, err
	}
	return b.order.Uint32(s), nil
}

func (b *Buffer) ReadFloat32() (float32, error) {
	v, err := b.ReadUint32()
	return math.Float32frombits(v), err
}

// Int32At reads without moving the position.
func (b *Buffer) Int32At(ofs int) (int32, error) {
	if ofs < 0 || ofs+4 > len(b.data) {
		return 0, io.ErrUnexpectedEOF
	}
	return int32(b.order.Uint32(b.data[ofs:])), nil
}

func (b *Buffer) grow(n int) []byte {
	if b.pos+n > len(b.data) {
		panic("bytebuf: write past end of buffer")
	}
	s := b.data[b.pos : b.pos+n]
	b.pos += n
	return s
}

func (b *Buffer) WriteBytes(p []byte) {
	copy(b.grow(len(p)), p)
}

func (b *Buffer) WriteUint16(v uint16) {
	b.order.PutUint16(b.grow(2), v)
}

func (b *Buffer) WriteInt32(v int32) {
	b.order.PutUint32(b.grow(4), uint32(v))
}

func (b *Buffer) WriteUint32(v uint32) {
	b.order.PutUint32(b.grow(4), v)
}

// PutInt32At writes without moving the position.
func (b *Buffer) PutInt32At(ofs int, v int32) {
	b.order.PutUint32(b.data[ofs:], uint32(v))
}
