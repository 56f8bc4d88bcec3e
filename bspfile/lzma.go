// SPDX-License-Identifier: GPL-2.0-or-later

package bspfile

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz/lzma"
)

// Valve's lump compression envelope, always little-endian:
//
//	"LZMA" | actualSize:u32 | lzmaSize:u32 | props:5 | payload
//
// The props field is the first 5 bytes of a classic .lzma header
// (properties byte plus dictionary size).
const (
	lzmaMagic      = "LZMA"
	LzmaHeaderSize = 17
)

// IsCompressed reports whether data starts with the envelope magic.
func IsCompressed(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == lzmaMagic
}

// CompressLump wraps data in the envelope. Payloads no longer than the
// envelope header are returned unchanged, second return false.
func CompressLump(data []byte) ([]byte, bool, error) {
	if len(data) <= LzmaHeaderSize {
		return data, false, nil
	}
	var raw bytes.Buffer
	w, err := lzma.WriterConfig{
		SizeInHeader: true,
		Size:         int64(len(data)),
	}.NewWriter(&raw)
	if err != nil {
		return nil, false, errors.Wrap(err, "lzma writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, false, errors.Wrap(err, "lzma compress")
	}
	if err := w.Close(); err != nil {
		return nil, false, errors.Wrap(err, "lzma compress")
	}
	// classic header: props byte, dict size u32, uncompressed size u64
	stream := raw.Bytes()
	if len(stream) < 13 {
		return nil, false, errors.New("lzma stream too short")
	}
	props := stream[:5]
	payload := stream[13:]
	out := make([]byte, 0, LzmaHeaderSize+len(payload))
	out = append(out, lzmaMagic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(payload)))
	out = append(out, props...)
	out = append(out, payload...)
	return out, true, nil
}

// UncompressLump unwraps the envelope. Data without the magic is returned
// unchanged.
func UncompressLump(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}
	if len(data) < LzmaHeaderSize {
		return nil, errors.New("truncated lzma envelope")
	}
	actualSize := binary.LittleEndian.Uint32(data[4:])
	lzmaSize := binary.LittleEndian.Uint32(data[8:])
	props := data[12:17]
	if int(lzmaSize) > len(data)-LzmaHeaderSize {
		return nil, errors.Errorf("lzma payload %d exceeds envelope %d", lzmaSize, len(data)-LzmaHeaderSize)
	}
	hdr := make([]byte, 0, 13)
	hdr = append(hdr, props...)
	hdr = binary.LittleEndian.AppendUint64(hdr, uint64(actualSize))
	r, err := lzma.NewReader(io.MultiReader(
		bytes.NewReader(hdr),
		bytes.NewReader(data[LzmaHeaderSize:LzmaHeaderSize+int(lzmaSize)]),
	))
	if err != nil {
		return nil, errors.Wrap(err, "lzma reader")
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "lzma decode")
	}
	if len(out) != int(actualSize) {
		return nil, errors.Errorf("lzma size mismatch: got %d, header says %d", len(out), actualSize)
	}
	return out, nil
}
