// SPDX-License-Identifier: GPL-2.0-or-later

package bspfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gobsp/bytebuf"
)

const (
	// header is ident, version, 64 descriptors, map revision
	headerSize  = 1036
	headerLumps = 64

	titanfallLumps = 128
	// fixed value trailing the Titanfall header, meaning unknown
	titanfallPad = 127

	identVBSP    = 0x50534256 // MAKEID('V','B','S','P')
	identRBSP    = 0x50534272 // MAKEID('r','B','S','P')
	identGoldSrc = 0x1E
)

var ErrInvalidHeader = errors.New("invalid or truncated bsp header")

// UnsupportedFormatError covers idents we can recognize but not read.
type UnsupportedFormatError struct {
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return "unsupported format: " + e.Reason
}

// BspFile is the root aggregate of one map container.
type BspFile struct {
	Path    string
	Name    string // stem of Path
	Order   binary.ByteOrder
	AppID   AppID
	Version int
	MapRev  int32

	Lumps     []*Lump
	GameLumps []*GameLump

	buf *bytebuf.Buffer
}

// Load memory-maps and parses the file, then merges any sibling lump
// files. The mapping degrades to an owned buffer when the file turns out
// to be XOR encrypted.
func Load(path string) (*BspFile, error) {
	b, err := bytebuf.OpenMapped(path)
	if err != nil {
		return nil, err
	}
	f := &BspFile{
		Path:  path,
		Name:  strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		AppID: Unknown,
	}
	if err := f.parse(b); err != nil {
		b.Close()
		return nil, err
	}
	f.loadLumpFiles()
	return f, nil
}

// New builds an in-memory file from an owned buffer, mainly for tests and
// for synthesizing maps.
func New(data []byte) (*BspFile, error) {
	f := &BspFile{AppID: Unknown}
	if err := f.parse(bytebuf.New(data, binary.LittleEndian)); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the memory mapping, if any. Lump views become invalid.
func (f *BspFile) Close() error {
	if f.buf == nil {
		return nil
	}
	return f.buf.Close()
}

func (f *BspFile) parse(b *bytebuf.Buffer) error {
	b, err := f.detect(b)
	if err != nil {
		return err
	}
	f.buf = b
	b.SetOrder(f.Order)
	b.SetPos(4)

	v, err := b.ReadUint32()
	if err != nil {
		return ErrInvalidHeader
	}
	f.Version = int(v)

	switch {
	case f.Version == 0x40014:
		// Dark Messiah stuffs an extra word into the version field
		f.AppID = DarkMessiah
		f.Version &= 0xFF
	case f.Version == 27:
		f.AppID = Contagion
		if _, err := b.ReadUint32(); err != nil {
			return ErrInvalidHeader
		}
	case f.Version == 21 && f.AppID != Titanfall:
		// L4D2 reorders the descriptor fields, which leaves a zero where
		// the first lump's offset would be
		if w, err := b.Int32At(8); err == nil && w == 0 {
			f.AppID = Left4Dead2
		}
	}

	numLumps := headerLumps
	if f.AppID == Titanfall {
		numLumps = titanfallLumps
		rev, err := b.ReadInt32()
		if err != nil {
			return ErrInvalidHeader
		}
		f.MapRev = rev
		if _, err := b.ReadUint32(); err != nil { // observed 127
			return ErrInvalidHeader
		}
	}

	if err := f.loadLumps(b, numLumps); err != nil {
		return err
	}

	if f.AppID != Titanfall {
		rev, err := b.ReadInt32()
		if err != nil {
			return ErrInvalidHeader
		}
		f.MapRev = rev
	}

	return f.loadGameLumps()
}

// detect identifies byte order and cipher from the first four bytes. The
// returned buffer replaces the input when decryption forced a copy.
func (f *BspFile) detect(b *bytebuf.Buffer) (*bytebuf.Buffer, error) {
	raw := b.Bytes()
	if len(raw) < 4 {
		return nil, ErrInvalidHeader
	}
	switch binary.BigEndian.Uint32(raw) {
	case 0x504B0304, 0x504B0506, 0x504B0708:
		return nil, &UnsupportedFormatError{"file is a zip archive, not a bsp"}
	}
	if len(raw) < headerSize {
		return nil, ErrInvalidHeader
	}
	ident := binary.LittleEndian.Uint32(raw)
	switch {
	case ident == identVBSP:
		f.Order = binary.LittleEndian
		return b, nil
	case binary.BigEndian.Uint32(raw) == identVBSP:
		f.Order = binary.BigEndian
		return b, nil
	case ident == identRBSP:
		f.AppID = Titanfall
		f.Order = binary.LittleEndian
		return b, nil
	case ident == identGoldSrc:
		return nil, &UnsupportedFormatError{"GoldSrc maps are not supported"}
	}

	key := raw[xorKeyOffset : xorKeyOffset+xorKeySize]
	if Xor32(ident, key) == identVBSP {
		log.Debugf("encrypted map, decrypting %d bytes", len(raw))
		f.AppID = TacticalIntervention
		f.Order = binary.LittleEndian
		if b.ReadOnly() {
			owned := b.ToOwned()
			b.Close()
			b = owned
		}
		// key aliases the buffer and the key region decrypts to zeros, so
		// xor with a copy to keep the key intact for the bytes after it
		keyCopy := append([]byte(nil), key...)
		Xor(b.Bytes(), keyCopy)
		return b, nil
	}

	return nil, &UnsupportedFormatError{
		"unknown ident " + string([]byte{byte(ident), byte(ident >> 8), byte(ident >> 16), byte(ident >> 24)}),
	}
}

func (f *BspFile) loadLumps(b *bytebuf.Buffer, numLumps int) error {
	f.Lumps = make([]*Lump, numLumps)
	limit := b.Cap()
	for i := range f.Lumps {
		l := newLump(i, f.Order)

		var ofs, ln, vers, four int32
		var err error
		read := func(dst *int32) {
			if err != nil {
				return
			}
			*dst, err = b.ReadInt32()
		}
		if f.AppID == Left4Dead2 {
			read(&vers)
			read(&ofs)
			read(&ln)
		} else {
			read(&ofs)
			read(&ln)
			read(&vers)
		}
		read(&four)
		if err != nil {
			return ErrInvalidHeader
		}

		name := l.Name(f.Version)
		if int(ofs) > limit {
			log.Warnf("%s offset %d past end of file, clamped", name, ofs)
			ofs = int32(limit)
			ln = 0
		}
		if ofs < 0 {
			log.Warnf("%s has negative offset %d, zeroed", name, ofs)
			ofs = 0
			ln = 0
		}
		if int(ofs)+int(ln) > limit {
			log.Warnf("%s length %d past end of file, clamped", name, ln)
			ln = int32(limit) - ofs
		}
		if ln < 0 {
			log.Warnf("%s has negative length %d, zeroed", name, ln)
			ln = 0
		}

		view, serr := b.Slice(int(ofs), int(ln))
		if serr != nil {
			return errors.Wrapf(serr, "lump %d", i)
		}
		l.Offset = int(ofs)
		l.Version = vers
		l.FourCC = four
		l.SetBuffer(view)
		f.Lumps[i] = l
	}
	return nil
}

var fourCCPattern = regexp.MustCompile(`^[A-Za-z0-9]{4}$`)

// gameLumpsParsable checks whether every descriptor fourCC is plausible
// under the given layout, which is how Vindictus files are told apart from
// generic version 20 files.
func gameLumpsParsable(l *Lump, vindictus bool) bool {
	b := l.Buffer()
	count, err := b.ReadInt32()
	if err != nil || count < 0 {
		return false
	}
	stride := 12
	if vindictus {
		stride = 16
	}
	for i := int32(0); i < count; i++ {
		four, err := b.ReadUint32()
		if err != nil {
			return false
		}
		if !fourCCPattern.MatchString(fourCCString(four)) {
			return false
		}
		if b.Remaining() < stride {
			return false
		}
		b.SetPos(b.Pos() + stride)
	}
	return true
}

func (f *BspFile) loadGameLumps() error {
	f.GameLumps = nil
	if LumpGameLump >= len(f.Lumps) {
		return nil
	}
	l := f.Lumps[LumpGameLump]
	if l.Length() == 0 {
		return nil
	}

	if f.Version == 20 && f.Order == binary.LittleEndian && f.AppID == Unknown {
		if !gameLumpsParsable(l, false) && gameLumpsParsable(l, true) {
			log.Debugf("game lump layout looks widened, assuming Vindictus")
			f.AppID = Vindictus
		}
	}
	vin := f.AppID == Vindictus

	b := l.Buffer()
	if f.AppID == DarkMessiah {
		if _, err := b.ReadInt32(); err != nil {
			return errors.Wrap(err, "game lump directory")
		}
	}
	count, err := b.ReadInt32()
	if err != nil {
		return errors.Wrap(err, "game lump directory")
	}
	for i := int32(0); i < count; i++ {
		g := &GameLump{order: f.Order}

		four, err := b.ReadUint32()
		if err != nil {
			return errors.Wrapf(err, "game lump %d", i)
		}
		g.FourCC = fourCCString(four)
		if vin {
			fl, err1 := b.ReadInt32()
			ver, err2 := b.ReadInt32()
			if err1 != nil || err2 != nil {
				return errors.Errorf("game lump %d: truncated descriptor", i)
			}
			g.Flags, g.Version = fl, ver
		} else {
			fl, err1 := b.ReadUint16()
			ver, err2 := b.ReadUint16()
			if err1 != nil || err2 != nil {
				return errors.Errorf("game lump %d: truncated descriptor", i)
			}
			g.Flags, g.Version = int32(fl), int32(ver)
		}
		ofs, err1 := b.ReadInt32()
		ln, err2 := b.ReadInt32()
		if err1 != nil || err2 != nil {
			return errors.Errorf("game lump %d: truncated descriptor", i)
		}
		g.Length = ln

		size := ln
		if g.IsCompressed() {
			// compressed entries store the plain size; the true byte count
			// runs to the next entry's offset, the trailing dummy entry
			// keeping 0 as an end-of-lump sentinel
			peek := b.Pos() + 8
			if vin {
				peek = b.Pos() + 12
			}
			next, perr := b.Int32At(peek)
			if perr != nil || next == 0 {
				next = int32(l.Offset + l.Length())
			}
			size = next - ofs
		}

		// console builds keep game lump offsets relative already
		if ofs-int32(l.Offset) > 0 {
			ofs -= int32(l.Offset)
		}

		limit := int32(l.Length())
		if ofs > limit {
			log.Warnf("game lump %s offset %d past end of lump, clamped", g.Name(), ofs)
			ofs = limit
			size = 0
		}
		if ofs < 0 {
			log.Warnf("game lump %s has negative offset %d, zeroed", g.Name(), ofs)
			ofs = 0
			size = 0
		}
		if ofs+size > limit {
			log.Warnf("game lump %s length %d past end of lump, clamped", g.Name(), size)
			size = limit - ofs
		}
		if size < 0 {
			size = 0
		}

		view, serr := l.Buffer().Slice(int(ofs), int(size))
		if serr != nil {
			return errors.Wrapf(serr, "game lump %s", g.Name())
		}
		g.Offset = ofs
		g.SetBuffer(view)
		f.GameLumps = append(f.GameLumps, g)
	}
	log.Debugf("loaded %d game lumps", len(f.GameLumps))
	return nil
}

// Lump returns the directory slot at index, or nil when out of range.
func (f *BspFile) Lump(index int) *Lump {
	if index < 0 || index >= len(f.Lumps) {
		return nil
	}
	return f.Lumps[index]
}

// GameLump finds a game lump by its four character code, ignoring case.
func (f *BspFile) GameLump(name string) *GameLump {
	for _, g := range f.GameLumps {
		if strings.EqualFold(g.FourCC, name) {
			return g
		}
	}
	return nil
}

// CanReadLump reports whether the file's version carries the given slot.
func (f *BspFile) CanReadLump(index int) bool {
	t := TypeForIndex(index, f.Version)
	return t.MinVersion == -1 || f.Version >= t.MinVersion
}

func (f *BspFile) headerLen() int {
	switch f.AppID {
	case Titanfall:
		return 4 + 4 + 4 + 4 + titanfallLumps*16
	case Contagion:
		return headerSize + 4
	}
	return headerSize
}

// fixLumpOffsets reassigns payload offsets greedily in slot order and
// returns the resulting file size. Empty lumps get offset 0.
func (f *BspFile) fixLumpOffsets() int {
	ofs := f.headerLen()
	for _, l := range f.Lumps {
		if l.Length() == 0 {
			l.Offset = 0
			continue
		}
		l.Offset = ofs
		ofs += l.Length()
	}
	return ofs
}

func (f *BspFile) gameLumpStride() int {
	if f.AppID == Vindictus {
		return 20
	}
	return 16
}

// saveGameLumps rebuilds the game lump payload from the descriptor list.
// Offsets are left relative here and rebased by fixGameLumpOffsets once
// the outer directory is final.
func (f *BspFile) saveGameLumps() {
	if len(f.GameLumps) == 0 {
		return
	}
	stride := f.gameLumpStride()
	dirLen := 4 + len(f.GameLumps)*stride
	if f.AppID == DarkMessiah {
		dirLen += 4
	}
	size := dirLen
	for _, g := range f.GameLumps {
		size += g.Buffer().Cap()
	}

	out := bytebuf.New(make([]byte, size), f.Order)
	if f.AppID == DarkMessiah {
		out.WriteInt32(0)
	}
	out.WriteInt32(int32(len(f.GameLumps)))
	ofs := dirLen
	for _, g := range f.GameLumps {
		g.Offset = int32(ofs)
		out.WriteUint32(fourCCValue(g.FourCC))
		if f.AppID == Vindictus {
			out.WriteInt32(g.Flags)
			out.WriteInt32(g.Version)
		} else {
			out.WriteUint16(uint16(g.Flags))
			out.WriteUint16(uint16(g.Version))
		}
		out.WriteInt32(g.Offset)
		ln := int32(g.Buffer().Cap())
		if g.IsCompressed() {
			ln = g.Length
		}
		out.WriteInt32(ln)
		ofs += g.Buffer().Cap()
	}
	for _, g := range f.GameLumps {
		out.SetPos(int(g.Offset))
		out.WriteBytes(g.Buffer().Bytes())
	}
	f.Lumps[LumpGameLump].SetBuffer(out)
}

// fixGameLumpOffsets patches the relative game lump offsets to absolute
// file offsets inside the already written image.
func (f *BspFile) fixGameLumpOffsets(out *bytebuf.Buffer) {
	if len(f.GameLumps) == 0 {
		return
	}
	l := f.Lumps[LumpGameLump]
	stride := f.gameLumpStride()
	base := l.Offset + 4
	if f.AppID == DarkMessiah {
		base += 4
	}
	ofsField := 8
	if f.AppID == Vindictus {
		ofsField = 12
	}
	for i, g := range f.GameLumps {
		pos := base + i*stride + ofsField
		out.PutInt32At(pos, g.Offset+int32(l.Offset))
		g.Offset += int32(l.Offset)
	}
}

// Save writes the file with a freshly packed directory and returns the
// number of bytes written.
func (f *BspFile) Save(path string) (int, error) {
	data := f.Marshal()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, errors.Wrapf(err, "writing %s", path)
	}
	return len(data), nil
}

// Marshal packs the file into a byte image without touching the disk.
func (f *BspFile) Marshal() []byte {
	f.saveGameLumps()
	size := f.fixLumpOffsets()
	out := bytebuf.New(make([]byte, size), f.Order)

	if f.AppID == Titanfall {
		out.WriteUint32(identRBSP)
	} else {
		out.WriteUint32(identVBSP)
	}
	version := uint32(f.Version)
	if f.AppID == DarkMessiah {
		version = 0x40014
	}
	out.WriteUint32(version)
	if f.AppID == Contagion {
		out.WriteUint32(0)
	}
	if f.AppID == Titanfall {
		out.WriteInt32(f.MapRev)
		out.WriteUint32(titanfallPad)
	}
	for _, l := range f.Lumps {
		ofs, ln := int32(l.Offset), int32(l.Length())
		if f.AppID == Left4Dead2 {
			out.WriteInt32(l.Version)
			out.WriteInt32(ofs)
			out.WriteInt32(ln)
		} else {
			out.WriteInt32(ofs)
			out.WriteInt32(ln)
			out.WriteInt32(l.Version)
		}
		out.WriteInt32(l.FourCC)
	}
	if f.AppID != Titanfall {
		out.WriteInt32(f.MapRev)
	}
	for _, l := range f.Lumps {
		if l.Length() == 0 {
			continue
		}
		out.SetPos(l.Offset)
		out.WriteBytes(l.Buffer().Bytes())
	}
	f.fixGameLumpOffsets(out)
	return out.Bytes()
}

// Compress applies the lump envelope to every compressible lump. The game
// lump and the pakfile stay plain, and the reference compiler's trailing
// dummy game lump descriptor is appended.
func (f *BspFile) Compress() error {
	for _, l := range f.Lumps {
		if l.Index == LumpGameLump || l.Index == LumpPakfile {
			continue
		}
		if err := l.Compress(); err != nil {
			return errors.Wrapf(err, "compressing %s", l.Name(f.Version))
		}
	}
	if n := len(f.GameLumps); n > 0 && f.GameLumps[n-1].FourCC != "" {
		f.GameLumps = append(f.GameLumps, &GameLump{
			order: f.Order,
			buf:   bytebuf.New(nil, f.Order),
		})
	}
	return nil
}

// Uncompress unwraps every enveloped lump and drops the trailing dummy
// game lump descriptor again.
func (f *BspFile) Uncompress() error {
	for _, l := range f.Lumps {
		if err := l.Uncompress(); err != nil {
			return errors.Wrapf(err, "uncompressing %s", l.Name(f.Version))
		}
	}
	if n := len(f.GameLumps); n > 0 && f.GameLumps[n-1].FourCC == "" {
		f.GameLumps = f.GameLumps[:n-1]
	}
	return nil
}

// HasCompressedLumps reports whether any directory slot holds an envelope.
func (f *BspFile) HasCompressedLumps() bool {
	for _, l := range f.Lumps {
		if l.IsCompressed() {
			return true
		}
	}
	return false
}
