// SPDX-License-Identifier: GPL-2.0-or-later
package bspfile

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"gobsp/bytebuf"
)

type lumpSpec struct {
	index   int
	version int32
	data    []byte
}

// buildImage assembles a generic-layout file image with the given lump
// payloads packed after the header.
func buildImage(order binary.ByteOrder, version uint32, mapRev int32, specs ...lumpSpec) []byte {
	size := headerSize
	for _, s := range specs {
		size += len(s.data)
	}
	b := bytebuf.New(make([]byte, size), order)
	b.WriteUint32(identVBSP)
	b.WriteUint32(version)
	ofs := headerSize
	for _, s := range specs {
		base := 8 + 16*s.index
		b.PutInt32At(base, int32(ofs))
		b.PutInt32At(base+4, int32(len(s.data)))
		b.PutInt32At(base+8, s.version)
		b.SetPos(ofs)
		b.WriteBytes(s.data)
		ofs += len(s.data)
	}
	b.PutInt32At(1032, mapRev)
	return b.Bytes()
}

func TestLoadTooShort(t *testing.T) {
	_, err := New([]byte{1, 2, 3})
	if err != ErrInvalidHeader {
		t.Errorf("New(3 bytes) = %v want ErrInvalidHeader", err)
	}
}

func TestLoadZipArchive(t *testing.T) {
	data := append([]byte{0x50, 0x4B, 0x03, 0x04}, make([]byte, 64)...)
	_, err := New(data)
	var ufe *UnsupportedFormatError
	if !asUnsupported(err, &ufe) {
		t.Fatalf("New(zip) = %v want UnsupportedFormatError", err)
	}
}

func TestLoadGoldSrc(t *testing.T) {
	data := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(data, identGoldSrc)
	_, err := New(data)
	var ufe *UnsupportedFormatError
	if !asUnsupported(err, &ufe) {
		t.Fatalf("New(goldsrc) = %v want UnsupportedFormatError", err)
	}
}

func asUnsupported(err error, target **UnsupportedFormatError) bool {
	for err != nil {
		if e, ok := err.(*UnsupportedFormatError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func TestLoadBigEndian(t *testing.T) {
	data := buildImage(binary.BigEndian, 19, 3)
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.Order != binary.BigEndian {
		t.Errorf("Order = %v want big-endian", f.Order)
	}
	if f.Version != 19 {
		t.Errorf("Version = %d want 19", f.Version)
	}
	if f.MapRev != 3 {
		t.Errorf("MapRev = %d want 3", f.MapRev)
	}
}

func TestLoadLittleEndian(t *testing.T) {
	data := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: 0, data: []byte("{}\x00")})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.Order != binary.LittleEndian {
		t.Errorf("Order = %v want little-endian", f.Order)
	}
	got := f.Lump(0).Buffer().Bytes()
	if !bytes.Equal(got, []byte("{}\x00")) {
		t.Errorf("entity lump = %q", got)
	}
}

func TestClampedLumpOffset(t *testing.T) {
	data := buildImage(binary.LittleEndian, 20, 1)
	b := bytebuf.New(data, binary.LittleEndian)
	b.PutInt32At(8, 0x7FFFFFFF)
	b.PutInt32At(12, 1)
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l := f.Lump(0)
	if l.Offset != len(data) || l.Length() != 0 {
		t.Errorf("lump 0 = offset %d length %d, want clamped to %d/0",
			l.Offset, l.Length(), len(data))
	}
}

func TestDirectoryRoundTrip(t *testing.T) {
	data := buildImage(binary.LittleEndian, 20, 42,
		lumpSpec{index: 1, version: 2, data: []byte("planes")},
		lumpSpec{index: 3, version: 0, data: []byte("verts!")})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	f2, err := New(f.Marshal())
	if err != nil {
		t.Fatalf("New(marshal): %v", err)
	}
	if f2.Version != f.Version || f2.MapRev != f.MapRev {
		t.Errorf("header changed: version %d rev %d", f2.Version, f2.MapRev)
	}
	for i := range f.Lumps {
		a, b := f.Lumps[i], f2.Lumps[i]
		if a.Length() != b.Length() || a.Version != b.Version || a.FourCC != b.FourCC {
			t.Errorf("lump %d changed: %d/%d %d/%d %d/%d",
				i, a.Length(), b.Length(), a.Version, b.Version, a.FourCC, b.FourCC)
		}
		if !bytes.Equal(a.Buffer().Bytes(), b.Buffer().Bytes()) {
			t.Errorf("lump %d payload changed", i)
		}
	}
}

func TestXorSymmetry(t *testing.T) {
	key := make([]byte, xorKeySize)
	for i := range key {
		key[i] = byte(i*7 + 3)
	}
	data := []byte("some lump payload that is long enough to wrap the key around")
	orig := append([]byte(nil), data...)
	Xor(data, key)
	if bytes.Equal(data, orig) {
		t.Fatalf("Xor did not change the buffer")
	}
	Xor(data, key)
	if !bytes.Equal(data, orig) {
		t.Errorf("double Xor is not the identity")
	}
	v := uint32(0xDEADBEEF)
	if Xor32(Xor32(v, key), key) != v {
		t.Errorf("double Xor32 is not the identity")
	}
}

func TestTacticalIntervention(t *testing.T) {
	plain := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: 1, data: []byte("payload bytes here")})
	key := make([]byte, xorKeySize)
	for i := range key {
		key[i] = byte(i + 100)
	}
	enc := append([]byte(nil), plain...)
	Xor(enc, key)
	// the key region holds the key itself in plain
	copy(enc[xorKeyOffset:], key)

	f, err := New(enc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.AppID != TacticalIntervention {
		t.Errorf("AppID = %v want Tactical Intervention", f.AppID)
	}
	if f.Version != 20 {
		t.Errorf("Version = %d want 20", f.Version)
	}
	got := f.Lump(1).Buffer().Bytes()
	if !bytes.Equal(got, []byte("payload bytes here")) {
		t.Errorf("decrypted lump = %q", got)
	}
}

func TestLzmaRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("winding "), 64)
	env, ok, err := CompressLump(data)
	if err != nil || !ok {
		t.Fatalf("CompressLump: %v ok=%v", err, ok)
	}
	if !IsCompressed(env) {
		t.Fatalf("envelope lacks magic")
	}
	out, err := UncompressLump(env)
	if err != nil {
		t.Fatalf("UncompressLump: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip changed the payload")
	}
}

func TestLzmaSkipsTinyPayload(t *testing.T) {
	data := []byte("short")
	out, ok, err := CompressLump(data)
	if err != nil || ok {
		t.Fatalf("CompressLump = ok %v, %v", ok, err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("tiny payload changed")
	}
}

func TestCompressUncompress(t *testing.T) {
	big := bytes.Repeat([]byte("brush data "), 100)
	pak := bytes.Repeat([]byte("pak"), 20)
	data := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: 1, data: big},
		lumpSpec{index: LumpPakfile, data: pak})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := f.Compress(); err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if !f.HasCompressedLumps() {
		t.Errorf("no compressed lumps after Compress")
	}
	if !f.Lump(1).IsCompressed() {
		t.Errorf("lump 1 not compressed")
	}
	if f.Lump(LumpPakfile).IsCompressed() {
		t.Errorf("pakfile was compressed")
	}
	if f.Lump(1).FourCC != int32(len(big)) {
		t.Errorf("fourCC = %d want plain size %d", f.Lump(1).FourCC, len(big))
	}
	if err := f.Uncompress(); err != nil {
		t.Fatalf("Uncompress: %v", err)
	}
	if f.HasCompressedLumps() {
		t.Errorf("compressed lumps left after Uncompress")
	}
	if !bytes.Equal(f.Lump(1).Buffer().Bytes(), big) {
		t.Errorf("lump 1 payload changed by compress cycle")
	}
	if f.Lump(1).FourCC != 0 {
		t.Errorf("fourCC = %d want 0", f.Lump(1).FourCC)
	}
}

// buildGameLumpDir assembles the directory payload of lump 35. Offsets in
// entries are absolute already.
type glSpec struct {
	fourCC  string
	flags   int32
	version int32
	ofs     int32
	length  int32
}

func buildGameLumpDir(order binary.ByteOrder, vin bool, payloadLen int, specs ...glSpec) []byte {
	stride := 16
	if vin {
		stride = 20
	}
	size := 4 + len(specs)*stride + payloadLen
	b := bytebuf.New(make([]byte, size), order)
	b.WriteInt32(int32(len(specs)))
	for _, s := range specs {
		b.WriteUint32(fourCCValue(s.fourCC))
		if vin {
			b.WriteInt32(s.flags)
			b.WriteInt32(s.version)
		} else {
			b.WriteUint16(uint16(s.flags))
			b.WriteUint16(uint16(s.version))
		}
		b.WriteInt32(s.ofs)
		b.WriteInt32(s.length)
	}
	return b.Bytes()
}

func TestGameLumpParse(t *testing.T) {
	// lump 35 is the only payload, so it lands right after the header
	lumpOfs := int32(headerSize)
	dirLen := int32(4 + 16)
	payload := []byte("PROPDATA")
	dir := buildGameLumpDir(binary.LittleEndian, false, len(payload),
		glSpec{fourCC: "sprp", version: 5, ofs: lumpOfs + dirLen, length: int32(len(payload))})
	copy(dir[dirLen:], payload)

	data := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: LumpGameLump, data: dir})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.AppID == Vindictus {
		t.Fatalf("generic file misdetected as Vindictus")
	}
	if len(f.GameLumps) != 1 {
		t.Fatalf("game lumps = %d want 1", len(f.GameLumps))
	}
	g := f.GameLumps[0]
	if g.FourCC != "sprp" || g.Version != 5 {
		t.Errorf("descriptor = %q v%d", g.FourCC, g.Version)
	}
	if g.Offset != dirLen {
		t.Errorf("offset = %d want rebased %d", g.Offset, dirLen)
	}
	if !bytes.Equal(g.Buffer().Bytes(), payload) {
		t.Errorf("payload = %q", g.Buffer().Bytes())
	}
	if f.GameLump("SPRP") != g {
		t.Errorf("case-insensitive lookup failed")
	}
	if f.GameLump("none") != nil {
		t.Errorf("lookup of missing fourCC returned a lump")
	}
}

func TestVindictusHeuristic(t *testing.T) {
	lumpOfs := int32(headerSize)
	dirLen := int32(4 + 2*20)
	dir := buildGameLumpDir(binary.LittleEndian, true, 12,
		glSpec{fourCC: "sprp", version: 5, ofs: lumpOfs + dirLen, length: 8},
		glSpec{fourCC: "prpd", version: 1, ofs: lumpOfs + dirLen + 8, length: 4})

	data := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: LumpGameLump, data: dir})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.AppID != Vindictus {
		t.Fatalf("AppID = %v want Vindictus", f.AppID)
	}
	if len(f.GameLumps) != 2 {
		t.Fatalf("game lumps = %d want 2", len(f.GameLumps))
	}
	if f.GameLumps[0].FourCC != "sprp" || f.GameLumps[1].FourCC != "prpd" {
		t.Errorf("fourCCs = %q %q", f.GameLumps[0].FourCC, f.GameLumps[1].FourCC)
	}
}

func TestCompressedGameLumpLength(t *testing.T) {
	lumpOfs := int32(headerSize)
	dirLen := int32(4 + 2*16)
	comp := []byte("LZMAxxxxcompressed bytes")
	dir := buildGameLumpDir(binary.LittleEndian, false, len(comp),
		glSpec{fourCC: "sprp", flags: 1, version: 5, ofs: lumpOfs + dirLen, length: 4096},
		glSpec{fourCC: "", ofs: 0, length: 0})
	copy(dir[dirLen:], comp)

	data := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: LumpGameLump, data: dir})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(f.GameLumps) != 2 {
		t.Fatalf("game lumps = %d want 2", len(f.GameLumps))
	}
	g := f.GameLumps[0]
	if !g.IsCompressed() {
		t.Fatalf("flags = %d, not compressed", g.Flags)
	}
	if g.Length != 4096 {
		t.Errorf("plain size = %d want 4096", g.Length)
	}
	if g.Buffer().Cap() != len(comp) {
		t.Errorf("compressed size = %d want %d", g.Buffer().Cap(), len(comp))
	}
	if f.GameLumps[1].Name() != "<dummy>" {
		t.Errorf("trailing descriptor name = %q", f.GameLumps[1].Name())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	// lump 35 follows the six bytes of lump 1
	lumpOfs := int32(headerSize + len("planes"))
	dirLen := int32(4 + 16)
	payload := []byte("static props")
	dir := buildGameLumpDir(binary.LittleEndian, false, len(payload),
		glSpec{fourCC: "sprp", version: 6, ofs: lumpOfs + dirLen, length: int32(len(payload))})
	copy(dir[dirLen:], payload)

	data := buildImage(binary.LittleEndian, 20, 7,
		lumpSpec{index: 1, version: 1, data: []byte("planes")},
		lumpSpec{index: LumpGameLump, data: dir})
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.bsp")
	n, err := f.Save(path)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil || fi.Size() != int64(n) {
		t.Fatalf("wrote %d bytes, stat %v %v", n, fi, err)
	}

	f2, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f2.Close()
	if f2.Version != 20 || f2.MapRev != 7 {
		t.Errorf("header = v%d rev%d", f2.Version, f2.MapRev)
	}
	if !bytes.Equal(f2.Lump(1).Buffer().Bytes(), []byte("planes")) {
		t.Errorf("lump 1 = %q", f2.Lump(1).Buffer().Bytes())
	}
	if len(f2.GameLumps) != 1 {
		t.Fatalf("game lumps = %d want 1", len(f2.GameLumps))
	}
	g := f2.GameLumps[0]
	if g.FourCC != "sprp" || !bytes.Equal(g.Buffer().Bytes(), payload) {
		t.Errorf("game lump = %q %q", g.FourCC, g.Buffer().Bytes())
	}
}

func TestLumpFileOverlay(t *testing.T) {
	dir := t.TempDir()
	data := buildImage(binary.LittleEndian, 20, 1,
		lumpSpec{index: 3, version: 1, data: []byte("old verts")})
	path := filepath.Join(dir, "de_test.bsp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	overlay := bytebuf.New(make([]byte, lumpFileHeaderSize+9), binary.LittleEndian)
	overlay.WriteInt32(lumpFileHeaderSize)
	overlay.WriteInt32(3)
	overlay.WriteInt32(2)
	overlay.WriteInt32(1)
	overlay.WriteBytes([]byte("new verts"))
	if err := os.WriteFile(filepath.Join(dir, "de_test_l_0.lmp"), overlay.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f.Close()
	l := f.Lump(3)
	if !bytes.Equal(l.Buffer().Bytes(), []byte("new verts")) {
		t.Errorf("lump 3 = %q want overlay content", l.Buffer().Bytes())
	}
	if l.Version != 2 {
		t.Errorf("lump 3 version = %d want 2", l.Version)
	}
	if l.ParentFile == "" {
		t.Errorf("ParentFile not set")
	}

	next, err := f.NextLumpFile()
	if err != nil {
		t.Fatalf("NextLumpFile: %v", err)
	}
	if filepath.Base(next) != "de_test_l_1.lmp" {
		t.Errorf("NextLumpFile = %s", next)
	}
}

func TestCreateLumpFile(t *testing.T) {
	dir := t.TempDir()
	data := buildImage(binary.LittleEndian, 20, 9,
		lumpSpec{index: 1, version: 4, data: []byte("plane table")})
	path := filepath.Join(dir, "map.bsp")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer f.Close()

	out, err := f.NextLumpFile()
	if err != nil {
		t.Fatalf("NextLumpFile: %v", err)
	}
	if err := f.CreateLumpFile(out, 1); err != nil {
		t.Fatalf("CreateLumpFile: %v", err)
	}

	f2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer f2.Close()
	l := f2.Lump(1)
	if !bytes.Equal(l.Buffer().Bytes(), []byte("plane table")) {
		t.Errorf("overlaid lump = %q", l.Buffer().Bytes())
	}
	if l.Version != 4 {
		t.Errorf("overlaid version = %d want 4", l.Version)
	}
}

func TestCanReadLump(t *testing.T) {
	f := &BspFile{Version: 19}
	if !f.CanReadLump(LumpEntities) {
		t.Errorf("lump 0 unavailable at v19")
	}
	if f.CanReadLump(53) {
		t.Errorf("lump 53 available at v19")
	}
	f.Version = 20
	if !f.CanReadLump(53) {
		t.Errorf("lump 53 unavailable at v20")
	}
}

func TestLumpTypeNames(t *testing.T) {
	cases := []struct {
		index, version int
		want           string
	}{
		{0, 19, "LUMP_ENTITIES"},
		{22, 19, "LUMP_PORTALS"},
		{22, 20, "LUMP_PROPCOLLISION"},
		{51, 19, "LUMP_LIGHTMAPPAGES"},
		{51, 21, "LUMP_LEAF_AMBIENT_INDEX_HDR"},
		{100, 29, "LUMP_100"},
	}
	for _, c := range cases {
		got := TypeForIndex(c.index, c.version).Name
		if got != c.want {
			t.Errorf("TypeForIndex(%d, %d) = %s want %s", c.index, c.version, got, c.want)
		}
	}
}

func TestL4D2Detection(t *testing.T) {
	data := buildImage(binary.LittleEndian, 21, 1,
		lumpSpec{index: 1, version: 3, data: []byte("planes")})
	// rewrite the directory in version-first order
	b := bytebuf.New(data, binary.LittleEndian)
	for i := 0; i < headerLumps; i++ {
		base := 8 + 16*i
		ofs, _ := b.Int32At(base)
		ln, _ := b.Int32At(base + 4)
		vers, _ := b.Int32At(base + 8)
		b.PutInt32At(base, vers)
		b.PutInt32At(base+4, ofs)
		b.PutInt32At(base+8, ln)
	}
	f, err := New(data)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if f.AppID != Left4Dead2 {
		t.Fatalf("AppID = %v want Left 4 Dead 2", f.AppID)
	}
	l := f.Lump(1)
	if l.Version != 3 {
		t.Errorf("lump 1 version = %d want 3", l.Version)
	}
	if !bytes.Equal(l.Buffer().Bytes(), []byte("planes")) {
		t.Errorf("lump 1 = %q", l.Buffer().Bytes())
	}
}
