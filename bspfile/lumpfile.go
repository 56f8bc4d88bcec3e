// SPDX-License-Identifier: GPL-2.0-or-later

package bspfile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"gobsp/bytebuf"
)

// Sibling file overlays: "<name>_l_<i>.lmp" lump files next to the map
// replace single directory slots after the primary parse, and Titanfall
// maps additionally ship per-lump ".bsp_lump" files plus split ".ent"
// entity lists.

const (
	// lump files: payload offset, lump index, lump version, map revision
	lumpFileHeaderSize = 16

	MaxLumpFiles = 128
)

var entFileSuffixes = []string{"env", "fx", "script", "snd", "spawn"}

// loadLumpFiles merges every overlay mechanism. Failures are logged and
// leave the internal lump in place.
func (f *BspFile) loadLumpFiles() {
	if f.Path == "" {
		return
	}
	dir := filepath.Dir(f.Path)

	for i := 0; i < MaxLumpFiles; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_l_%d.lmp", f.Name, i))
		if _, err := os.Stat(path); err != nil {
			break
		}
		if err := f.loadLumpFile(path); err != nil {
			log.Warnf("lump file %s: %v", path, err)
		}
	}

	if f.AppID == Titanfall {
		f.loadBspLumpFiles(dir)
		f.loadEntFiles(dir)
	}
}

func (f *BspFile) loadLumpFile(path string) error {
	b, err := bytebuf.Load(path)
	if err != nil {
		return err
	}
	ofs, err1 := b.ReadInt32()
	idx, err2 := b.ReadInt32()
	vers, err3 := b.ReadInt32()
	_, err4 := b.ReadInt32() // map revision
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return errors.New("truncated lump file header")
	}
	if idx < 0 || int(idx) >= len(f.Lumps) {
		return errors.Errorf("lump index %d out of range", idx)
	}
	if int(ofs) < lumpFileHeaderSize || int(ofs) > b.Cap() {
		return errors.Errorf("bad payload offset %d", ofs)
	}
	payload, err := b.Slice(int(ofs), b.Cap()-int(ofs))
	if err != nil {
		return err
	}

	l := f.Lumps[idx]
	log.Debugf("replacing %s from %s", l.Name(f.Version), filepath.Base(path))
	l.Version = vers
	l.ParentFile = path
	l.SetBuffer(payload)

	if int(idx) == LumpGameLump {
		return f.loadGameLumps()
	}
	return nil
}

func (f *BspFile) loadBspLumpFiles(dir string) {
	base := filepath.Base(f.Path)
	for i := range f.Lumps {
		path := filepath.Join(dir, fmt.Sprintf("%s.%04x.bsp_lump", base, i))
		b, err := bytebuf.Load(path)
		if err != nil {
			if !os.IsNotExist(errors.Cause(err)) {
				log.Warnf("lump file %s: %v", path, err)
			}
			continue
		}
		l := f.Lumps[i]
		l.ParentFile = path
		l.SetBuffer(b)
	}
}

// loadEntFiles splices the split entity lists back into the entity lump.
// Each file starts with an "ENTITIESxx\n" preamble and ends with a NUL,
// both dropped. Files of 12 bytes or less, which hold no entity text past
// the preamble and terminator, are skipped.
func (f *BspFile) loadEntFiles(dir string) {
	inner := f.Lumps[LumpEntities].Buffer().Bytes()
	inner = bytes.TrimSuffix(inner, []byte{0})

	merged := append([]byte(nil), inner...)
	found := false
	for _, suffix := range entFileSuffixes {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.ent", f.Name, suffix))
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(data) <= 12 {
			continue
		}
		part := bytes.TrimSuffix(data[11:], []byte{0})
		merged = append(merged, part...)
		found = true
	}
	if !found {
		return
	}
	merged = append(merged, 0)
	f.Lumps[LumpEntities].SetBuffer(bytebuf.New(merged, f.Order))
}

// CreateLumpFile writes one lump out as a sibling overlay file.
func (f *BspFile) CreateLumpFile(path string, index int) error {
	l := f.Lump(index)
	if l == nil {
		return errors.Errorf("lump index %d out of range", index)
	}
	out := bytebuf.New(make([]byte, lumpFileHeaderSize+l.Length()), f.Order)
	out.WriteInt32(lumpFileHeaderSize)
	out.WriteInt32(int32(index))
	out.WriteInt32(l.Version)
	out.WriteInt32(f.MapRev)
	out.WriteBytes(l.Buffer().Bytes())
	return errors.Wrapf(os.WriteFile(path, out.Bytes(), 0o644), "writing %s", path)
}

// NextLumpFile returns the first free overlay path next to the map, or an
// error when all slots are taken.
func (f *BspFile) NextLumpFile() (string, error) {
	dir := filepath.Dir(f.Path)
	for i := 0; i < MaxLumpFiles; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_l_%d.lmp", f.Name, i))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
	}
	return "", errors.Errorf("no free lump file slot for %s", f.Name)
}
