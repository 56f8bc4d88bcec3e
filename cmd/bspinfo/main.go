// SPDX-License-Identifier: GPL-2.0-or-later

// Command bspinfo inspects a map container: header fields, the lump
// directory, the embedded game lump directory, and optionally extracts
// single lumps or toggles lump compression.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"gobsp/bspfile"
)

var (
	debug       = flag.Bool("debug", false, "enable debug logging")
	showLumps   = flag.Bool("lumps", true, "list the lump directory")
	showGame    = flag.Bool("gamelumps", true, "list the game lump directory")
	extractLump = flag.Int("extract", -1, "write the given lump out as a sibling .lmp file")
	compress    = flag.Bool("compress", false, "compress all lumps before saving")
	uncompress  = flag.Bool("uncompress", false, "uncompress all lumps before saving")
	output      = flag.String("output", "", "save the (possibly modified) map to this path")
)

func main() {
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bspinfo [flags] <map.bsp>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	f, err := bspfile.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("loading %s: %v", flag.Arg(0), err)
	}
	defer f.Close()

	order := "little-endian"
	if f.Order.String() == "BigEndian" {
		order = "big-endian"
	}
	fmt.Printf("name:       %s\n", f.Name)
	fmt.Printf("version:    %d\n", f.Version)
	fmt.Printf("dialect:    %s\n", f.AppID)
	fmt.Printf("byte order: %s\n", order)
	fmt.Printf("revision:   %d\n", f.MapRev)
	fmt.Printf("compressed: %v\n", f.HasCompressedLumps())

	if *showLumps {
		fmt.Println()
		fmt.Printf("%3s %-40s %10s %10s %4s %5s\n", "idx", "name", "offset", "length", "ver", "lzma")
		for _, l := range f.Lumps {
			name := l.Name(f.Version)
			if !f.CanReadLump(l.Index) {
				name += " (unavailable)"
			}
			fmt.Printf("%3d %-40s %10d %10d %4d %5v\n",
				l.Index, name, l.Offset, l.Length(), l.Version, l.IsCompressed())
		}
	}

	if *showGame && len(f.GameLumps) > 0 {
		fmt.Println()
		fmt.Printf("%-8s %6s %4s %10s %10s\n", "fourCC", "flags", "ver", "offset", "length")
		for _, g := range f.GameLumps {
			fmt.Printf("%-8s %6d %4d %10d %10d\n",
				g.Name(), g.Flags, g.Version, g.Offset, g.Length)
		}
	}

	if *extractLump >= 0 {
		path, err := f.NextLumpFile()
		if err != nil {
			log.Fatalf("extracting lump %d: %v", *extractLump, err)
		}
		if err := f.CreateLumpFile(path, *extractLump); err != nil {
			log.Fatalf("extracting lump %d: %v", *extractLump, err)
		}
		fmt.Printf("wrote %s\n", path)
	}

	if *compress && *uncompress {
		log.Fatal("cannot compress and uncompress at once")
	}
	if *compress {
		if err := f.Compress(); err != nil {
			log.Fatalf("compressing: %v", err)
		}
	}
	if *uncompress {
		if err := f.Uncompress(); err != nil {
			log.Fatalf("uncompressing: %v", err)
		}
	}
	if *output != "" {
		n, err := f.Save(*output)
		if err != nil {
			log.Fatalf("saving: %v", err)
		}
		fmt.Printf("wrote %s (%d bytes)\n", *output, n)
	}
}
