// SPDX-License-Identifier: GPL-2.0-or-later

// Command bspbrush reconstructs the convex solids of a map and dumps
// them in VMF-style text. The decompile policy is read from an optional
// YAML config.
package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"gobsp/bspdata"
	"gobsp/bspfile"
	"gobsp/brush"
	"gobsp/winding"
)

var (
	debug      = flag.Bool("debug", false, "enable debug logging")
	configPath = flag.String("config", "", "YAML decompile policy")
	output     = flag.String("output", "", "write solids here instead of stdout")
	withModels = flag.Bool("models", false, "also emit sub-model brushes")
)

type policy struct {
	Details     bool   `yaml:"details"`
	Areaportals bool   `yaml:"areaportals"`
	Ladders     bool   `yaml:"ladders"`
	Strata      bool   `yaml:"strata"`
	Material    string `yaml:"material"`
}

func loadPolicy(path string) (policy, error) {
	// details are kept by default, tool brushes are not
	p := policy{Details: true, Material: "TOOLS/TOOLSNODRAW"}
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, err
	}
	return p, nil
}

func main() {
	flag.Parse()
	if *debug {
		log.SetLevel(log.DebugLevel)
	}
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bspbrush [flags] <map.bsp>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	pol, err := loadPolicy(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	f, err := bspfile.Load(flag.Arg(0))
	if err != nil {
		log.Fatalf("loading %s: %v", flag.Arg(0), err)
	}
	defer f.Close()
	if pol.Strata {
		f.AppID = bspfile.StrataSource
	}

	data, err := bspdata.Load(f)
	if err != nil {
		log.Fatalf("decoding %s: %v", f.Name, err)
	}

	out := io.Writer(os.Stdout)
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			log.Fatalf("creating %s: %v", *output, err)
		}
		defer file.Close()
		out = file
	}

	fac := winding.NewFactory(data, winding.CoordSize(f.AppID))
	w := &textWriter{w: out}
	mapper := brush.NewFaceMapper(data, fac)
	src := brush.NewSource(data, fac, brush.Config{
		WriteDetails:     pol.Details,
		WriteAreaportals: pol.Areaportals,
		WriteLadders:     pol.Ladders,
	}, w, flatTexture{material: pol.Material}, &counter{}, mapper)

	if err := src.WriteBrushes(); err != nil {
		log.Fatalf("writing brushes: %v", err)
	}
	if *withModels {
		for i := 1; i < len(data.Models); i++ {
			if err := src.WriteModel(i, data.Models[i].Origin, vec3Zero); err != nil {
				log.Fatalf("writing model %d: %v", i, err)
			}
		}
	}
	log.Infof("processed %d world brushes", src.WorldBrushCount())
}
