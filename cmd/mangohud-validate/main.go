// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// mangohud-validate is a CLI tool to validate a MangoHud.conf file and the
// environment it would be loaded alongside, without injecting into a game.
//
// Usage:
//
//	mangohud-validate -f MangoHud.conf
//	mangohud-validate --file MangoHud.conf
//
// Exit codes:
//   - 0: configuration is valid
//   - 1: configuration is invalid (parse or validation error)
//   - 2: usage error (unknown or malformed flag, reported by the flag package)
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mangohud/overlayd/internal/config"
)

var Version = "dev"

func main() {
	var file string
	var showVersion bool

	flag.StringVar(&file, "file", "", "path to MangoHud.conf (defaults to the normal candidate chain)")
	flag.StringVar(&file, "f", "", "path to MangoHud.conf (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		os.Exit(0)
	}

	exeName := "mangohud-validate"
	exeDir, _ := os.Getwd()

	loader := config.NewLoader(exeName, exeDir, "")
	if file != "" {
		loader.ConsumedEnvKeys["MANGOHUD_CONFIGFILE"] = struct{}{}
		_ = os.Setenv("MANGOHUD_CONFIGFILE", file)
	}

	cfg, err := loader.Load()
	if err != nil {
		label := file
		if label == "" {
			label = "<candidate chain>"
		}
		fmt.Fprintf(os.Stderr, "Configuration error in %s:\n", label)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	if err := config.Validate(cfg); err != nil {
		label := file
		if label == "" {
			label = "<candidate chain>"
		}
		fmt.Fprintf(os.Stderr, "Validation error in %s:\n", label)
		fmt.Fprintf(os.Stderr, "  %v\n", err)
		os.Exit(1)
	}

	if file == "" {
		file = filepath.Base(exeDir)
	}
	fmt.Printf("%s is valid\n", file)
}
