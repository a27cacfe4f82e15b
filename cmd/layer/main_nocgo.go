// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

//go:build !(linux && cgo)

// Command layer has no meaning outside linux+cgo: the Vulkan/GL ABI shim
// it builds can only ever be dlopened by a Linux loader. This stub keeps
// `go build ./...` working on other configurations.
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "layer: built without cgo support on linux; nothing to do")
	os.Exit(1)
}
