//go:build ignore

// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"strings"
)

// This script enforces that logChanges in internal/config/reload.go only
// announces fields on the approved hot-reload allowlist. A new field showing
// up in a "config changed: <field>" log line without a matching entry here
// means it was silently promoted to hot-reloadable and needs review.

const targetFile = "internal/config/reload.go"

var approvedFields = map[string]bool{
	"fps_limit":        true,
	"fps_limit_method": true,
	"position":         true,
	"otel":             true,
	"control":          true,
}

func main() {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, targetFile, nil, parser.ParseComments)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", targetFile, err)
		os.Exit(1)
	}

	const prefix = "config changed: "
	violations := 0

	ast.Inspect(node, func(n ast.Node) bool {
		lit, ok := n.(*ast.BasicLit)
		if !ok || lit.Kind != token.STRING {
			return true
		}
		val := strings.Trim(lit.Value, "\"")
		if !strings.HasPrefix(val, prefix) {
			return true
		}
		field := strings.TrimPrefix(val, prefix)
		if !approvedFields[field] {
			fmt.Printf("VIOLATION: field %q is logged as hot-reloadable but is NOT in the approved allowlist\n", field)
			violations++
		}
		return true
	})

	if violations > 0 {
		fmt.Printf("\nFAILED: %d hot-reload governance violations found in %s\n", violations, targetFile)
		fmt.Println("New hot-reloadable fields require review and must be added to approvedFields in scripts/verify-hot-reload-governance.go")
		os.Exit(1)
	}

	fmt.Println("PASS: hot-reload governance check successful")
}
