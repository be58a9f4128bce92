//go:build ignore

// Package main generates a synthetic source tree for scan benchmarking.
// Usage: go run scripts/generate-test-corpus.go -files 1000 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "testdata/bench", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var goTemplate = `package %s

import "fmt"

// %s handles %s records.
type %s struct {
	id   string
	name string
}

// Process%s runs the %s pipeline step.
func (s *%s) Process%s(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("empty input")
	}
	return fmt.Sprintf("%s: %%s", input), nil
}
`

var mdTemplate = `# %s

This document covers the %s subsystem.

## Overview

The %s component keeps %s records consistent across scans. It is exercised
by the benchmark corpus to measure decision throughput on mixed trees.
`

var nouns = []string{
	"account", "payment", "session", "invoice", "inventory",
	"shipment", "catalog", "profile", "report", "schedule",
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output dir: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		noun := nouns[rng.Intn(len(nouns))]
		pkg := fmt.Sprintf("pkg%02d", i%20)
		dir := filepath.Join(*outputDir, pkg)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}

		var path, content string
		if i%5 == 4 {
			path = filepath.Join(dir, fmt.Sprintf("doc%04d.md", i))
			content = fmt.Sprintf(mdTemplate, noun, noun, noun, noun)
		} else {
			typ := fmt.Sprintf("%s%04d", capitalize(noun), i)
			path = filepath.Join(dir, fmt.Sprintf("file%04d.go", i))
			content = fmt.Sprintf(goTemplate, pkg, typ, noun, typ, typ, noun, typ, typ, noun)
		}

		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Printf("generated %d files under %s\n", *numFiles, *outputDir)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
