//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the typegraph project using Mage.
//
// Usage:
//
//	mage build          Compile typegraph binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests without the property suites
//	mage test:property  Run only the rapid property tests
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install typegraph to GOPATH/bin
//	mage stats          Print Go LOC counts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "typegraph"
	binaryDir  = "bin"
	cmdDir     = "./cmd/typegraph"
	modulePath = "github.com/mesh-intelligence/typegraph"
)

// ldflags stamps the version reported by `typegraph version`.
func ldflags() string {
	version := os.Getenv("TYPEGRAPH_VERSION")
	if version == "" {
		version = "dev"
	}
	return "-X " + modulePath + "/internal/cli.Version=" + version
}

// Build compiles the typegraph binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-ldflags", ldflags(), "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
