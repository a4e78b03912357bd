//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, property).
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs the tests without the rapid property suites.
func (Test) Unit() error {
	return sh.RunV(binGo, "test", "-skip", "^TestProperty_", "./...")
}

// Property runs only the rapid property suites, with more checks than the
// default.
func (Test) Property() error {
	return sh.RunV(binGo, "test", "-run", "^TestProperty_", "./...", "-args", "-rapid.checks=1000")
}

// Race runs every test with the race detector.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}
