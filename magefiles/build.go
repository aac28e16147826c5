//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Builds both binaries into bin/.
func (Build) All() {
	mg.Deps(Build.Windowed, Build.Headless)
}

// Builds the windowed sample runner.
func (Build) Windowed() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/physics-samples", "./cmd/physics-samples"), withStream())
	return err
}

// Builds the headless runner.
func (Build) Headless() error {
	_, err := executeCmd("go", withArgs("build", "-o", "bin/simrun", "./cmd/simrun"), withStream())
	return err
}
