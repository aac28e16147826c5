//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Test mg.Namespace

// Runs every package test.
func (Test) All() error {
	_, err := executeCmd("go", withArgs("test", "./..."), withStream())
	return err
}

// Runs the physics and scene tests with the race detector.
func (Test) Race() error {
	_, err := executeCmd("go", withArgs("test", "-race",
		"./internal/physics/...", "./internal/body/...", "./internal/engine/scene/...", "./internal/sample/..."), withStream())
	return err
}
