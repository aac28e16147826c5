//go:build mage

package main

import (
	"fmt"
	"strconv"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Opens a window on the named sample.
func (Run) Sample(name string) error {
	fmt.Println("Run sample", name)
	_, err := executeCmd("go", withArgs("run", "./cmd/physics-samples", "--sample", name), withStream())
	return err
}

// Steps the named sample for the given number of frames without a window.
func (Run) Headless(name string, frames int) error {
	_, err := executeCmd("go", withArgs("run", "./cmd/simrun", "--sample", name, "--frames", strconv.Itoa(frames)), withStream())
	return err
}
