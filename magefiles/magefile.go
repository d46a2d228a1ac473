//go:build mage

// Package main contains Mage build targets for banks-etl.
package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "banks-etl"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := binDir + "/" + binName
	if err := sh.RunV("go", "build", "-o", out, "."); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Run builds the binary and runs the full pipeline with the local config.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(binDir+"/"+binName, "run")
}

// Clean removes build output and the files a pipeline run produces.
func Clean() error {
	for _, p := range []string{binDir, "current_exchange_rate.csv", "Banks.db", "code_log.txt"} {
		if err := sh.Rm(p); err != nil {
			return err
		}
	}
	return nil
}
