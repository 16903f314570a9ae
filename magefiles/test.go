//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, integration).
type Test mg.Namespace

// All runs all tests. Service-backed tests skip unless their environment
// variables are set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Unit runs all tests with the service variables cleared.
func (Test) Unit() error {
	env := map[string]string{
		envRedisAddr:   "",
		envPostgresDSN: "",
	}
	return sh.RunWithV(env, binGo, "test", "./...")
}

// Integration starts Postgres and Redis and runs every test against them.
func (Test) Integration() error {
	mg.Deps(Services.Up)
	return sh.RunWithV(serviceEnv(), binGo, "test", "-count=1", "./internal/...")
}
