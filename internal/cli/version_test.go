package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Test Plan for version command:
// - Full output lists version, commit, build date, Go version and rules
// - --short prints the version alone
// - The current version carries the link-time values and the registered rules

func TestWriteVersion(t *testing.T) {
	t.Parallel()

	v := versionInfo{
		Version:   "v0.3.1",
		GitCommit: "abc1234",
		BuildDate: "2026-10-01",
		GoVersion: "go1.25.1",
		Rules:     []string{"unused-function"},
	}

	var full bytes.Buffer
	writeVersion(&full, v, false)
	assert.Equal(t, "noir-analyzer v0.3.1\n"+
		"Git commit: abc1234\n"+
		"Build date: 2026-10-01\n"+
		"Go version: go1.25.1\n"+
		"Rules: unused-function\n", full.String())

	var short bytes.Buffer
	writeVersion(&short, v, true)
	assert.Equal(t, "v0.3.1\n", short.String())

	var noGo bytes.Buffer
	v.GoVersion = ""
	writeVersion(&noGo, v, false)
	assert.NotContains(t, noGo.String(), "Go version")
}

func TestCurrentVersion(t *testing.T) {
	t.Parallel()

	v := currentVersion()
	assert.NotEmpty(t, v.Version)
	assert.Equal(t, GitCommit, v.GitCommit)
	assert.Contains(t, v.Rules, "unused-function")
}
