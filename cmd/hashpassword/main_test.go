package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"cpaportal/internal/security"
)

func TestRunWithoutArgumentPrintsUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(nil, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "Usage: hashpassword <password>")
}

func TestRunPrintsVerifiableHash(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{"S3cret!pass"}, &stdout, &stderr)

	assert.Equal(t, 0, code)
	assert.Empty(t, stderr.String())
	hash := strings.TrimSpace(stdout.String())
	assert.True(t, security.CheckPassword("S3cret!pass", hash))
	assert.False(t, security.CheckPassword("wrong", hash))
}

func TestRunRejectsOverlongPassword(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run([]string{strings.Repeat("x", 100)}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "Failed to hash password")
}
