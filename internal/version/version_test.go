package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentHasDefaults(t *testing.T) {
	b := Current()

	assert.NotEmpty(t, b.Version)
	assert.NotEmpty(t, b.Commit)
	assert.NotEmpty(t, b.Date)
}

func TestBuildString(t *testing.T) {
	b := Build{Version: "1.2.3", Commit: "abc123", Date: "2026-09-01"}

	assert.Equal(t, "version=1.2.3 commit=abc123 date=2026-09-01", b.String())
}
