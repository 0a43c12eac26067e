package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldCommit, oldTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = oldCommit, oldTime })

	GitCommit = "0123456789abcdef"
	BuildTime = "2024-01-02T03:04:05Z"
	assert.Equal(t, Version+" (commit 0123456, built 2024-01-02T03:04:05Z)", String())

	GitCommit = "abc"
	assert.Contains(t, String(), "commit abc,")
}
