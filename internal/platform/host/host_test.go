package host

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbe(t *testing.T) {
	f, errs := Probe(context.Background(), t.TempDir())
	for _, err := range errs {
		t.Logf("probe error: %v", err)
	}
	assert.Equal(t, runtime.GOOS, f.OS)
	assert.Equal(t, runtime.GOARCH, f.Arch)
	assert.Positive(t, f.LogicalCPUs)
}

func TestProbe_SkipsDiskWithoutTempDir(t *testing.T) {
	f, _ := Probe(context.Background(), "")
	assert.Zero(t, f.TempFree)
}

func TestLogicalCPUs(t *testing.T) {
	assert.Positive(t, LogicalCPUs(context.Background()))
}
