// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package toolexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLineRing_Basic(t *testing.T) {
	r := NewLineRing(3)
	_, _ = r.Write([]byte("one\ntwo\n"))
	assert.Equal(t, []string{"one", "two"}, r.LastN(5))

	_, _ = r.Write([]byte("three\nfour\n"))
	assert.Equal(t, []string{"two", "three", "four"}, r.LastN(3))
	assert.Equal(t, []string{"four"}, r.LastN(1))
}

func TestLineRing_PartialWrites(t *testing.T) {
	r := NewLineRing(10)
	_, _ = r.Write([]byte("ERROR 1: cannot o"))
	assert.Empty(t, r.LastN(10))

	_, _ = r.Write([]byte("pen dem.tif\nnext"))
	assert.Equal(t, []string{"ERROR 1: cannot open dem.tif"}, r.LastN(10))

	r.Flush()
	assert.Equal(t, []string{"ERROR 1: cannot open dem.tif", "next"}, r.LastN(10))
}

func TestLineRing_CarriageReturnProgress(t *testing.T) {
	r := NewLineRing(10)
	_, _ = r.Write([]byte("10%\r20%\r100%\n"))
	assert.Equal(t, []string{"10%", "20%", "100%"}, r.LastN(10))
}

func TestLineRing_OnLine(t *testing.T) {
	r := NewLineRing(2)
	var seen []string
	r.onLine = func(s string) { seen = append(seen, s) }
	_, _ = r.Write([]byte("a\nb\nc\n"))
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, []string{"b", "c"}, r.LastN(2))
}

func TestCommand_Tool(t *testing.T) {
	assert.Equal(t, "rio", Command{Name: "rio"}.Tool())
	assert.Equal(t, "pmtiles-linux-x64", Command{Name: "/opt/bin/pmtiles-linux-x64"}.Tool())
	assert.Equal(t, "pmtiles-windows-x64", Command{Name: `pmtiles-windows-x64.exe`}.Tool())
	assert.Equal(t, "mb-util a b", Command{Name: "mb-util", Args: []string{"a", "b"}}.String())
}
