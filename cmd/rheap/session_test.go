package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rerrors "github.com/wippyai/rbridge/errors"
	"github.com/wippyai/rbridge/heap"
	"github.com/wippyai/rbridge/scalar"
)

func newTestSession(t *testing.T) *session {
	t.Helper()
	ctx := context.Background()
	h, err := heap.NewWithConfig(ctx, &heap.Config{GCInterval: -1, AltrepThreshold: 1000})
	require.NoError(t, err)
	s := newSession(ctx, h)
	t.Cleanup(func() {
		s.close()
		_ = h.Close(ctx)
	})
	return s
}

func mustExec(t *testing.T, s *session, line string) string {
	t.Helper()
	out, err := s.exec(line)
	require.NoError(t, err, line)
	return out
}

func TestSession_Vectors(t *testing.T) {
	s := newTestSession(t)

	assert.Equal(t, "1: <integer[3] #1> [1 NA 3]", mustExec(t, s, "int 1 NA 3"))
	assert.Equal(t, "2: <double[2] #2> [1.5 NA]", mustExec(t, s, "dbl 1.5 NA"))
	assert.Equal(t, "3: <logical[3] #3> [TRUE FALSE NA]", mustExec(t, s, "lgl TRUE F NA"))

	assert.Equal(t, "NA", mustExec(t, s, "get 1 1"))
	assert.Equal(t, "1.5", mustExec(t, s, "get 2 0"))

	_, err := s.exec("get 1 3")
	assert.Error(t, err)

	ls := mustExec(t, s, "ls")
	assert.Equal(t, 3, strings.Count(ls, "\n")+1)
}

func TestSession_LazySequence(t *testing.T) {
	s := newTestSession(t)

	out := mustExec(t, s, "seq 1000000000")
	assert.Contains(t, out, "altrep")
	assert.Contains(t, out, "[1 2 3 4 5 6 7 8 ...]")
	assert.Equal(t, "12345679", mustExec(t, s, "get 1 12345678"))

	mustExec(t, s, "seq 5000")
	out = mustExec(t, s, "mat 2")
	assert.NotContains(t, out, "altrep")

	assert.Equal(t, "5000", mustExec(t, s, "get 2 4999"))

	out = mustExec(t, s, "seq 10")
	assert.Contains(t, out, "<integer[10] #")
	assert.NotContains(t, out, "altrep", "short sequences are materialized")
}

func TestSession_ExternalPointers(t *testing.T) {
	s := newTestSession(t)

	assert.Contains(t, mustExec(t, s, "ptr a"), "label")
	mustExec(t, s, "ptr b")
	mustExec(t, s, "clone 1")

	assert.Equal(t, "released 2\ndropped b", mustExec(t, s, "release 2"))

	mustExec(t, s, "close 1")
	out := mustExec(t, s, "gc")
	assert.NotContains(t, out, "dropped a", "clone still roots a")

	mustExec(t, s, "close 3")
	out = mustExec(t, s, "gc")
	assert.Contains(t, out, "finalized 1")
	assert.Contains(t, out, "dropped a")

	_, err := s.exec("release 2")
	assert.Error(t, err)
}

func TestSession_ReleaseRejectsVectors(t *testing.T) {
	s := newTestSession(t)

	mustExec(t, s, "int 1")
	_, err := s.exec("release 1")
	assert.Error(t, err)
	_, err = s.exec("mat 9")
	assert.Error(t, err)
}

func TestSession_SaveLoad(t *testing.T) {
	s := newTestSession(t)
	dir := t.TempDir()

	mustExec(t, s, "dbl 1 2 NA 4")
	mustExec(t, s, "seq 3000")

	for _, c := range []string{"none", "lz4", "zstd"} {
		path := filepath.Join(dir, c+".rbx")
		assert.Contains(t, mustExec(t, s, "save 1 "+path+" "+c), c)
		assert.Contains(t, mustExec(t, s, "load "+path), "[1 2 NA 4]")
	}

	path := filepath.Join(dir, "seq.rbx")
	mustExec(t, s, "save 2 "+path+" zstd")
	out := mustExec(t, s, "load "+path)
	assert.Contains(t, out, "<integer[3000]")
	assert.NotContains(t, out, "altrep")

	_, err := s.exec("save 1 " + path + " gzip")
	assert.Error(t, err)

	id, _, _ := strings.Cut(mustExec(t, s, "ptr p"), ":")
	_, err = s.exec("save " + id + " " + path)
	assert.Error(t, err)
}

func TestSession_Errors(t *testing.T) {
	s := newTestSession(t)

	tests := []string{
		"frobnicate",
		"int x",
		"dbl 1 y",
		"lgl maybe",
		"int 2147483648",
		"seq",
		"seq -1",
		"get 1 0",
		"ptr",
		"close 42",
		"load /nonexistent/file",
	}
	for _, line := range tests {
		_, err := s.exec(line)
		assert.Error(t, err, line)
	}

	mustExec(t, s, "int 1")
	kinds := map[string]rerrors.Kind{
		"int x":      rerrors.KindInvalidInput,
		"get 9 0":    rerrors.KindInvalidInput,
		"get 1 x":    rerrors.KindInvalidInput,
		"release 1":  rerrors.KindTypeMismatch,
		"frobnicate": rerrors.KindUnsupported,
		"get 1 5":    rerrors.KindOutOfBounds,
	}
	for line, kind := range kinds {
		_, err := s.exec(line)
		assert.ErrorIs(t, err, &rerrors.Error{Kind: kind}, line)
	}

	out, err := s.exec("   ")
	assert.NoError(t, err)
	assert.Empty(t, out)
}

func TestSession_Stats(t *testing.T) {
	s := newTestSession(t)

	mustExec(t, s, "int 1 2")
	assert.Contains(t, mustExec(t, s, "stats"), "live 1")
	mustExec(t, s, "close 1")
	mustExec(t, s, "gc")
	assert.Contains(t, mustExec(t, s, "stats"), "live 0")
}

func TestRunScript(t *testing.T) {
	s := newTestSession(t)

	script := `
# build and inspect
int 1 2 3
get 1 2
bogus
quit
int 4
`
	var out bytes.Buffer
	failed := runScript(&out, s, strings.NewReader(script))
	assert.Equal(t, 1, failed)

	text := out.String()
	assert.Contains(t, text, "> int 1 2 3\n1: <integer[3] #1> [1 2 3]\n")
	assert.Contains(t, text, "> get 1 2\n3\n")
	assert.Contains(t, text, "unknown command")
	assert.NotContains(t, text, "int 4")
	assert.NotContains(t, text, "build and inspect")
}

func TestParseLogical(t *testing.T) {
	for in, want := range map[string]scalar.Rbool{
		"TRUE": scalar.True, "T": scalar.True, "true": scalar.True,
		"FALSE": scalar.False, "F": scalar.False, "false": scalar.False,
	} {
		got, err := parseLogical(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	got, err := parseLogical("NA")
	require.NoError(t, err)
	assert.True(t, got.IsNA())
}
