package engine

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameContent(t *testing.T) {
	root := t.TempDir()
	big := bytes.Repeat([]byte("0123456789abcdef"), 10000)
	bigTail := bytes.Clone(big)
	bigTail[len(bigTail)-1] = 'X'

	writeFiles(t, root, map[string]string{
		"a":       "hello",
		"b":       "hello",
		"c":       "hellp",
		"d":       "hello!",
		"big1":    string(big),
		"big2":    string(big),
		"bigtail": string(bigTail),
		"e1":      "",
		"e2":      "",
	})
	p := func(name string) string { return filepath.Join(root, name) }

	tests := []struct {
		a, b string
		want bool
	}{
		{"a", "b", true},
		{"a", "c", false},
		{"a", "d", false},
		{"big1", "big2", true},
		{"big1", "bigtail", false},
		{"e1", "e2", true},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got, err := sameContent(p(tt.a), p(tt.b))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSameContentMissing(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a": "x"})

	_, err := sameContent(filepath.Join(root, "a"), filepath.Join(root, "missing"))
	require.Error(t, err)
}
