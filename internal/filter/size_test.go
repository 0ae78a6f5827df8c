package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "zero", input: "0", want: 0},
		{name: "bare bytes", input: "4096", want: 4096},
		{name: "explicit bytes", input: "512B", want: 512},
		{name: "letter suffix is binary", input: "64K", want: 64 << 10},
		{name: "lower case", input: "64k", want: 64 << 10},
		{name: "mega", input: "8M", want: 8 << 20},
		{name: "giga", input: "2G", want: 2 << 30},
		{name: "tera", input: "1T", want: 1 << 40},
		{name: "fraction", input: "1.5G", want: 3 << 29},
		{name: "decimal unit", input: "1MB", want: 1_000_000},
		{name: "binary unit", input: "1MiB", want: 1 << 20},
		{name: "surrounding space", input: "  16K ", want: 16 << 10},
		{name: "empty", input: "", wantErr: true},
		{name: "no number", input: "K", wantErr: true},
		{name: "garbage", input: "lots", wantErr: true},
		{name: "unknown unit", input: "10 bananas", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
