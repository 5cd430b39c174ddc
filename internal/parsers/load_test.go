package parsers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLoad(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    LoadAverages
		wantErr string
	}{
		{
			name:  "proc loadavg line",
			input: "0.10 0.25 0.30 1/200 1234",
			want:  LoadAverages{Load1: 0.10, Load5: 0.25, Load15: 0.30},
		},
		{
			name:  "trailing newline and padding",
			input: "  1.23 2.34 3.45 2/345 6789\n",
			want:  LoadAverages{Load1: 1.23, Load5: 2.34, Load15: 3.45},
		},
		{
			name:  "exactly three fields",
			input: "4 5 6",
			want:  LoadAverages{Load1: 4, Load5: 5, Load15: 6},
		},
		{
			name:  "busy box",
			input: "64.02 48.77 30.01 65/1024 99999",
			want:  LoadAverages{Load1: 64.02, Load5: 48.77, Load15: 30.01},
		},
		{
			name:  "bsd sysctl format",
			input: "{ 1.50 1.25 1.00 }",
			want:  LoadAverages{Load1: 1.50, Load5: 1.25, Load15: 1.00},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: "got 0 fields",
		},
		{
			name:    "two fields",
			input:   "0.10 0.25",
			wantErr: "got 2 fields",
		},
		{
			name:    "non numeric",
			input:   "0.10 abc 0.30 1/200 1234",
			wantErr: "field 2 is not a number",
		},
		{
			name:    "shell error text",
			input:   "cat: /proc/loadavg: No such file or directory",
			wantErr: "field 1 is not a number",
		},
		{
			name:    "negative",
			input:   "-1 0 0",
			wantErr: "field 1 is out of range",
		},
		{
			name:    "nan",
			input:   "NaN 0 0",
			wantErr: "field 1 is out of range",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLoad(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)

				var pe *ParseError
				require.True(t, errors.As(err, &pe))
				assert.Equal(t, "load", pe.Metric)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Load1, got.Load1, 1e-9)
			assert.InDelta(t, tt.want.Load5, got.Load5, 1e-9)
			assert.InDelta(t, tt.want.Load15, got.Load15, 1e-9)
		})
	}
}

func TestParseError_TruncatesInput(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}

	_, err := ParseLoad(string(long))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.LessOrEqual(t, len(pe.Input), maxInputInError+3)
}

func TestParseError_Unwrap(t *testing.T) {
	_, err := ParseLoad("a b c")
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.NotNil(t, errors.Unwrap(pe))
}
