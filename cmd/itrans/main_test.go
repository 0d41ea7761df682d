package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jusunglee/itrans/internal/itrans"
	"github.com/jusunglee/itrans/internal/tabledata"
)

func TestConvertUnescape(t *testing.T) {
	tbl, err := tabledata.Load(nil)
	require.NoError(t, err)
	e := itrans.New(tbl)

	tests := []struct {
		name     string
		input    string
		unescape bool
		want     string
	}{
		{"references kept", "ka", false, "&#x0915;"},
		{"references decoded", "ka", true, "क"},
		{"literal text untouched", "## &amp; ## ka", true, " &amp;  क"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convert(e, tt.input, itrans.Options{Language: "#sanskrit", Format: itrans.FormatHTML7}, tt.unescape)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
