package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreview(t *testing.T) {
	var lines []string
	for i := 1; i <= 40; i++ {
		lines = append(lines, fmt.Sprintf("riga %d", i))
	}
	got := preview(strings.Join(lines, "\n"), 30)
	assert.Len(t, got, 30)
	assert.Equal(t, "riga 30", got[29])

	assert.Equal(t, []string{"solo"}, preview("solo", 30))
}

func TestCenter(t *testing.T) {
	assert.Equal(t, "  ab  ", center("ab", 6))
	assert.Equal(t, " abc  ", center("abc", 6))
	assert.Equal(t, "abcdef", center("abcdef", 3))
}

func TestPrintPreview(t *testing.T) {
	var buf bytes.Buffer
	printPreview(&buf, "BILANCIO\nATTIVO")
	out := buf.String()
	assert.Contains(t, out, "PREVIEW - FIRST 30 LINES")
	assert.Contains(t, out, "BILANCIO\nATTIVO\n")
	assert.Contains(t, out, rule())
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bilancio.txt")
	require.NoError(t, os.WriteFile(in, []byte("BILANCIO D'ESERCIZIO AL 31/12/2024\nROSSI S.R.L.\n\nSTATO PATRIMONIALE - ATTIVO\nTOTALE ATTIVO € 100\n"), 0o644))
	out := filepath.Join(dir, "out.pdf")

	rootCmd.SetArgs([]string{"render", in, "-o", out})
	require.NoError(t, rootCmd.Execute())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestGenerateNeedsFiles(t *testing.T) {
	rootCmd.SetArgs([]string{"generate"})
	assert.Error(t, rootCmd.Execute())
}
