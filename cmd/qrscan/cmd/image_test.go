package cmd

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/qrscan/internal/testutil"
)

func writeQRFile(t *testing.T, payload string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "code.png")
	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(file, testutil.QRImage(t, payload, 256)))
	require.NoError(t, file.Close())
	return path
}

func TestImageCommand(t *testing.T) {
	assert.NotNil(t, imageCmd)
	assert.True(t, strings.HasPrefix(imageCmd.Use, "image"))
	assert.NotEmpty(t, imageCmd.Short)
	assert.NotEmpty(t, imageCmd.Long)
}

func TestImageCommandHelp(t *testing.T) {
	buf := new(bytes.Buffer)
	imageCmd.SetOut(buf)
	imageCmd.SetErr(buf)
	// Clear the writers again so later executions inherit rootCmd's output.
	t.Cleanup(func() {
		imageCmd.SetOut(nil)
		imageCmd.SetErr(nil)
	})
	require.NoError(t, imageCmd.Help())

	output := strings.TrimSpace(buf.String())
	assert.Contains(t, output, "Decode QR codes")
	assert.Contains(t, output, "Usage:")
	assert.Contains(t, output, "Flags:")
}

func TestImageCommandWithoutFile(t *testing.T) {
	err := imageCmd.RunE(imageCmd, nil)
	assert.Error(t, err)
}

func TestImageCommandDecodesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeQRFile(t, "cli payload")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"image", path})
	require.NoError(t, rootCmd.Execute())

	assert.Contains(t, buf.String(), "cli payload")
}

func TestImageCommandJSONOutput(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeQRFile(t, "json payload")

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"image", "--format", "json", path})
	require.NoError(t, rootCmd.Execute())

	var results []imageResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Found)
	assert.Equal(t, "json payload", results[0].Payload)
}

func TestImageCommandRejectsBadFormat(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeQRFile(t, "ignored")

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"image", "--format", "xml", path})
	assert.Error(t, rootCmd.Execute())
}

func TestImageCommandRejectsBadRegion(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeQRFile(t, "ignored")

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"image", "--region", "bogus", path})
	assert.Error(t, rootCmd.Execute())
}

func TestImageCommandMissingFileFails(t *testing.T) {
	t.Chdir(t.TempDir())

	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"image", "--format", "text", "--region", "", "/non/existent/file.png"})
	assert.Error(t, rootCmd.Execute())
}

func TestParseRegionFlag(t *testing.T) {
	roi, err := parseRegionFlag("10,20,30,40")
	require.NoError(t, err)
	assert.Equal(t, 10, roi.Min.X)
	assert.Equal(t, 40, roi.Max.X)
	assert.Equal(t, 60, roi.Max.Y)

	_, err = parseRegionFlag("10,20,0,40")
	assert.Error(t, err)
}
