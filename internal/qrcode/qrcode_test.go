package qrcode

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

func isDark(img image.Image, x, y int) bool {
	r, g, b, _ := img.At(x, y).RGBA()
	return r+g+b < 3*0x8000
}

func TestCreateVersionOneGeometry(t *testing.T) {
	c, err := NewCreator("unzippd.co.uk", "unzippd", "png")
	require.NoError(t, err)

	img, err := c.Create()
	require.NoError(t, err)

	// version 1 is 21 modules wide, plus the quiet zone on both sides
	side := (21 + 2*Border) * BoxSize
	assert.Equal(t, image.Rect(0, 0, side, side), img.Bounds())

	assert.False(t, isDark(img, 0, 0), "quiet zone is white")
	assert.False(t, isDark(img, Border*BoxSize-1, Border*BoxSize-1), "quiet zone is white")
	assert.True(t, isDark(img, Border*BoxSize, Border*BoxSize), "finder pattern corner is black")
	assert.True(t, isDark(img, Border*BoxSize+BoxSize-1, Border*BoxSize+BoxSize-1), "modules are BoxSize wide")
}

func TestCreateGrowsVersionToFit(t *testing.T) {
	c, err := NewCreator("https://example.com/a/rather/long/path/that/does/not/fit/version/one", "long", "png")
	require.NoError(t, err)

	img, err := c.Create()
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), (21+2*Border)*BoxSize)
}

func TestEncodeAllTypes(t *testing.T) {
	for _, typ := range []string{"png", "jpg", "jpeg", "gif", "bmp", "tiff"} {
		t.Run(typ, func(t *testing.T) {
			c, err := NewCreator("unzippd.co.uk", "unzippd", typ)
			require.NoError(t, err)

			img, err := c.Create()
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, img))

			decoded, _, err := image.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, img.Bounds(), decoded.Bounds())
		})
	}
}

func TestNewCreatorValidation(t *testing.T) {
	_, err := NewCreator("", "x", "png")
	assert.ErrorIs(t, err, ErrEmptyURL)

	_, err = NewCreator("example.com", "x", "svg")
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = NewCreator("example.com", "../etc/passwd", "png")
	assert.ErrorIs(t, err, ErrInvalidName)

	c, err := NewCreator("example.com", "x", ".PNG")
	require.NoError(t, err)
	assert.Equal(t, "png", c.FileType)
	assert.Equal(t, "image/png", c.ContentType())

	c, err = NewCreator("example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "png", c.FileType)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCreator("unzippd.co.uk", "unzippd", "png")
	require.NoError(t, err)

	img, err := c.Create()
	require.NoError(t, err)

	rel, err := c.Save(dir, img)
	require.NoError(t, err)
	assert.Equal(t, "QR/unzippd.png", rel)

	f, err := os.Open(filepath.Join(dir, "QR", "unzippd.png"))
	require.NoError(t, err)
	defer f.Close()

	decoded, format, err := image.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, img.Bounds(), decoded.Bounds())

	entries, err := os.ReadDir(filepath.Join(dir, "QR"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveRequiresName(t *testing.T) {
	c, err := NewCreator("example.com", "", "png")
	require.NoError(t, err)
	img, err := c.Create()
	require.NoError(t, err)

	_, err = c.Save(t.TempDir(), img)
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCacheName(t *testing.T) {
	a := CacheName("https://example.com", "png")
	assert.Equal(t, a, CacheName("https://example.com", "png"))
	assert.NotEqual(t, a, CacheName("https://example.com", "gif"))
	assert.NotEqual(t, a, CacheName("https://example.org", "png"))
	assert.True(t, validName(a))
	assert.Len(t, a, len("qr-")+32)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCreator("https://example.com", CacheName("https://example.com", "png"), "png")
	require.NoError(t, err)
	assert.False(t, c.Exists(dir))

	img, err := c.Create()
	require.NoError(t, err)
	_, err = c.Save(dir, img)
	require.NoError(t, err)
	assert.True(t, c.Exists(dir))

	c.FileName = ""
	assert.False(t, c.Exists(dir))
}
