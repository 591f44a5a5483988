// Package qrcode renders links as QR code images.
package qrcode

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	qr "github.com/skip2/go-qrcode"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Rendering parameters
const (
	BoxSize = 10 // pixels per module
	Border  = 4  // quiet zone in modules

	// Folder is the directory under the static root where images are saved
	Folder = "QR"
)

var (
	// ErrEmptyURL is returned when there is nothing to encode
	ErrEmptyURL = errors.New("url is empty")
	// ErrUnsupportedType is returned for file types without an encoder
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidName is returned for file names that would escape the folder
	ErrInvalidName = errors.New("invalid file name")
)

var contentTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
}

// Creator describes one QR code image
type Creator struct {
	URL      string
	FileName string
	FileType string
}

// NewCreator normalizes the file type and validates the inputs
func NewCreator(url, fileName, fileType string) (*Creator, error) {
	c := &Creator{
		URL:      strings.TrimSpace(url),
		FileName: strings.TrimSpace(fileName),
		FileType: strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), ".")),
	}
	if c.FileType == "" {
		c.FileType = "png"
	}

	if c.URL == "" {
		return nil, ErrEmptyURL
	}
	if _, ok := contentTypes[c.FileType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, fileType)
	}
	if c.FileName != "" && !validName(c.FileName) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, fileName)
	}
	return c, nil
}

func validName(name string) bool {
	return !strings.ContainsAny(name, `/\`) && name != "." && !strings.Contains(name, "..")
}

// ContentType returns the MIME type of the configured file type
func (c *Creator) ContentType() string {
	return contentTypes[c.FileType]
}

// Create builds the QR image: smallest version that fits, low error
// correction, BoxSize pixels per module and a Border module quiet zone
func (c *Creator) Create() (image.Image, error) {
	if c.URL == "" {
		return nil, ErrEmptyURL
	}

	code, err := qr.New(c.URL, qr.Low)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %q: %w", c.URL, err)
	}
	code.DisableBorder = true

	return render(code.Bitmap(), BoxSize, Border), nil
}

// render paints each module as a size×size black or white square
func render(bitmap [][]bool, size, border int) image.Image {
	modules := len(bitmap) + 2*border
	img := image.NewPaletted(
		image.Rect(0, 0, modules*size, modules*size),
		color.Palette{color.White, color.Black},
	)

	for y, row := range bitmap {
		for x, dark := range row {
			if !dark {
				continue
			}
			x0 := (x + border) * size
			y0 := (y + border) * size
			for dy := 0; dy < size; dy++ {
				for dx := 0; dx < size; dx++ {
					img.SetColorIndex(x0+dx, y0+dy, 1)
				}
			}
		}
	}
	return img
}

// Encode writes img in the configured file type
func (c *Creator) Encode(w io.Writer, img image.Image) error {
	var err error
	switch c.FileType {
	case "png":
		err = png.Encode(w, img)
	case "jpg", "jpeg":
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "gif":
		err = gif.Encode(w, img, nil)
	case "bmp":
		err = bmp.Encode(w, img)
	case "tiff":
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedType, c.FileType)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", c.FileType, err)
	}
	return nil
}

// CacheName names an image by what it encodes, so the same link and type
// always map to the same file
func CacheName(url, fileType string) string {
	sum := sha256.Sum256([]byte(fileType + "\x00" + url))
	return "qr-" + hex.EncodeToString(sum[:16])
}

// Exists reports whether the image is already saved under staticDir
func (c *Creator) Exists(staticDir string) bool {
	if c.FileName == "" || !validName(c.FileName) {
		return false
	}
	info, err := os.Stat(filepath.Join(staticDir, filepath.FromSlash(c.RelPath())))
	return err == nil && info.Mode().IsRegular()
}

// RelPath is the image path relative to the static root
func (c *Creator) RelPath() string {
	return filepath.ToSlash(filepath.Join(Folder, c.FileName+"."+c.FileType))
}

// Save writes img to <staticDir>/QR/<name>.<type>, creating the folder, and
// returns the path relative to staticDir
func (c *Creator) Save(staticDir string, img image.Image) (string, error) {
	if c.FileName == "" || !validName(c.FileName) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, c.FileName)
	}

	folder := filepath.Join(staticDir, Folder)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", folder, err)
	}

	path := filepath.Join(folder, c.FileName+"."+c.FileType)
	tmp, err := os.CreateTemp(folder, ".qr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.Encode(tmp, img); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to save image file: %w", err)
	}

	return c.RelPath(), nil
}
