package qr

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultBadgeSize is the side of a badge image in pixels.
const DefaultBadgeSize = 256

// Badge renders the QR code of a student code as a PNG image.
func Badge(code string, size int) ([]byte, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("empty student code")
	}
	if size <= 0 {
		size = DefaultBadgeSize
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		return nil, errors.Wrapf(err, "encode badge %s", code)
	}
	return png, nil
}

// WriteBadge saves the badge of code as {dir}/{code}.png and returns the path.
func WriteBadge(dir, code string, size int) (string, error) {
	png, err := Badge(code, size)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "create %s", dir)
	}
	path := filepath.Join(dir, sanitize(code)+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", errors.Wrapf(err, "write %s", path)
	}
	return path, nil
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, name)
}
