package camera

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// DirSource replays the images of a directory in name order, one per
// Frame call, wrapping around at the end. It stands in for a camera on
// machines without one and in demos.
type DirSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	closed bool
}

// OpenDir decodes every png, jpeg and webp file of dir.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			return nil, errors.Wrapf(ErrPermissionDenied, "%s", dir)
		}
		return nil, errors.Wrapf(err, "open frame dir %s", dir)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	s := &DirSource{}
	for _, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		s.frames = append(s.frames, img)
	}
	if len(s.frames) == 0 {
		return nil, errors.Errorf("no images in %s", dir)
	}
	return s, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return img, nil
}

// NewStillSource replays the given frames. Nil frames read as ErrNoFrame.
func NewStillSource(frames ...image.Image) *DirSource {
	return &DirSource{frames: frames}
}

func (s *DirSource) Frame(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if len(s.frames) == 0 {
		return nil, ErrNoFrame
	}
	img := s.frames[s.next%len(s.frames)]
	s.next++
	if img == nil {
		return nil, ErrNoFrame
	}
	return img, nil
}

func (s *DirSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
