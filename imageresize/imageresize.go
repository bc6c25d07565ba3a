// Package imageresize serves poster images scaled down to the size a page
// asks for. Resized images are kept in an on-disk cache.
package imageresize

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/djherbis/times"
	"github.com/rs/zerolog/log"

	"github.com/erikbos/filmbrowser/idhash"
)

type Options struct {
	// Cachedir holds resized images, nothing is cached if empty.
	Cachedir string
}

type Resizer struct {
	cachedir           string
	tmpExt             string
	resizeMutexMap     map[string]*sync.Mutex
	resizeMutexMapLock sync.Mutex
}

// Size is the requested bounding box and jpeg quality. Zero values mean
// "keep the original".
type Size struct {
	Width   int
	Height  int
	Quality int
}

// Image is an image ready to be served.
type Image struct {
	Data        []byte
	ContentType string
	ModTime     time.Time
}

var ErrNotAnImage = errors.New("not a supported image")

func New(config Options) *Resizer {
	r := &Resizer{
		cachedir:       config.Cachedir,
		resizeMutexMap: make(map[string]*sync.Mutex),
		tmpExt:         fmt.Sprintf(".%d", os.Getpid()),
	}
	return r
}

var isImg = regexp.MustCompile(`(?i)\.(png|jpg|jpeg)$`)

// ParseSize reads the 'w', 'h' and 'q' query parameters. Invalid values
// are ignored.
func ParseSize(params url.Values) Size {
	return Size{
		Width:   param2int(params, "w"),
		Height:  param2int(params, "h"),
		Quality: min(param2int(params, "q"), 100),
	}
}

func param2int(params url.Values, param string) int {
	x, err := strconv.ParseUint(params.Get(param), 10, 16)
	if err != nil {
		return 0
	}
	return int(x)
}

// Open returns the image at name, scaled down to fit within size. The
// aspect ratio is kept and images are never scaled up.
func (r *Resizer) Open(name string, size Size) (*Image, error) {
	s := isImg.FindStringSubmatch(name)
	if len(s) == 0 {
		return nil, ErrNotAnImage
	}
	ctype := "image/png"
	if strings.ToLower(s[1]) != "png" {
		ctype = "image/jpeg"
	}

	ts, err := times.Stat(name)
	if err != nil {
		return nil, err
	}
	modTime := sourceTime(ts)

	if size == (Size{}) {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		return &Image{Data: data, ContentType: ctype, ModTime: modTime}, nil
	}

	cn := r.cacheName(name, size, s[1])
	if data, ok := r.cacheRead(cn, modTime); ok {
		return &Image{Data: data, ContentType: ctype, ModTime: modTime}, nil
	}

	m := r.lock(name)
	m.Lock()
	defer m.Unlock()

	// another request might have resized it meanwhile
	if data, ok := r.cacheRead(cn, modTime); ok {
		return &Image{Data: data, ContentType: ctype, ModTime: modTime}, nil
	}

	img, err := imaging.Open(name)
	if err != nil {
		return nil, err
	}
	img = fit(img, size)

	format, err := imaging.FormatFromFilename(name)
	if err != nil {
		return nil, err
	}
	var opts []imaging.EncodeOption
	if size.Quality > 0 {
		opts = append(opts, imaging.JPEGQuality(size.Quality))
	}
	var buf bytes.Buffer
	if err = imaging.Encode(&buf, img, format, opts...); err != nil {
		return nil, err
	}

	r.cacheWrite(cn, buf.Bytes())
	return &Image{Data: buf.Bytes(), ContentType: ctype, ModTime: modTime}, nil
}

func (r *Resizer) lock(name string) *sync.Mutex {
	r.resizeMutexMapLock.Lock()
	defer r.resizeMutexMapLock.Unlock()
	m, ok := r.resizeMutexMap[name]
	if !ok {
		m = &sync.Mutex{}
		r.resizeMutexMap[name] = m
	}
	return m
}

// fit scales img down to the requested bounding box.
func fit(img image.Image, size Size) image.Image {
	ow := img.Bounds().Dx()
	oh := img.Bounds().Dy()
	w := min(size.Width, ow)
	h := min(size.Height, oh)

	switch {
	case w > 0 && h > 0:
		return imaging.Fit(img, w, h, imaging.Lanczos)
	case w > 0 && w < ow:
		return imaging.Resize(img, w, 0, imaging.Lanczos)
	case h > 0 && h < oh:
		return imaging.Resize(img, 0, h, imaging.Lanczos)
	}
	return img
}

// sourceTime returns the latest of modification and change time.
func sourceTime(ts times.Timespec) time.Time {
	t := ts.ModTime()
	if ts.HasChangeTime() && ts.ChangeTime().After(t) {
		t = ts.ChangeTime()
	}
	return t
}

func (r *Resizer) cacheName(name string, size Size, ext string) string {
	if r.cachedir == "" {
		return ""
	}
	return filepath.Join(r.cachedir, fmt.Sprintf("%s:%dx%dq=%d.%s",
		idhash.Hash(name), size.Width, size.Height, size.Quality, strings.ToLower(ext)))
}

// see if we have a resized file in the cache that is newer than the source.
func (r *Resizer) cacheRead(cn string, source time.Time) ([]byte, bool) {
	if cn == "" {
		return nil, false
	}
	ts, err := times.Stat(cn)
	if err != nil || ts.ModTime().Before(source) {
		return nil, false
	}
	data, err := os.ReadFile(cn)
	if err != nil {
		return nil, false
	}
	return data, true
}

// store resized file in the cache.
func (r *Resizer) cacheWrite(cn string, blob []byte) {
	if cn == "" {
		return
	}
	tmp := cn + r.tmpExt
	err := os.WriteFile(tmp, blob, 0o644)
	if err == nil {
		err = os.Rename(tmp, cn)
	}
	if err != nil {
		os.Remove(tmp)
		log.Warn().Err(err).Str("file", cn).Msg("writing image cache")
	}
}
