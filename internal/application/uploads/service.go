package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"estate-backend/internal/infrastructure/storage"
	"estate-backend/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	KindMain   = "main"
	KindDetail = "detail"
)

// MaxImageSize is the largest accepted image, in bytes.
const MaxImageSize = 10 << 20

var (
	ErrNotImage    = errors.New("Only image files can be uploaded")
	ErrTooLarge    = errors.New("Image exceeds the 10 MB limit")
	ErrInvalidKind = errors.New("Image kind must be main or detail")
	ErrNoFiles     = errors.New("No images were provided")
	ErrEmptyFile   = errors.New("Image is empty")
)

// File is one image to upload.
type File struct {
	Kind        string
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Uploaded is a stored image.
type Uploaded struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Progress receives the running byte count of one upload.
type Progress func(key string, written, total int64)

// Service stores listing images in object storage.
type Service struct {
	Store storage.ObjectStore
	Now   func() time.Time
	// Concurrency bounds parallel uploads in UploadAll; 0 means 4.
	Concurrency int
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ObjectKey builds listings/<unix-millis>_<kind>_<sanitized name>.
func ObjectKey(now time.Time, kind, filename string) string {
	return fmt.Sprintf("listings/%d_%s_%s", now.UnixMilli(), kind, Sanitize(filename))
}

// Sanitize keeps [A-Za-z0-9._-] and replaces every other rune with '_'.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (f File) check() error {
	if f.Kind != KindMain && f.Kind != KindDetail {
		return ErrInvalidKind
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return ErrNotImage
	}
	if f.Size <= 0 {
		return ErrEmptyFile
	}
	if f.Size > MaxImageSize {
		return ErrTooLarge
	}
	return nil
}

// Upload stores one image and returns its persistent download URL.
func (s *Service) Upload(ctx context.Context, f File, progress Progress) (*Uploaded, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	key := ObjectKey(s.now(), f.Kind, f.Name)
	pr := &progressReader{ctx: ctx, r: rc, total: f.Size}
	if progress != nil {
		pr.fn = func(written, total int64) { progress(key, written, total) }
	}
	if err := s.Store.Put(ctx, key, pr, f.Size, f.ContentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.Name, err)
	}
	metrics.UploadedBytes.Add(float64(pr.written))
	return &Uploaded{Key: key, URL: s.Store.URL(key), Size: pr.written}, nil
}

// UploadAll uploads files concurrently. Results keep input order. When any upload fails the
// others are cancelled and already stored objects are removed.
func (s *Service) UploadAll(ctx context.Context, files []File, progress Progress) ([]Uploaded, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range files {
		if err := f.check(); err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
	}
	limit := s.Concurrency
	if limit <= 0 {
		limit = 4
	}

	out := make([]*Uploaded, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			u, err := s.Upload(gctx, f, progress)
			if err != nil {
				return err
			}
			out[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, u := range out {
			if u == nil {
				continue
			}
			if derr := s.Store.Delete(context.WithoutCancel(ctx), u.Key); derr != nil {
				log.Warn().Err(derr).Str("key", u.Key).Msg("failed to remove partial upload")
			}
		}
		return nil, err
	}

	res := make([]Uploaded, len(out))
	for i, u := range out {
		res[i] = *u
	}
	return res, nil
}

// DeleteByURL removes the object behind a download URL. URLs from elsewhere are ignored.
func (s *Service) DeleteByURL(ctx context.Context, downloadURL string) error {
	key, ok := s.Store.Key(downloadURL)
	if !ok {
		return nil
	}
	if err := s.Store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}
	return nil
}

type progressReader struct {
	ctx     context.Context
	r       io.Reader
	written int64
	total   int64
	fn      func(written, total int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.r.Read(b)
	if n > 0 {
		p.written += int64(n)
		if p.fn != nil {
			p.fn(p.written, p.total)
		}
	}
	return n, err
}
