// Package upload stores attached post images on disk.
package upload

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is where saved files are served from.
const URLPrefix = "/uploads/"

var ErrNotImage = errors.New("images only: jpeg, jpg, png or gif")

// allowed maps file extensions to the content type they must sniff as.
var allowed = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

type Saver struct {
	Dir      string
	MaxBytes int64
	now      func() time.Time
}

func NewSaver(dir string, maxBytes int64) (*Saver, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Saver{Dir: dir, MaxBytes: maxBytes, now: time.Now}, nil
}

// Save writes the file attached under field and returns its public path.
// It returns "" and no error when nothing was attached. The request must
// already be parsed as multipart.
func (s *Saver) Save(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		return "", nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	if s.MaxBytes > 0 && hdr.Size > s.MaxBytes {
		return "", fmt.Errorf("file larger than %d bytes", s.MaxBytes)
	}

	name := filepath.Base(hdr.Filename)
	want, ok := allowed[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", ErrNotImage
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if http.DetectContentType(head[:n]) != want {
		return "", ErrNotImage
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	// the random part keeps same-name uploads in one millisecond apart
	filename := fmt.Sprintf("%d-%s-%s", s.now().UnixMilli(), uuid.NewString()[:8], strings.ReplaceAll(name, " ", "_"))
	out, err := os.OpenFile(filepath.Join(s.Dir, filename), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, f); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return URLPrefix + filename, nil
}

// Remove deletes a file previously returned by Save.
func (s *Saver) Remove(path string) error {
	name := strings.TrimPrefix(path, URLPrefix)
	if name == path || name == "" || name != filepath.Base(name) {
		return fmt.Errorf("not an upload path: %q", path)
	}
	return os.Remove(filepath.Join(s.Dir, name))
}

// Handler serves saved files read-only. Directory listings are refused.
func (s *Saver) Handler() http.Handler {
	fs := http.StripPrefix(URLPrefix, http.FileServer(http.Dir(s.Dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
