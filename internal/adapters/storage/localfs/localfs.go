package localfs

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"poststudio/internal/pkg/errors"
	"poststudio/internal/ports"
)

// AllowedExtensions are kept as uploaded; anything else is stored as jpg.
var AllowedExtensions = map[string]bool{"jpg": true, "jpeg": true, "png": true, "gif": true}

const (
	fallbackExt     = "jpg"
	timestampLayout = "20060102150405"
)

// Store implements ports.AssetStore on a single flat directory.
type Store struct {
	root    string
	baseURL string
	now     func() time.Time
	suffix  func() string
}

// New creates root if needed. baseURL is the public origin of this server;
// assets are served under <baseURL>/uploads/.
func New(root, baseURL string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("localfs: root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("localfs: create %s: %w", root, err)
	}
	return &Store{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
		now:     time.Now,
		suffix:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "")[:8] },
	}, nil
}

// SanitizeExt lower-cases the extension of name and forces unknown ones to jpg.
func SanitizeExt(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if !AllowedExtensions[ext] {
		return fallbackExt
	}
	return ext
}

func (s *Store) Save(ctx context.Context, r io.Reader, originalName, prefix string) (ports.Asset, error) {
	const op = "localfs.save"

	prefix = strings.Trim(prefix, "_ ")
	if prefix == "" {
		prefix = "upload"
	}
	ext := SanitizeExt(originalName)
	name := fmt.Sprintf("%s_%s_%s.%s", prefix, s.now().Format(timestampLayout), s.suffix(), ext)
	dst := filepath.Join(s.root, name)

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return ports.Asset{}, errors.Wrap(err, op, "create asset file").WithField("name", name)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return ports.Asset{}, errors.Wrap(err, op, "write asset file").WithField("name", name)
	}
	if ctx.Err() != nil {
		_ = os.Remove(dst)
		return ports.Asset{}, ctx.Err()
	}

	return ports.Asset{
		Name:        name,
		ContentType: contentTypeByExt(name),
		Size:        n,
		ModTime:     s.now(),
	}, nil
}

func (s *Store) Open(_ context.Context, name string) (io.ReadCloser, ports.Asset, error) {
	if !validName(name) {
		return nil, ports.Asset{}, errors.NotFound("asset", name)
	}

	p := filepath.Join(s.root, name)
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ports.Asset{}, errors.NotFound("asset", name)
		}
		return nil, ports.Asset{}, errors.Wrap(err, "localfs.open", "open asset file")
	}

	st, err := f.Stat()
	if err != nil || st.IsDir() {
		f.Close()
		return nil, ports.Asset{}, errors.NotFound("asset", name)
	}

	// Prefer extension-based type. If empty, sniff first bytes.
	ct := mime.TypeByExtension(filepath.Ext(p))
	if ct == "" {
		buf := make([]byte, 512)
		n, _ := f.Read(buf)
		_, _ = f.Seek(0, io.SeekStart)
		ct = http.DetectContentType(buf[:n])
	}

	return f, ports.Asset{Name: name, ContentType: ct, Size: st.Size(), ModTime: st.ModTime()}, nil
}

func (s *Store) Latest(_ context.Context) (ports.Asset, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return ports.Asset{}, errors.Wrap(err, "localfs.latest", "list assets")
	}

	var latest ports.Asset
	for _, e := range entries {
		if e.IsDir() || !AllowedExtensions[strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if latest.Name == "" || info.ModTime().After(latest.ModTime) ||
			(info.ModTime().Equal(latest.ModTime) && e.Name() > latest.Name) {
			latest = ports.Asset{Name: e.Name(), ContentType: contentTypeByExt(e.Name()), Size: info.Size(), ModTime: info.ModTime()}
		}
	}

	if latest.Name == "" {
		return ports.Asset{}, errors.NotFound("asset", "latest")
	}
	return latest, nil
}

func (s *Store) URL(name string) string {
	return s.baseURL + "/uploads/" + name
}

// validName rejects anything that is not a plain file in the root.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func contentTypeByExt(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var _ ports.AssetStore = (*Store)(nil)
