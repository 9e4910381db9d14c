package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/revendaauto/backoffice/internal/utils"
)

var (
	ErrNotFound    = errors.New("file not found")
	ErrUnavailable = errors.New("local store unavailable")
)

const maxNameAttempts = 8

// generated names only; anything else can not exist in the store
var regexFileName = regexp.MustCompile(`^\d+-[0-9a-f]{16}(\.[a-z0-9]{1,10})?$`)

// StoredObject is what the local store holds for one saved upload.
type StoredObject struct {
	FileName    string
	ContentType string
	SizeBytes   uint64
	ObjectPath  string
}

// File is an open stored file, ready to be served.
type File struct {
	*os.File
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// LocalStore keeps uploads in a single flat directory under generated names.
type LocalStore struct {
	dir          string
	publicPrefix string
	now          func() time.Time
}

func NewLocalStore(cfg *Config) (*LocalStore, error) {
	dir, err := utils.ResolvePath(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve files dir: %w", err)
	}
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("create files dir: %w", err)
	}

	prefix := cfg.PublicPrefix
	if prefix == "" {
		prefix = DefaultPublicPrefix
	}

	return &LocalStore{
		dir:          dir,
		publicPrefix: "/" + strings.Trim(prefix, "/"),
		now:          time.Now,
	}, nil
}

// Dir returns the absolute storage directory.
func (s *LocalStore) Dir() string {
	return s.dir
}

// PublicPrefix is the route stored files are served under.
func (s *LocalStore) PublicPrefix() string {
	return s.publicPrefix
}

// Available reports whether the store directory can currently take writes.
func (s *LocalStore) Available(_ context.Context) error {
	if !utils.IsWritableDir(s.dir) {
		return fmt.Errorf("%w: %s is not writable", ErrUnavailable, filepath.Base(s.dir))
	}
	return nil
}

// ObjectPath is the public path a stored file is served from.
func (s *LocalStore) ObjectPath(fileName string) string {
	return path.Join(s.publicPrefix, fileName)
}

// Save writes r under a freshly generated name. Only the extension of
// originalName survives into the stored name.
func (s *LocalStore) Save(ctx context.Context, r io.Reader, originalName string, contentType string) (*StoredObject, error) {
	ext := utils.SafeExt(originalName)

	var (
		f    *os.File
		name string
		err  error
	)
	for range maxNameAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name = s.newName(ext)
		f, err = os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil || !errors.Is(err, fs.ErrExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("write %s: %w", name, err)
	}

	if contentType == "" {
		contentType = utils.ContentTypeByExt(name)
	}

	slog.Debug("files saved", "name", name, "size", humanize.IBytes(uint64(n)))
	return &StoredObject{
		FileName:    name,
		ContentType: contentType,
		SizeBytes:   uint64(n),
		ObjectPath:  s.ObjectPath(name),
	}, nil
}

// Read returns the full contents of a stored file.
func (s *LocalStore) Read(ctx context.Context, name string) ([]byte, error) {
	f, err := s.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// Open opens a stored file for streaming. Unknown or malformed names
// yield ErrNotFound.
func (s *LocalStore) Open(_ context.Context, name string) (*File, error) {
	if !ValidFileName(name) {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrNotFound
	}

	return &File{
		File:        f,
		Name:        name,
		ContentType: utils.ContentTypeByExt(name),
		Size:        info.Size(),
		ModTime:     info.ModTime(),
	}, nil
}

// Delete removes a stored file. It reports false when nothing was there.
func (s *LocalStore) Delete(_ context.Context, name string) (bool, error) {
	if !ValidFileName(name) {
		return false, nil
	}

	err := os.Remove(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	return true, nil
}

func (s *LocalStore) newName(ext string) string {
	return fmt.Sprintf("%d-%s%s", s.now().UnixMilli(), utils.TokenHex(8), ext)
}

// ValidFileName reports whether name has the shape of a generated name.
func ValidFileName(name string) bool {
	return regexFileName.MatchString(name)
}
