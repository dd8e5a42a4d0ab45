package teacher

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/irsalhamdi/learnhub/random"
)

var ErrFileTooLarge = errors.New("uploaded file is too large")

// Uploads stores applicant files on local disk.
type Uploads struct {
	Dir     string
	MaxSize int64
}

// Save copies the uploaded file under Dir/sub with a random prefix and
// returns its path relative to Dir.
func (u Uploads) Save(sub string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > u.MaxSize {
		return "", fmt.Errorf("%w: %s is %d bytes, the limit is %d", ErrFileTooLarge, fh.Filename, fh.Size, u.MaxSize)
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("opening upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	prefix, err := random.String(12)
	if err != nil {
		return "", err
	}
	rel := filepath.Join(sub, prefix+"_"+cleanName(fh.Filename))

	if err := os.MkdirAll(filepath.Join(u.Dir, sub), 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}

	dst, err := os.OpenFile(filepath.Join(u.Dir, rel), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", rel, err)
	}

	n, err := io.Copy(dst, io.LimitReader(src, u.MaxSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > u.MaxSize {
		err = fmt.Errorf("%w: %s", ErrFileTooLarge, fh.Filename)
	}
	if err != nil {
		os.Remove(filepath.Join(u.Dir, rel))
		return "", err
	}

	return rel, nil
}

// cleanName keeps the base name of an uploaded file, restricted to a safe
// character set.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)

	if clean == "" || clean == "." || clean == ".." {
		return "file"
	}
	return clean
}
