// Package files stores chat attachments on local disk under
// chat_files/{room_id}/{sanitized_name}.
package files

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"

	"github.com/arhamfareed106/Social-Network-Platform/internal/store"
)

const (
	// DirPrefix is the first segment of every attachment path.
	DirPrefix = "chat_files"

	maxNameRunes = 120
	hashLen      = 8
)

var errCollision = errors.New("name taken by different content")

// Disk implements store.BlobStore rooted at a media directory.
type Disk struct {
	root string
	mu   sync.Mutex
}

// NewDisk creates a disk blob store. The root is created lazily on first write.
func NewDisk(root string) *Disk {
	return &Disk{root: root}
}

// Root returns the media directory.
func (d *Disk) Root() string {
	return d.root
}

// Put writes content exactly once. Identical bytes already stored under the same
// name are reused; different bytes get a content-hash suffix.
func (d *Disk) Put(ctx context.Context, roomID int64, name string, content []byte) (store.FileAttachment, bool, error) {
	if err := ctx.Err(); err != nil {
		return store.FileAttachment{}, false, err
	}

	rel := path.Join(DirPrefix, strconv.FormatInt(roomID, 10), SanitizeName(name))

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.fullPath(path.Dir(rel)), 0o755); err != nil {
		return store.FileAttachment{}, false, fmt.Errorf("create attachment dir: %w", err)
	}

	created, err := d.writeOnce(rel, content)
	if errors.Is(err, errCollision) {
		rel = withSuffix(rel, contentHash(content))
		created, err = d.writeOnce(rel, content)
	}
	if err != nil {
		return store.FileAttachment{}, false, fmt.Errorf("write attachment %s: %w", rel, err)
	}

	return store.FileAttachment{
		Path:        rel,
		Size:        int64(len(content)),
		ContentType: mimetype.Detect(content).String(),
	}, created, nil
}

// Remove deletes a stored attachment.
func (d *Disk) Remove(rel string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := os.Remove(d.fullPath(rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove attachment: %w", err)
	}
	return nil
}

func (d *Disk) writeOnce(rel string, content []byte) (bool, error) {
	full := d.fullPath(rel)

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, fs.ErrExist) {
		existing, readErr := os.ReadFile(full)
		if readErr != nil {
			return false, readErr
		}
		if bytes.Equal(existing, content) {
			return false, nil
		}
		return false, errCollision
	}
	if err != nil {
		return false, err
	}

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return false, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(full)
		return false, err
	}
	return true, nil
}

func (d *Disk) fullPath(rel string) string {
	return filepath.Join(d.root, filepath.FromSlash(path.Clean("/"+rel)))
}

// SanitizeName reduces an uploaded file name to a safe single path segment.
func SanitizeName(name string) string {
	name = norm.NFKC.String(name)
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		return "file"
	}

	if runes := []rune(clean); len(runes) > maxNameRunes {
		ext := path.Ext(clean)
		if len([]rune(ext)) >= maxNameRunes {
			ext = ""
		}
		base := []rune(strings.TrimSuffix(clean, ext))
		clean = string(base[:maxNameRunes-len([]rune(ext))]) + ext
	}
	return clean
}

func contentHash(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:])[:hashLen]
}

func withSuffix(rel, suffix string) string {
	ext := path.Ext(rel)
	return strings.TrimSuffix(rel, ext) + "-" + suffix + ext
}
