package client

import (
	"crypto/md5" //nolint:gosec // job ids are cache keys, not security tokens
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ResolveSource returns the canonical absolute path of src and its mtime in
// Unix seconds. A source that cannot be stat'ed has mtime 0.
func ResolveSource(src string) (string, int64, error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", 0, fmt.Errorf("failed to resolve %s: %w", src, err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}

	var mtime int64
	if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
		mtime = info.ModTime().Unix()
	}
	return abs, mtime, nil
}

// JobID derives the thumbnail id from the canonical source path, its mtime
// and the target size, so a changed source or size gets a new thumbnail.
func JobID(absSrc string, mtime int64, width, height int) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%dx%d", absSrc, mtime, width, height))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// ThumbnailPath is where the thumbnail for id is written
func ThumbnailPath(dstDir, id, ext string) string {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return filepath.Join(dstDir, id+strings.ToLower(ext))
}

// Slug builds a readable link stem from a display name and the first 13
// characters of the job id. It returns "" when name has no usable characters.
func Slug(name, id string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	stem := strings.TrimRight(b.String(), "-")
	if stem == "" {
		return ""
	}
	if len(id) > 13 {
		id = id[:13]
	}
	return stem + "_" + id
}

// Link points linkDir/<slug><ext> at thumb, replacing an existing link.
func Link(thumb, linkDir, slug string) (string, error) {
	if err := os.MkdirAll(linkDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create link directory: %w", err)
	}

	link := filepath.Join(linkDir, slug+filepath.Ext(thumb))
	if existing, err := os.Readlink(link); err == nil && existing == thumb {
		return link, nil
	}
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to replace link %s: %w", link, err)
	}
	if err := os.Symlink(thumb, link); err != nil {
		return "", fmt.Errorf("failed to create link %s: %w", link, err)
	}
	return link, nil
}
