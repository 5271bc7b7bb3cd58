package fs

import (
	"archive/tar"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/bft-labs/jobagent/internal/domain"
)

// ChecksumSuffix is appended to the archive path to name its checksum file.
const ChecksumSuffix = ".b3"

// Archiver implements ports.Archiver with zstd compressed tar archives and
// BLAKE3 checksums.
type Archiver struct {
	level zstd.EncoderLevel
}

// NewArchiver creates an Archiver using the default zstd level.
func NewArchiver() *Archiver {
	return &Archiver{level: zstd.SpeedDefault}
}

// Manifest lists the regular files under root, sorted by path. Paths are
// slash separated and relative to root.
func (a *Archiver) Manifest(ctx context.Context, root string) ([]domain.ManifestEntry, error) {
	var entries []domain.ManifestEntry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		entries = append(entries, domain.ManifestEntry{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			Mode:    info.Mode().Perm(),
			ModTime: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Write archives entries into dest. The archive is written to a temporary
// file and renamed into place once complete.
func (a *Archiver) Write(ctx context.Context, root string, entries []domain.ManifestEntry, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create archive directory: %w", err)
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create archive: %w", err)
	}
	defer os.Remove(tmp)

	if err := a.writeTo(ctx, f, root, entries); err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return 0, fmt.Errorf("sync archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return 0, fmt.Errorf("rename archive: %w", err)
	}
	return info.Size(), nil
}

func (a *Archiver) writeTo(ctx context.Context, w io.Writer, root string, entries []domain.ManifestEntry) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(a.level))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	tw := tar.NewWriter(zw)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := addFile(tw, root, e); err != nil {
			zw.Close()
			return err
		}
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		return fmt.Errorf("finalize tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zstd: %w", err)
	}
	return nil
}

func addFile(tw *tar.Writer, root string, e domain.ManifestEntry) error {
	var src io.Reader
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(e.Path)))
	switch {
	case err == nil:
		defer f.Close()
		src = f
	case errors.Is(err, fs.ErrNotExist):
		// Removed after the manifest was taken.
		src = strings.NewReader("")
	default:
		return fmt.Errorf("open %s: %w", e.Path, err)
	}

	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     e.Path,
		Size:     e.Size,
		Mode:     int64(e.Mode),
		ModTime:  e.ModTime,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", e.Path, err)
	}
	// Exactly the manifest size is archived. Growth past it is dropped and
	// a file truncated since the manifest is padded with zeros.
	n, err := io.CopyN(tw, src, e.Size)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("copy %s: %w", e.Path, err)
	}
	if n < e.Size {
		if _, err := io.CopyN(tw, zeroReader{}, e.Size-n); err != nil {
			return fmt.Errorf("pad %s: %w", e.Path, err)
		}
	}
	return nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// Checksum writes the BLAKE3 digest of archivePath to archivePath+".b3" in
// the "<hex>  <name>" layout used by checksum tools.
func (a *Archiver) Checksum(ctx context.Context, archivePath string) (string, string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", "", fmt.Errorf("hash archive: %w", err)
	}
	sum := hex.EncodeToString(h.Sum(nil))

	path := archivePath + ChecksumSuffix
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(archivePath))
	if err := writeFileAtomic(path, []byte(line), 0o644); err != nil {
		return "", "", fmt.Errorf("write checksum: %w", err)
	}
	return sum, path, nil
}
