package workflow

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// archiveDateLayout is the dated directory name under the archive root.
const archiveDateLayout = "2006-01-02"

// ArchiveErrorKind classifies an archive failure.
type ArchiveErrorKind string

const (
	// ArchiveNotApplied means the change set has no applied marker.
	ArchiveNotApplied ArchiveErrorKind = "NotApplied"
	// ArchiveAlreadyExists means the destination directory already exists.
	ArchiveAlreadyExists ArchiveErrorKind = "AlreadyExists"
	// ArchiveVerifyFailed means the copied tree did not match the source.
	// The destination was removed and the source left intact.
	ArchiveVerifyFailed ArchiveErrorKind = "VerifyFailed"
	// ArchiveCopyFailed means copying the tree failed partway. The
	// destination was removed and the source left intact.
	ArchiveCopyFailed ArchiveErrorKind = "CopyFailed"
)

// ArchiveError is the typed failure of one archive operation.
type ArchiveError struct {
	Kind ArchiveErrorKind
	Path string
	Err  error
}

// Error implements error.
func (e *ArchiveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("archive %s (%s): %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("archive %s: %s", e.Kind, e.Path)
}

// Unwrap exposes the underlying error, if any.
func (e *ArchiveError) Unwrap() error {
	return e.Err
}

// Archiver moves applied change sets into the dated archive tree. Archiving
// copies first, verifies byte-for-byte, and only then deletes the source, so
// it can never lose data.
type Archiver struct {
	mgr    *Manager
	logger *slog.Logger
	root   string
}

// NewArchiver creates an archiver over the given store, archiving into the
// store's own archive tree.
func NewArchiver(mgr *Manager, logger *slog.Logger) *Archiver {
	return NewArchiverWithRoot(mgr, logger, "")
}

// NewArchiverWithRoot creates an archiver that writes to the given archive
// root instead of the store's. Empty root means the store default.
func NewArchiverWithRoot(mgr *Manager, logger *slog.Logger, root string) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if root == "" {
		root = mgr.ArchivePath()
	}
	return &Archiver{mgr: mgr, logger: logger, root: root}
}

// Archive moves a change set to <archiveRoot>/<date>/<slug>. date may be
// empty, in which case today's UTC date is used. Returns the archived path.
func (ar *Archiver) Archive(slug, date string) (string, error) {
	source := ar.mgr.ChangePath(slug)
	if info, err := os.Stat(source); err != nil || !info.IsDir() {
		return "", fmt.Errorf("change '%s' not found", slug)
	}

	if !ar.mgr.IsApplied(slug) {
		return "", &ArchiveError{Kind: ArchiveNotApplied, Path: source}
	}

	if date == "" {
		date = time.Now().UTC().Format(archiveDateLayout)
	} else if _, err := time.Parse(archiveDateLayout, date); err != nil {
		return "", fmt.Errorf("invalid date %q: expected YYYY-MM-DD", date)
	}

	dest := filepath.Join(ar.root, date, slug)
	if _, err := os.Stat(dest); err == nil {
		return "", &ArchiveError{Kind: ArchiveAlreadyExists, Path: dest}
	}

	if err := copyTree(source, dest); err != nil {
		os.RemoveAll(dest)
		return "", &ArchiveError{Kind: ArchiveCopyFailed, Path: dest, Err: err}
	}

	if err := verifyTree(source, dest); err != nil {
		os.RemoveAll(dest)
		return "", &ArchiveError{Kind: ArchiveVerifyFailed, Path: dest, Err: err}
	}

	// Record the terminal status in the archived copy before the source
	// disappears.
	ar.markArchived(dest)

	if err := os.RemoveAll(source); err != nil {
		// The copy is verified; a half-deleted source is recoverable by hand.
		return dest, fmt.Errorf("archived to %s but failed to remove source: %w", dest, err)
	}

	ar.logger.Info("change archived", "change", slug, "dest", dest)
	return dest, nil
}

// markArchived updates metadata.json in the archived copy to the archived
// status. Best-effort: a change without metadata stays without it.
func (ar *Archiver) markArchived(dest string) {
	metadataPath := filepath.Join(dest, MetadataFile)
	if !fileExists(metadataPath) {
		return
	}

	data, err := os.ReadFile(metadataPath)
	if err != nil {
		ar.logger.Warn("could not update archived metadata", "path", metadataPath, "error", err)
		return
	}
	var change Change
	if err := json.Unmarshal(data, &change); err != nil {
		ar.logger.Warn("could not update archived metadata", "path", metadataPath, "error", err)
		return
	}
	change.Status = StatusArchived
	change.UpdatedAt = time.Now()

	out, err := json.MarshalIndent(&change, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(metadataPath, out, 0644); err != nil {
		ar.logger.Warn("could not update archived metadata", "path", metadataPath, "error", err)
	}
}

// copyTree copies a directory tree, preserving file modes.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

// verifyTree checks that every file under src exists under dst with the
// same size and content hash.
func verifyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		srcInfo, err := os.Stat(path)
		if err != nil {
			return err
		}
		dstInfo, err := os.Stat(target)
		if err != nil {
			return fmt.Errorf("missing from copy: %s", rel)
		}
		if srcInfo.Size() != dstInfo.Size() {
			return fmt.Errorf("size mismatch for %s: %d != %d", rel, srcInfo.Size(), dstInfo.Size())
		}

		srcHash, err := hashFile(path)
		if err != nil {
			return err
		}
		dstHash, err := hashFile(target)
		if err != nil {
			return err
		}
		if srcHash != dstHash {
			return fmt.Errorf("content mismatch for %s", rel)
		}
		return nil
	})
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
