package artifact

import (
	"bytes"
	"context"
	"crypto"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/semenovdl/review-stand/internal/logger"

	// Ensure SHA-256 is available for checksum calculation.
	_ "crypto/sha256"
)

// ChecksumFunction is used to calculate artifact digests.
// It matches the digests recorded in the settings file (sha256sum output).
const ChecksumFunction crypto.Hash = crypto.SHA256

// DataFileMode is the permission applied to acquired dataset artifacts.
const DataFileMode os.FileMode = 0o644

var (
	// ErrDigestMismatch reports an artifact whose content does not match its
	// expected digest after a fetch attempt. It is fatal and never retried.
	ErrDigestMismatch = errors.New("artifact digest mismatch after fetch")

	// errHashUnavailable is returned when the checksum function is not linked in.
	errHashUnavailable = errors.New("hash function unavailable")
)

// FetchFunc produces the artifact content into the provided temporary path.
// It is only called when the target is missing or fails its digest check.
type FetchFunc func(ctx context.Context, tmpPath string) error

// FileChecksum returns the digest bytes for a file using ChecksumFunction.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	if !ChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := ChecksumFunction.New()
	if _, err = hasher.Write(contents); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// Verify reports whether the file at path exists and matches the hex digest.
// A missing file and a digest mismatch are the same state: not acquired.
func Verify(path, hexDigest string) (bool, error) {
	expected, err := hex.DecodeString(hexDigest)
	if err != nil {
		return false, fmt.Errorf("decode expected digest: %w", err)
	}

	if _, err = os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("stat artifact: %w", err)
	}

	actual, err := FileChecksum(path)
	if err != nil {
		return false, err
	}

	return bytes.Equal(expected, actual), nil
}

// Ensure makes sure the artifact at path matches the expected digest.
// When the file is missing or corrupt, fetch is invoked once and the result is
// verified and applied atomically; a mismatch after fetching is fatal.
// A correct file already in place is left untouched.
func Ensure(ctx context.Context, path, hexDigest string, fetch FetchFunc) error {
	ok, err := Verify(path, hexDigest)
	if err != nil {
		return err
	}

	if ok {
		logger.InfoKV(ctx, "Artifact already acquired", "path", path)
		return nil
	}

	logger.InfoKV(ctx, "Artifact missing or corrupt, fetching", "path", path)

	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".fetch-*")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}

	tmpPath := tmpFile.Name()

	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}

	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if err = fetch(ctx, tmpPath); err != nil {
		return fmt.Errorf("fetch artifact: %w", err)
	}

	if err = apply(path, hexDigest, tmpPath); err != nil {
		return err
	}

	logger.InfoKV(ctx, "Artifact acquired", "path", path)

	return nil
}

// apply moves verified content into place. The checksum is validated by
// go-update before the target is touched, so a bad download never lands at
// the target path.
func apply(path, hexDigest, tmpPath string) error {
	expected, err := hex.DecodeString(hexDigest)
	if err != nil {
		return fmt.Errorf("decode expected digest: %w", err)
	}

	data, err := os.ReadFile(filepath.Clean(tmpPath))
	if err != nil {
		return fmt.Errorf("read fetched artifact: %w", err)
	}

	hasher := ChecksumFunction.New()
	_, _ = hasher.Write(data)

	if !bytes.Equal(expected, hasher.Sum(nil)) {
		return fmt.Errorf("%w: %s", ErrDigestMismatch, path)
	}

	if _, err = os.Stat(path); err != nil && errors.Is(err, os.ErrNotExist) {
		var placeholder *os.File

		if placeholder, err = os.Create(path); err != nil {
			return fmt.Errorf("create artifact target: %w", err)
		}

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("close artifact target: %w", err)
		}
	}

	options := goupdate.Options{
		TargetPath: path,
		TargetMode: DataFileMode,
		Checksum:   expected,
		Hash:       ChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		// Leftover backup from a failed apply.
		_ = os.Remove(path + ".old")

		return fmt.Errorf("apply artifact: %w", err)
	}

	_ = os.Remove(path + ".old")

	return nil
}
