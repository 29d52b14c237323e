package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const fingerprintWindow = 2048

// CalculateFileFingerprint returns the CRC32 of the first and last 2KB of a
// file. Edits that keep size and mtime still change the fingerprint when
// they touch either end.
func CalculateFileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}

	hash := crc32.NewIEEE()
	size := stat.Size()
	if size <= 2*fingerprintWindow {
		if _, err := io.Copy(hash, file); err != nil {
			return "", err
		}
		return fmt.Sprintf("%08x", hash.Sum32()), nil
	}

	if _, err := io.CopyN(hash, file, fingerprintWindow); err != nil {
		return "", err
	}
	if _, err := file.Seek(-fingerprintWindow, io.SeekEnd); err != nil {
		return "", err
	}
	if _, err := io.CopyN(hash, file, fingerprintWindow); err != nil {
		return "", err
	}
	return fmt.Sprintf("%08x", hash.Sum32()), nil
}
