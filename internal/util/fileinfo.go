package util

import (
	"fmt"
	"os"
	"syscall"
)

// FileInfo identifies one version of an input file.
type FileInfo struct {
	ModTime int64  `json:"mod_time"` // Last modification time in Unix nanoseconds
	Size    int64  `json:"size"`     // File size in bytes
	Inode   uint64 `json:"inode"`    // Inode number (unique file identifier on Unix-like systems)
}

// Same reports whether two infos describe the same file version.
func (f FileInfo) Same(other FileInfo) bool {
	return f.ModTime == other.ModTime && f.Size == other.Size && f.Inode == other.Inode
}

// GetFileInfo retrieves modification time, size and inode for path.
// Supported on Linux and macOS.
func GetFileInfo(path string) (*FileInfo, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	sysStat, ok := stat.Sys().(*syscall.Stat_t)
	if !ok {
		return nil, fmt.Errorf("failed to get file system information: %s", path)
	}

	return &FileInfo{
		ModTime: stat.ModTime().UnixNano(),
		Size:    stat.Size(),
		Inode:   sysStat.Ino,
	}, nil
}
