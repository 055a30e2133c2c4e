package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Thresholds for the required checks.
const (
	// MinDiskSpaceBytes is the free space required in the data directory.
	MinDiskSpaceBytes = 100 * 1024 * 1024
	// MinFileDescriptors keeps fsnotify watch mode usable on large vaults.
	MinFileDescriptors = 1024
)

// CheckWritePermissions creates the data directory if needed and writes a
// probe file into it.
func (c *Checker) CheckWritePermissions(dataDir string) Result {
	result := Result{Name: "data_dir", Required: true, Details: dataDir}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create data directory: %v", err)
		return result
	}

	probe := filepath.Join(dataDir, ".docrag-preflight")
	f, err := os.Create(probe)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = f.Close()
	_ = os.Remove(probe)

	result.Status = StatusPass
	result.Message = "writable"
	return result
}

// CheckDiskSpace requires MinDiskSpaceBytes free at path.
func (c *Checker) CheckDiskSpace(path string) Result {
	result := Result{Name: "disk_space", Required: true}

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("failed to check disk space: %v", err)
		return result
	}

	available := stat.Bavail * uint64(stat.Bsize)
	result.Message = fmt.Sprintf("%s free (minimum: 100 MB)", formatBytes(available))
	if available < MinDiskSpaceBytes {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// CheckFileDescriptors warns when the open file limit is low. fsnotify
// holds one descriptor per watched directory.
func (c *Checker) CheckFileDescriptors() Result {
	result := Result{Name: "file_descriptors"}

	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("failed to check file descriptor limit: %v", err)
		return result
	}

	result.Message = fmt.Sprintf("%d (recommended: %d)", limit.Cur, MinFileDescriptors)
	if limit.Cur < MinFileDescriptors {
		result.Status = StatusWarn
		result.Details = "run 'ulimit -n 10240' or use 'docrag watch --poll'"
		return result
	}
	result.Status = StatusPass
	return result
}
