package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"svoextract/internal/framesource"
	"svoextract/internal/textutil"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minFree bytes available.
func CheckFreeSpace(name, path string, minFree uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free on %s", textutil.FormatBytes(free), path)
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s (need %s)", detail, textutil.FormatBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckBackend verifies the configured frame source backend is registered.
func CheckBackend(name string) Result {
	const label = "Frame source backend"
	if _, err := framesource.Lookup(name); err != nil {
		return Result{Name: label, Detail: err.Error()}
	}
	return Result{Name: label, Passed: true, Detail: fmt.Sprintf("%s registered", name)}
}
