//go:build unix

package weights

import (
	"os"
	"syscall"
)

func mmapFile(f *os.File, size int64) ([]byte, func() error, error) {
	data, err := syscall.Mmap(
		int(f.Fd()), //nolint:gosec // G115: file descriptor fits in int
		0,
		int(size), //nolint:gosec // G115: file size comes from Stat
		syscall.PROT_READ,
		syscall.MAP_SHARED,
	)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return syscall.Munmap(data) }, nil
}
