//go:build linux

package watcher

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Filesystem magic numbers from statfs(2).
const (
	magicNFS   = 0x6969
	magicSMB   = 0x517b
	magicCIFS  = 0xff534d42
	magicSMB2  = 0xfe534d42
	magicFUSE  = 0x65735546
	magicNineP = 0x01021997
)

// DetectFilesystemType classifies the filesystem holding path. A missing
// file is classified by its parent directory.
func DetectFilesystemType(path string) FilesystemType {
	target := path
	if _, err := os.Stat(target); err != nil {
		target = filepath.Dir(path)
	}

	var st unix.Statfs_t
	if err := unix.Statfs(target, &st); err != nil {
		return FSTypeUnknown
	}

	switch uint32(st.Type) {
	case magicNFS:
		return FSTypeNFS
	case magicSMB, magicCIFS, magicSMB2:
		return FSTypeSMB
	case magicFUSE:
		return FSTypeFUSE
	case magicNineP:
		return FSTypeNineP
	default:
		return FSTypeLocal
	}
}
