package watcher

// FilesystemType is a best-effort classification of the filesystem
// holding a watched path.
type FilesystemType string

const (
	FSTypeUnknown FilesystemType = "unknown"
	FSTypeLocal   FilesystemType = "local"
	FSTypeNFS     FilesystemType = "nfs"
	FSTypeSMB     FilesystemType = "smb"
	FSTypeFUSE    FilesystemType = "fuse"
	FSTypeNineP   FilesystemType = "9p"
)

// isRemoteFilesystem reports whether inotify-style events are unreliable
// on fs, in which case the watcher polls instead.
func isRemoteFilesystem(fs FilesystemType) bool {
	switch fs {
	case FSTypeNFS, FSTypeSMB, FSTypeFUSE, FSTypeNineP:
		return true
	default:
		return false
	}
}
