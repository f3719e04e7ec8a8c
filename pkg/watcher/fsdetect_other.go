//go:build !linux

package watcher

// DetectFilesystemType is not implemented off Linux; fsnotify is tried first
// and polling remains the fallback.
func DetectFilesystemType(string) FilesystemType {
	return FSTypeUnknown
}
