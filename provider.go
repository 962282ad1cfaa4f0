package soep

import "io"

// FileProvider lists metadata files for LoadMetadata.
type FileProvider interface {
	Load(FileProviderCallback) error
}

// FileProviderCallback is called by FileProvider for each file.
type FileProviderCallback func(info FileInfo) error

// FileInfo is a metadata file returned by FileProvider.
type FileInfo struct {
	Name string // file path, relative to the provider root.
	File io.Reader
}
