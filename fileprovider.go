package soep

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
)

// MetadataFileSuffix is the extension of metadata files.
const MetadataFileSuffix = ".meta.yaml"

type FSFileProviderOption func(*fsFileProvider)

type fsFileProvider struct {
	fs      fs.FS
	suffix  string
	include func(path string, entry fs.DirEntry) bool
}

// NewDirectoryFileProvider creates a [FileProvider] that list files from a directory, sorted by name.
// Only files with the ".meta.yaml" extension are returned.
// Returned file names are relative to the rootDir.
func NewDirectoryFileProvider(rootDir string, options ...FSFileProviderOption) FileProvider {
	return NewFSFileProvider(os.DirFS(rootDir), options...)
}

// NewFSFileProvider creates a [FileProvider] that list files from a [fs.FS], sorted by name. Files of a directory
// are returned before the files of its subdirectories.
// Only files with the ".meta.yaml" extension are returned.
func NewFSFileProvider(fsys fs.FS, options ...FSFileProviderOption) FileProvider {
	ret := &fsFileProvider{
		fs:     fsys,
		suffix: MetadataFileSuffix,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.include == nil {
		ret.include = func(string, fs.DirEntry) bool {
			return true
		}
	}
	return ret
}

// WithDirectoryIncludeFunc sets a callback to allow choosing files that will be read.
// Check entry [fs.DirEntry.IsDir] to detect files or directories.
func WithDirectoryIncludeFunc(include func(path string, entry fs.DirEntry) bool) FSFileProviderOption {
	return func(provider *fsFileProvider) {
		provider.include = include
	}
}

// WithFileSuffix changes the extension of the returned files.
func WithFileSuffix(suffix string) FSFileProviderOption {
	return func(provider *fsFileProvider) {
		provider.suffix = suffix
	}
}

func (d fsFileProvider) Load(f FileProviderCallback) error {
	return d.loadFiles(".", f)
}

func (d fsFileProvider) loadFiles(currentPath string, f FileProviderCallback) error {
	files, err := d.readDirSorted(currentPath)
	if err != nil {
		return fmt.Errorf("error reading directory '%s': %w", currentPath, err)
	}

	var dirs []string

	for _, file := range files {
		if !d.include(currentPath, file) {
			continue
		}

		fullPath := path.Join(currentPath, file.Name())

		if file.IsDir() {
			dirs = append(dirs, file.Name())
			continue
		}

		if !strings.HasSuffix(file.Name(), d.suffix) {
			continue
		}

		localFile, err := d.fs.Open(fullPath)
		if err != nil {
			return fmt.Errorf("error opening file '%s': %w", fullPath, err)
		}

		err = f(FileInfo{
			Name: fullPath,
			File: localFile,
		})

		fileErr := localFile.Close()
		if fileErr != nil {
			return errors.Join(fmt.Errorf("error closing file '%s': %w", fullPath, fileErr), err)
		}

		if err != nil {
			return fmt.Errorf("error processing file '%s': %w", fullPath, err)
		}
	}

	for _, dir := range dirs {
		err := d.loadFiles(path.Join(currentPath, dir), f)
		if err != nil {
			return err
		}
	}

	return nil
}

func (d fsFileProvider) readDirSorted(currentPath string) ([]fs.DirEntry, error) {
	files, err := fs.ReadDir(d.fs, currentPath)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b fs.DirEntry) int {
		return cmp.Compare(a.Name(), b.Name())
	})

	return files, nil
}

// NewStringFileProvider creates a [FileProvider] that simulates a file for each string, in the array order.
// Files are named after the module names, which are used as the default module of their variables.
func NewStringFileProvider(modules []string, files []string) FileProvider {
	return &stringFileProvider{modules: modules, files: files}
}

type stringFileProvider struct {
	modules []string
	files   []string
}

func (s stringFileProvider) Load(callback FileProviderCallback) error {
	for idx, data := range s.files {
		name := fmt.Sprintf("%03d-file", idx)
		if idx < len(s.modules) {
			name = s.modules[idx]
		}
		err := callback(FileInfo{
			Name: name + MetadataFileSuffix,
			File: strings.NewReader(data),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
