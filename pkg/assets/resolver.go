// Package assets finds legacy media files on disk and attaches them to store documents.
package assets

import (
	"io/fs"
	"path"
	"strings"
)

// Directory layout of the legacy files export.
const (
	coverDir     = "mod_eshop/produkty"
	coverFullDir = "mod_eshop/produkty/full"
	ebookDir     = "mod_eknihy"
	photoDir     = "mod_eshop/znacka"
)

// Resolver maps catalog file references to paths inside the files tree.
// A zero path with false means the file is not present.
type Resolver struct {
	files fs.FS
}

func NewResolver(files fs.FS) *Resolver {
	return &Resolver{files: files}
}

// FS returns the underlying filesystem.
func (r *Resolver) FS() fs.FS {
	return r.files
}

// Cover resolves a cover reference, preferring the full-size image.
func (r *Resolver) Cover(ref string) (string, bool) {
	if !validName(ref) {
		return "", false
	}
	for _, dir := range []string{coverFullDir, coverDir} {
		p := path.Join(dir, ref+".jpg")
		if r.exists(p) {
			return p, true
		}
	}
	return "", false
}

// Ebook resolves an e-book filename.
func (r *Resolver) Ebook(filename string) (string, bool) {
	return r.lookup(ebookDir, filename)
}

// Photo resolves an author photo filename.
func (r *Resolver) Photo(filename string) (string, bool) {
	return r.lookup(photoDir, filename)
}

func (r *Resolver) lookup(dir, filename string) (string, bool) {
	if !validName(filename) {
		return "", false
	}
	p := path.Join(dir, filename)
	if !r.exists(p) {
		return "", false
	}
	return p, true
}

func (r *Resolver) exists(p string) bool {
	if r.files == nil {
		return false
	}
	info, err := fs.Stat(r.files, p)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// validName rejects references that would escape their directory.
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return false
	}
	return name != "." && name != ".."
}
