// Package vfs resolves user-supplied category/path pairs into absolute
// filesystem paths under an account's storage root and guards every
// resolved path against escaping that root.
package vfs

import "path/filepath"

// Category is a fixed logical bucket mapped to a subdirectory of the
// storage root. The mapping is static and never derived from user input.
type Category string

const (
	CategoryGeneral  Category = "general"
	CategoryPhotos   Category = "photos"
	CategoryVideos   Category = "videos"
	CategoryMusic    Category = "music"
	CategoryShared   Category = "shared"
	CategoryTrash    Category = "trash"
	CategoryExternal Category = "external"
)

// categoryDirs is the single source of truth for category to directory
// naming. Every operation goes through this table; handlers must never
// carry their own copy.
var categoryDirs = map[Category]string{
	CategoryGeneral:  "files",
	CategoryPhotos:   "photos",
	CategoryVideos:   "videos",
	CategoryMusic:    "music",
	CategoryShared:   "shared",
	CategoryTrash:    "trash",
	CategoryExternal: "external",
}

// Dir returns the on-disk subdirectory name for a category. Unknown
// categories fall back to the general mapping.
func (c Category) Dir() string {
	if dir, ok := categoryDirs[c]; ok {
		return dir
	}
	return categoryDirs[CategoryGeneral]
}

// Valid reports whether the category is one of the known buckets.
func (c Category) Valid() bool {
	_, ok := categoryDirs[c]
	return ok
}

// Resolve maps (storageRoot, category, relativePath) to an absolute path.
// It is pure path math: deterministic, no filesystem access. The result
// must still pass AssertWithin before any filesystem call.
func Resolve(storageRoot string, category Category, relativePath string) string {
	return filepath.Join(storageRoot, category.Dir(), filepath.FromSlash(relativePath))
}
