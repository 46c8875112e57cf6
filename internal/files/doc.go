// Package files provides the file system operations behind config export and
// game data loading. Relative paths resolve against a base directory.
//
// Writes go through a temporary file in the destination directory followed by
// a rename, so readers never observe a half-written document.
package files
