package share

import (
	"path/filepath"
	"strings"

	"github.com/marmos91/dittoshare/pkg/metadata"
)

// App is the application name used for on-disk names.
const App = "dittoshare"

// On-disk layout below the share root.
const (
	AppDirName      = "." + App
	StaticName      = "static"
	DatabaseName    = "database"
	FilesDir        = "files"
	TransactionsDir = "transactions"
	ReadmeName      = App + "-share-readme.txt"
)

const readmeText = "Do not modify the contents of this directory.\n\n" +
	"This directory is the unmounted data for a " + App + " share.  " +
	"Modifying the contents could cause data corruption.  " +
	"It is safe to move and change the ownership for this folder " +
	"(but not its permissions or contents).\n"

// AppDir returns the internal data directory of the share at root.
func AppDir(root string) string { return filepath.Join(root, AppDirName) }

// ValidateFilename reports whether name can be used as an instance name
// or a path component. Empty names, NUL and '/' are always rejected; unless
// strange is set, so are the characters Windows forbids: \ : * ? " < > |
func ValidateFilename(name string, strange bool) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch r {
		case 0, '/':
			return false
		case '\\', ':', '*', '?', '"', '<', '>', '|':
			if !strange {
				return false
			}
		}
	}
	return true
}

// cleanSharePath validates an absolute logical path and returns it cleaned.
func cleanSharePath(p string, strange bool) (string, error) {
	if !strings.HasPrefix(p, "/") {
		return "", userErr(metadata.ErrInvalidArgument, p, "path must be absolute")
	}
	clean := metadata.CleanPath(p)
	if clean == "/" {
		return clean, nil
	}
	for _, part := range strings.Split(clean[1:], "/") {
		if !ValidateFilename(part, strange) {
			return "", userErr(metadata.ErrInvalidArgument, p, "path component %q contains invalid characters", part)
		}
	}
	return clean, nil
}
