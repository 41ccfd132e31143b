package service

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Extension of a downloaded file
type Extension string

// Some supported extensions
const (
	NoExtension    Extension = "" // The file has no extension
	ExtensionGTiff Extension = "tif"
)

func WithExt(filePath string, ext Extension) string {
	filePath = strings.TrimSuffix(filePath, filepath.Ext(filePath))
	if ext != "" {
		return fmt.Sprintf("%s.%s", filePath, string(ext))
	}
	return filePath
}

func GetExt(filePath string) Extension {
	ext := path.Ext(filePath)
	if ext == "" {
		return NoExtension
	}
	return Extension(ext[1:])
}

// ExtEqualFold returns whether the extension of filePath is ext, up to case
func ExtEqualFold(filePath string, ext Extension) bool {
	return strings.EqualFold(string(GetExt(filePath)), string(ext))
}
