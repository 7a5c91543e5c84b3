package normalize

import (
	"path/filepath"
	"strings"

	"github.com/Desarso/docassist/models"
)

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// DeclaredTypeFor maps a filename to the declared type of the upload,
// using only its extension.
func DeclaredTypeFor(filename string) models.DeclaredType {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".pdf" {
		return models.DeclaredPDF
	}
	if _, ok := imageExtensions[ext]; ok {
		return models.DeclaredImage
	}
	return models.DeclaredUnsupported
}

// mediaTypeFromExtension returns the image media type implied by the
// extension, or "" when the extension is not a known image type.
func mediaTypeFromExtension(filename string) string {
	return imageExtensions[strings.ToLower(filepath.Ext(filename))]
}
