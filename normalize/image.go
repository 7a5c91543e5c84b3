package normalize

import (
	"encoding/base64"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Desarso/docassist/models"
)

// DefaultImageMediaType is used when neither the extension nor the content
// identifies the image.
const DefaultImageMediaType = "image/jpeg"

func (n *Normalizer) normalizeImage(upload models.Upload) (models.NormalizedInput, error) {
	result := models.NormalizedInput{Kind: models.InputImage}
	if len(upload.Data) == 0 {
		result.MediaType = mediaTypeFromExtension(upload.Filename)
		return result, nil
	}
	result.MediaType = DetectImageType(upload.Filename, upload.Data)
	result.Base64 = base64.StdEncoding.EncodeToString(upload.Data)
	return result, nil
}

// DetectImageType picks the media type of an image. The extension decides
// unless the bytes sniff as a different image type.
func DetectImageType(filename string, data []byte) string {
	declared := mediaTypeFromExtension(filename)
	if len(data) > 0 {
		sniffed := mimetype.Detect(data).String()
		if i := strings.IndexByte(sniffed, ';'); i >= 0 {
			sniffed = sniffed[:i]
		}
		if strings.HasPrefix(sniffed, "image/") && sniffed != declared {
			return sniffed
		}
	}
	if declared == "" {
		return DefaultImageMediaType
	}
	return declared
}
