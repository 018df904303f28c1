package attachment_handler

import (
	"path/filepath"
	"strings"

	"github.com/postmottak/mailroom/internal/enum"
)

// Scanned filenames sometimes arrive with a space inside the extension.
var spacedExtensionFixes = strings.NewReplacer(
	". pdf", ".pdf",
	".p df", ".pdf",
	".pd f", ".pdf",
)

// Filenames known to be real attachments despite an unsupported or missing
// extension. Matched by prefix or suffix against the lower-cased name.
var unknownTypePrefixes = []string{
	"valgstyrets_møtebok_4649_2021-11-18",
	"outlook-kvafjord k",
}

var unknownTypeSuffixes = []string{
	".rda",
}

// DetermineFileType classifies a filename against the supported extension
// allow-list. Returns FileTypeUnknown for the historical exception list,
// and ok=false when the name does not classify at all.
func DetermineFileType(filename string) (enum.FileType, bool) {
	if filename == "" {
		return "", false
	}

	name := strings.ToLower(filename)
	name = spacedExtensionFixes.Replace(name)

	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	for _, t := range enum.SupportedFileTypes {
		if ext == string(t) {
			return t, true
		}
	}

	for _, prefix := range unknownTypePrefixes {
		if strings.HasPrefix(name, prefix) {
			return enum.FileTypeUnknown, true
		}
	}
	for _, suffix := range unknownTypeSuffixes {
		if strings.HasSuffix(name, suffix) {
			return enum.FileTypeUnknown, true
		}
	}

	return "", false
}
