package enum

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeDOCX FileType = "docx"
	FileTypeDOC  FileType = "doc"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLSM FileType = "xlsm"
	FileTypePPTX FileType = "pptx"
	FileTypeZIP  FileType = "zip"
	FileTypeGZ   FileType = "gz"
	FileTypeGIF  FileType = "gif"
	FileTypeEML  FileType = "eml"
	FileTypeCSV  FileType = "csv"
	FileTypeTXT  FileType = "txt"

	// FileTypeUnknown marks attachments from the historical exception list
	// that are kept even though their extension is not supported.
	FileTypeUnknown FileType = "UNKNOWN"
)

func (t FileType) String() string {
	return string(t)
}

// SupportedFileTypes is the fixed allow-list of attachment extensions.
// Extend by adding an entry here.
var SupportedFileTypes = []FileType{
	FileTypePDF, FileTypeJPG, FileTypePNG, FileTypeDOCX, FileTypeDOC,
	FileTypeXLSX, FileTypeXLSM, FileTypePPTX, FileTypeZIP, FileTypeGZ,
	FileTypeGIF, FileTypeEML, FileTypeCSV, FileTypeTXT,
}
