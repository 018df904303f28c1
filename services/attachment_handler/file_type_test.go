package attachment_handler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/postmottak/mailroom/internal/enum"
)

func TestDetermineFileType_SupportedExtensions(t *testing.T) {
	cases := map[string]enum.FileType{
		"rapport.pdf":       enum.FileTypePDF,
		"report.PDF":        enum.FileTypePDF,
		"bilde.JPG":         enum.FileTypeJPG,
		"skjerm.png":        enum.FileTypePNG,
		"notat.docx":        enum.FileTypeDOCX,
		"gammelt.doc":       enum.FileTypeDOC,
		"budsjett.xlsx":     enum.FileTypeXLSX,
		"makro.xlsm":        enum.FileTypeXLSM,
		"foredrag.pptx":     enum.FileTypePPTX,
		"arkiv.zip":         enum.FileTypeZIP,
		"dump.gz":           enum.FileTypeGZ,
		"anim.gif":          enum.FileTypeGIF,
		"videresendt.eml":   enum.FileTypeEML,
		"liste.csv":         enum.FileTypeCSV,
		"merknader.txt":     enum.FileTypeTXT,
		"side.3.bilag.xlsx": enum.FileTypeXLSX,
	}

	for filename, expected := range cases {
		fileType, ok := DetermineFileType(filename)
		require.True(t, ok, "filename: %s", filename)
		require.Equal(t, expected, fileType, "filename: %s", filename)
	}
}

func TestDetermineFileType_SpacedExtensions(t *testing.T) {
	for _, filename := range []string{"scan. pdf", "scan.p df", "scan.pd f"} {
		fileType, ok := DetermineFileType(filename)
		require.True(t, ok, "filename: %s", filename)
		require.Equal(t, enum.FileTypePDF, fileType, "filename: %s", filename)
	}
}

func TestDetermineFileType_UnknownExceptionList(t *testing.T) {
	fileType, ok := DetermineFileType("Valgstyrets_møtebok_4649_2021-11-18")
	require.True(t, ok)
	require.Equal(t, enum.FileTypeUnknown, fileType)

	fileType, ok = DetermineFileType("Outlook-Kvafjord k.tif")
	require.True(t, ok)
	require.Equal(t, enum.FileTypeUnknown, fileType)

	fileType, ok = DetermineFileType("data.rda")
	require.True(t, ok)
	require.Equal(t, enum.FileTypeUnknown, fileType)
}

func TestDetermineFileType_Unclassified(t *testing.T) {
	for _, filename := range []string{"", "noextension", "virus.exe", "styles.css"} {
		_, ok := DetermineFileType(filename)
		require.False(t, ok, "filename: %s", filename)
	}
}
