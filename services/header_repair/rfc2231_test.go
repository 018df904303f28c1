package header_repair

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeExtendedValue(t *testing.T) {
	require.Equal(t, "møte.pdf", DecodeExtendedValue("iso-8859-1''m%F8te.pdf"))
	require.Equal(t, "møte.pdf", DecodeExtendedValue("utf-8''m%C3%B8te.pdf"))
	require.Equal(t, "møte referat.pdf", DecodeExtendedValue("iso-8859-1'en'm%F8te%20referat.pdf"))
}

func TestDecodeExtendedValue_NoCharsetPrefix(t *testing.T) {
	// Senders sometimes percent-encode without the charset''lang prefix.
	// The fixed Latin-1 table still recovers the intended characters.
	require.Equal(t, "møte.pdf", DecodeExtendedValue("m%F8te.pdf"))
	require.Equal(t, "særskilt vedlegg.pdf", DecodeExtendedValue("s%E6rskilt%20vedlegg.pdf"))
}

func TestFixPercentEscapes_UnknownEscapeDropped(t *testing.T) {
	require.Equal(t, "file.pdf", fixPercentEscapes("file%ZZ.pdf", ""))
}

func TestMergeContinuations_PlainParts(t *testing.T) {
	params := map[string]string{
		"filename*0": "very long attach",
		"filename*1": "ment name.pdf",
	}

	merged := MergeContinuations(params)

	require.Equal(t, "very long attachment name.pdf", merged["filename"])
}

func TestMergeContinuations_ExtendedParts(t *testing.T) {
	params := map[string]string{
		"filename*0*": "utf-8''m%C3%B8te",
		"filename*1*": "referat%202021.pdf",
	}

	merged := MergeContinuations(params)

	require.Equal(t, "møtereferat 2021.pdf", merged["filename"])
}

func TestMergeContinuations_SingleExtended(t *testing.T) {
	params := map[string]string{"filename*": "iso-8859-1''vedt%E6kt.pdf"}
	merged := MergeContinuations(params)
	require.Equal(t, "vedtækt.pdf", merged["filename"])
}

func TestMergeContinuations_ContinuationWinsOverPlain(t *testing.T) {
	params := map[string]string{
		"filename":   "fallback.pdf",
		"filename*0": "real",
		"filename*1": ".pdf",
	}
	merged := MergeContinuations(params)
	require.Equal(t, "real.pdf", merged["filename"])
}

func TestMergeContinuations_PlainParamsUntouched(t *testing.T) {
	params := map[string]string{"charset": "utf-8", "boundary": "abc123"}
	merged := MergeContinuations(params)
	require.Equal(t, params, merged)
}

func TestParamValue(t *testing.T) {
	params := map[string]string{
		"filename*0*": "iso-8859-1''rapport%20",
		"filename*1*": "h%F8ring.pdf",
	}

	value, ok := ParamValue(params, "FILENAME")

	require.True(t, ok)
	require.Equal(t, "rapport høring.pdf", value)
}

func TestParamValue_EncodedWordInsideValue(t *testing.T) {
	params := map[string]string{"name": "=?utf-8?Q?m=C3=B8te.pdf?="}

	value, ok := ParamValue(params, "name")

	require.True(t, ok)
	require.Equal(t, "møte.pdf", value)
}

func TestParamValue_Missing(t *testing.T) {
	_, ok := ParamValue(map[string]string{"charset": "utf-8"}, "filename")
	require.False(t, ok)
}
