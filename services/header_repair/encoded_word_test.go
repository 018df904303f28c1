package header_repair

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRepairEncodedWords_TruncatedWord(t *testing.T) {
	in := "Subject: =?iso-8859-1?Q?SV:_Klage_p=E5?= =?iso-8859-1?Q?_test?Thread-Topic: x"

	out := RepairEncodedWords(in)

	require.Contains(t, out, "=?iso-8859-1?Q?_test?=")
	lines := strings.Split(out, "\r\n")
	require.Len(t, lines, 2)
	require.Equal(t, "Subject: =?iso-8859-1?Q?SV:_Klage_p=E5?= =?iso-8859-1?Q?_test?=", lines[0])
	require.Equal(t, "Thread-Topic: x", lines[1])
}

func TestRepairEncodedWords_WellFormedUnchanged(t *testing.T) {
	inputs := []string{
		"Subject: =?iso-8859-1?Q?SV:_Klage_p=E5_test?=",
		"Subject: =?utf-8?B?VGVzdA==?=",
		"Subject: plain ascii subject",
		"Subject: =?iso-8859-1?Q?a?= =?iso-8859-1?Q?b?=",
	}
	for _, in := range inputs {
		require.Equal(t, in, RepairEncodedWords(in), "input: %s", in)
	}
}

func TestDecodeHeaderText_RepairsAndDecodes(t *testing.T) {
	in := "=?iso-8859-1?Q?SV:_Klage_p=E5?= =?iso-8859-1?Q?_test?Thread-Topic: x"

	decoded, err := DecodeHeaderText(in)

	require.NoError(t, err)
	require.Equal(t, "SV: Klage på test", decoded)
}

func TestDecodeHeaderText_PlainValue(t *testing.T) {
	decoded, err := DecodeHeaderText("Re: budsjett 2021")
	require.NoError(t, err)
	require.Equal(t, "Re: budsjett 2021", decoded)
}

func TestDecodeHeaderText_Base64Word(t *testing.T) {
	decoded, err := DecodeHeaderText("=?utf-8?B?bcO4dGVyZWZlcmF0?=")
	require.NoError(t, err)
	require.Equal(t, "møtereferat", decoded)
}

func TestDecodeHeaderText_ErrorKeepsRawValue(t *testing.T) {
	// Malformed base64 payload makes the decoder fail outright.
	in := "=?utf-8?B?!!!notbase64!!!?="

	decoded, err := DecodeHeaderText(in)

	require.Error(t, err)
	require.Contains(t, err.Error(), "Error getting subject - ")
	require.Equal(t, in, decoded)
}

func TestDecodeHeaderTextLenient_NeverErrors(t *testing.T) {
	in := "=?utf-8?B?!!!notbase64!!!?="
	require.Equal(t, in, DecodeHeaderTextLenient(in))
}
