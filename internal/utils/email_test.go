package utils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSubject(t *testing.T) {
	cases := map[string]string{
		"Re: Klage på vedtak":     "Klage på vedtak",
		"SV: Klage på vedtak":     "Klage på vedtak",
		"sv: Klage på vedtak":     "Klage på vedtak",
		"VS: Videresendt sak":     "Videresendt sak",
		"Fwd: Videresendt sak":    "Videresendt sak",
		"FW: Videresendt sak":     "Videresendt sak",
		"Re [2]: Gammel tråd":     "Gammel tråd",
		"Klage på vedtak":         "Klage på vedtak",
		"  Klage på vedtak  ":     "Klage på vedtak",
		"":                        "",
		"Re: SV: dobbel prefiks":  "dobbel prefiks",
		"Referat fra møtet":       "Referat fra møtet",
		"Ant: Antwort auf Antrag": "Antwort auf Antrag",
	}

	for in, expected := range cases {
		require.Equal(t, expected, NormalizeSubject(in), "input: %q", in)
	}
}

func TestUniqueEmails(t *testing.T) {
	in := []string{"a@example.com", "b@example.com", "a@example.com", "c@example.com", "b@example.com"}
	require.Equal(t, []string{"a@example.com", "b@example.com", "c@example.com"}, UniqueEmails(in))
	require.Empty(t, UniqueEmails(nil))
}

func TestExtractDomainFromEmail(t *testing.T) {
	require.Equal(t, "example.com", ExtractDomainFromEmail("kari@Example.COM"))
	require.Equal(t, "example.com", ExtractDomainFromEmail("Kari Nordmann <kari@example.com>"))
	require.Equal(t, "", ExtractDomainFromEmail("not-an-address"))
	require.Equal(t, "", ExtractDomainFromEmail(""))
}

func TestIsStringInSlice(t *testing.T) {
	require.True(t, IsStringInSlice("b", []string{"a", "b"}))
	require.False(t, IsStringInSlice("c", []string{"a", "b"}))
	require.False(t, IsStringInSlice("a", nil))
}
