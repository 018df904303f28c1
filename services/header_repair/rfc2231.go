package header_repair

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// iso88591Percent maps the percent escapes that appear in broken RFC 2231
// parameter values to their intended characters. These are fixed, observed
// escapes; anything outside the table goes through standard decoding.
var iso88591Percent = map[string]rune{
	"%C0": 'À', "%C1": 'Á', "%C2": 'Â', "%C3": 'Ã', "%C4": 'Ä', "%C5": 'Å',
	"%C6": 'Æ', "%C7": 'Ç', "%C8": 'È', "%C9": 'É', "%CA": 'Ê', "%CB": 'Ë',
	"%CC": 'Ì', "%CD": 'Í', "%CE": 'Î', "%CF": 'Ï', "%D0": 'Ð', "%D1": 'Ñ',
	"%D2": 'Ò', "%D3": 'Ó', "%D4": 'Ô', "%D5": 'Õ', "%D6": 'Ö', "%D8": 'Ø',
	"%D9": 'Ù', "%DA": 'Ú', "%DB": 'Û', "%DC": 'Ü', "%DD": 'Ý', "%DE": 'Þ',
	"%DF": 'ß',
	"%E0": 'à', "%E1": 'á', "%E2": 'â', "%E3": 'ã', "%E4": 'ä', "%E5": 'å',
	"%E6": 'æ', "%E7": 'ç', "%E8": 'è', "%E9": 'é', "%EA": 'ê', "%EB": 'ë',
	"%EC": 'ì', "%ED": 'í', "%EE": 'î', "%EF": 'ï', "%F0": 'ð', "%F1": 'ñ',
	"%F2": 'ò', "%F3": 'ó', "%F4": 'ô', "%F5": 'õ', "%F6": 'ö', "%F8": 'ø',
	"%F9": 'ù', "%FA": 'ú', "%FB": 'û', "%FC": 'ü',
	"%A7": '§', "%20": ' ',
}

// DecodeExtendedValue decodes an RFC 2231 extended parameter value of the
// form charset'language'percent-encoded-data. Values that do not carry the
// two apostrophes are returned as-is after a best-effort percent fix.
func DecodeExtendedValue(value string) string {
	parts := strings.SplitN(value, "'", 3)
	if len(parts) != 3 {
		return fixPercentEscapes(value, "")
	}
	charset := parts[0]
	data := parts[2]

	unescaped, err := url.PathUnescape(data)
	if err != nil {
		// Broken percent encoding. Apply the known replacements and strip
		// whatever escapes remain.
		return fixPercentEscapes(data, charset)
	}

	decoded, err := DecodeCharset([]byte(unescaped), charset)
	if err != nil {
		return EnsureUTF8String(unescaped)
	}
	return string(decoded)
}

func fixPercentEscapes(value, charset string) string {
	var b strings.Builder
	for i := 0; i < len(value); {
		if value[i] == '%' && i+2 < len(value) {
			esc := strings.ToUpper(value[i : i+3])
			if r, ok := iso88591Percent[esc]; ok {
				b.WriteRune(r)
				i += 3
				continue
			}
			if decoded, err := url.PathUnescape(value[i : i+3]); err == nil {
				raw, derr := DecodeCharset([]byte(decoded), charset)
				if derr == nil {
					b.Write(raw)
					i += 3
					continue
				}
			}
			// Unsalvageable escape; drop it.
			i += 3
			continue
		}
		b.WriteByte(value[i])
		i++
	}
	return EnsureUTF8String(b.String())
}

// MergeContinuations reassembles RFC 2231 parameter continuations
// (name*0, name*1*, ...) into single parameters, decoding extended parts.
// Plain parameters pass through untouched unless a continuation of the same
// name exists, in which case the continuation wins.
func MergeContinuations(params map[string]string) map[string]string {
	type fragment struct {
		index    int
		extended bool
		value    string
	}
	continuations := make(map[string][]fragment)
	merged := make(map[string]string, len(params))

	for key, value := range params {
		name := key
		extended := strings.HasSuffix(name, "*")
		if extended {
			name = strings.TrimSuffix(name, "*")
		}

		star := strings.LastIndex(name, "*")
		if star < 0 {
			if extended {
				merged[name] = DecodeExtendedValue(value)
			} else if _, taken := merged[name]; !taken {
				merged[name] = value
			}
			continue
		}

		index, err := strconv.Atoi(name[star+1:])
		if err != nil {
			merged[key] = value
			continue
		}
		base := name[:star]
		continuations[base] = append(continuations[base], fragment{
			index:    index,
			extended: extended,
			value:    value,
		})
	}

	for name, frags := range continuations {
		sort.Slice(frags, func(i, j int) bool { return frags[i].index < frags[j].index })
		var b strings.Builder
		for i, f := range frags {
			if f.extended {
				// Only the first fragment carries the charset prefix; later
				// fragments are bare percent-encoded data.
				if i == 0 {
					b.WriteString(DecodeExtendedValue(f.value))
				} else {
					b.WriteString(fixPercentEscapes(f.value, ""))
				}
			} else {
				b.WriteString(f.value)
			}
		}
		merged[name] = b.String()
	}

	return merged
}

// ParamValue extracts a parameter from a merged-and-decoded map, also
// checking the RFC 2047 form some senders use inside quoted values.
func ParamValue(params map[string]string, name string) (string, bool) {
	merged := MergeContinuations(params)
	for key, value := range merged {
		if strings.EqualFold(key, name) {
			if strings.Contains(value, "=?") {
				return DecodeHeaderTextLenient(value), true
			}
			return value, true
		}
	}
	return "", false
}
