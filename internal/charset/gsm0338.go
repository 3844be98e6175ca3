// Package charset converts short message payloads between the GSM 03.38
// default alphabet, ISO-8859-1 (latin1), and UTF-8/UCS-2BE, and derives or
// applies the SMPP data_coding (DCS) byte that tells an SMSC which of
// these encodings a submit_sm/deliver_sm payload uses.
package charset

import "unicode/utf16"

// gsm0338Basic maps GSM 03.38 default-alphabet code points (0x00-0x7F) to
// their Unicode rune. Entries with no direct Unicode mapping fall back to
// '?' the way Kannel's charset_gsm_to_latin1 does for unmapped codepoints.
var gsm0338Basic = [128]rune{
	'@', '£', '$', '¥', 'è', 'é', 'ù', 'ì',
	'ò', 'ç', '\n', 'Ø', 'ø', '\r', 'Å', 'å',
	'Δ', '_', 'Φ', 'Γ', 'Λ', 'Ω', 'Π', 'Ψ',
	'Σ', 'Θ', 'Ξ', ' ', 'Æ', 'æ', 'ß', 'É',
	' ', '!', '"', '#', '¤', '%', '&', '\'',
	'(', ')', '*', '+', ',', '-', '.', '/',
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', ':', ';', '<', '=', '>', '?',
	'¡', 'A', 'B', 'C', 'D', 'E', 'F', 'G',
	'H', 'I', 'J', 'K', 'L', 'M', 'N', 'O',
	'P', 'Q', 'R', 'S', 'T', 'U', 'V', 'W',
	'X', 'Y', 'Z', 'Ä', 'Ö', 'Ñ', 'Ü', '§',
	'¿', 'a', 'b', 'c', 'd', 'e', 'f', 'g',
	'h', 'i', 'j', 'k', 'l', 'm', 'n', 'o',
	'p', 'q', 'r', 's', 't', 'u', 'v', 'w',
	'x', 'y', 'z', 'ä', 'ö', 'ñ', 'ü', 'à',
}

var gsm0338Reverse = buildReverse(gsm0338Basic)

func buildReverse(table [128]rune) map[rune]byte {
	rev := make(map[rune]byte, len(table))
	for b, r := range table {
		if b == 0x1B {
			// ESC introduces the extension table; it never encodes a rune.
			continue
		}
		if _, exists := rev[r]; !exists {
			rev[r] = byte(b)
		}
	}
	return rev
}

// GSMToUTF8 decodes a GSM 03.38 default-alphabet byte string (with escape
// sequences in the extension table already resolved by the caller, since
// extension handling is UDH/PID-dependent) into a UTF-8 string.
func GSMToUTF8(data []byte) string {
	runes := make([]rune, 0, len(data))
	for _, b := range data {
		if b < 128 {
			runes = append(runes, gsm0338Basic[b])
		} else {
			runes = append(runes, '?')
		}
	}
	return string(runes)
}

// UTF8ToGSM encodes a UTF-8 string into GSM 03.38 default-alphabet bytes.
// Runes with no GSM representation are replaced with '?', matching
// Kannel's charset_latin1_to_gsm fallback behaviour.
func UTF8ToGSM(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := gsm0338Reverse[r]; ok {
			out = append(out, b)
		} else {
			out = append(out, '?')
		}
	}
	return out
}

// Latin1ToUTF8 decodes an ISO-8859-1 byte string into UTF-8.
func Latin1ToUTF8(data []byte) string {
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// UTF8ToLatin1 encodes a UTF-8 string into ISO-8859-1, substituting '?'
// for runes outside the latin1 range.
func UTF8ToLatin1(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r <= 0xFF {
			out = append(out, byte(r))
		} else {
			out = append(out, '?')
		}
	}
	return out
}

// UCS2ToUTF8 decodes a big-endian UCS-2 (UTF-16BE without surrogate pairs
// in practice, but decoded as UTF-16BE for safety) byte string into UTF-8.
func UCS2ToUTF8(data []byte) string {
	n := len(data) / 2
	units := make([]uint16, n)
	for i := 0; i < n; i++ {
		units[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return string(utf16.Decode(units))
}

// UTF8ToUCS2 encodes a UTF-8 string into big-endian UCS-2/UTF-16BE bytes.
func UTF8ToUCS2(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		out[2*i] = byte(u >> 8)
		out[2*i+1] = byte(u)
	}
	return out
}
