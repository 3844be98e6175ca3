package charset

// DCS is the SMPP/GSM data_coding byte carried in submit_sm/deliver_sm.
type DCS byte

const (
	DCSDefault   DCS = 0x00 // GSM 03.38 default alphabet, or alt-charset
	DCSIA5       DCS = 0x01 // ASCII / IA5
	DCSBinary8   DCS = 0x02
	DCSLatin1    DCS = 0x03
	DCSBinary8b  DCS = 0x04
	DCSJIS       DCS = 0x05
	DCSCyrillic  DCS = 0x06 // ISO-8859-5
	DCSHebrew    DCS = 0x07 // ISO-8859-8
	DCSUCS2      DCS = 0x08
)

// Coding values mirror msg.Coding but are redeclared here so this package
// has no import-cycle dependency on msg; internal/smpp maps between them.
type Coding int

const (
	CodingUndef Coding = 0
	Coding7Bit  Coding = 1
	Coding8Bit  Coding = 2
	CodingUCS2  Coding = 3
)

// DecodeDCS turns an inbound data_coding byte into the Coding bucket a
// deliver_sm payload should be treated as, following the same case split
// Kannel's smsc_smpp.c dcs-handling switch uses. altCharsetConfigured being
// true means alt-charset re-encoding of a DCSDefault payload has already been
// attempted upstream; DecodeDCS only reports the resulting coding class.
func DecodeDCS(dcs byte, udhPresent bool, altCharsetConfigured bool) Coding {
	switch DCS(dcs) {
	case DCSDefault:
		return Coding7Bit
	case DCSIA5, DCSLatin1:
		return Coding7Bit
	case DCSBinary8, DCSBinary8b:
		return Coding8Bit
	case DCSCyrillic, DCSHebrew, DCSUCS2:
		return CodingUCS2
	default:
		if dcs&0xF0 == 0xF0 {
			return decodeMessageClassCoding(dcs)
		}
		if udhPresent {
			return Coding8Bit
		}
		return Coding7Bit
	}
}

// DecodeMClass extracts the message class (0-3) from a data_coding byte
// in the 1111xxxx "message class" group EncodeDCS's mclass branch
// produces; -1 (undefined) for every other DCS value.
func DecodeMClass(dcs byte) int {
	if dcs&0xF0 != 0xF0 {
		return -1
	}
	return int(dcs & 0x03)
}

func decodeMessageClassCoding(dcs byte) Coding {
	switch dcs & 0x0C {
	case 0x08:
		return CodingUCS2
	case 0x04:
		return Coding8Bit
	default:
		return Coding7Bit
	}
}

// EncodeDCS derives the outbound data_coding byte for a submit_sm from the
// message's coding class, message class (mclass, -1 if undefined) and MWI
// indicator (mwi, -1 if undefined), mirroring fields_to_dcs: an active MWI
// takes priority over message-class encoding, and an explicit altDCS
// override (if non-negative) wins over both.
func EncodeDCS(coding Coding, mclass int, mwi int, altDCS int) byte {
	if altDCS >= 0 {
		return byte(altDCS)
	}
	if mwi >= 0 {
		// GSM 03.38 section 5.3.1: MWI group 1100xxxx, or 1110xxxx for UCS2.
		base := byte(0xC0)
		if coding == CodingUCS2 {
			base = 0xE0
		}
		return base | byte(mwi&0x07)
	}
	if mclass >= 0 && mclass <= 3 {
		base := byte(0xF0)
		switch coding {
		case Coding8Bit:
			base |= 0x04
		case CodingUCS2:
			base |= 0x08
		}
		return base | byte(mclass&0x03)
	}
	switch coding {
	case Coding8Bit:
		return byte(DCSBinary8)
	case CodingUCS2:
		return byte(DCSUCS2)
	default:
		return byte(DCSDefault)
	}
}

// Decode converts a raw payload encoded per coding into a UTF-8 string.
func Decode(data []byte, coding Coding) string {
	switch coding {
	case CodingUCS2:
		return UCS2ToUTF8(data)
	case Coding8Bit:
		return Latin1ToUTF8(data)
	default:
		return GSMToUTF8(data)
	}
}

// Encode converts a UTF-8 string into the raw bytes coding calls for.
func Encode(s string, coding Coding) []byte {
	switch coding {
	case CodingUCS2:
		return UTF8ToUCS2(s)
	case Coding8Bit:
		return UTF8ToLatin1(s)
	default:
		return UTF8ToGSM(s)
	}
}
