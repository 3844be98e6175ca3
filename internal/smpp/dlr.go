package smpp

import (
	"strings"

	"github.com/oonrumail/bearerbox/internal/msg"
)

// parsedDLR is what parseDLRText extracts from a deliver_sm receipt body.
type parsedDLR struct {
	MessageID string
	Status    msg.DLRStatus
}

// parseDLRText scans a deliver_sm short_message for the "id:<value>" and
// "stat:<value>" substrings Kannel and most SMSCs use for delivery
// receipts, and maps the stat value per spec.md §4.3's table.
func parseDLRText(text string) parsedDLR {
	var p parsedDLR
	p.MessageID = extractField(text, "id:")
	stat := extractField(text, "stat:")
	p.Status = statToDLRStatus(stat)
	return p
}

// extractField returns the whitespace-delimited token following prefix,
// or "" if prefix is not present.
func extractField(text, prefix string) string {
	idx := strings.Index(text, prefix)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(prefix):]
	end := strings.IndexAny(rest, " \t\r\n")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

func statToDLRStatus(stat string) msg.DLRStatus {
	switch stat {
	case "DELIVRD":
		return msg.DLRStatusSuccess
	case "ACKED", "ENROUTE", "ACCEPTD", "BUFFRED":
		return msg.DLRStatusBuffered
	default:
		return msg.DLRStatusFail
	}
}
