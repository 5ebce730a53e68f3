package mail

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Outgoing is a fully resolved message ready for delivery
type Outgoing struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

// BuildRawMessage renders out as an RFC 2822 message with an HTML body
// and returns it base64url encoded without padding, as Gmail expects.
func BuildRawMessage(out Outgoing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", stripHeaderBreaks(out.To))
	fmt.Fprintf(&b, "Subject: %s\r\n", encodeHeaderWord(stripHeaderBreaks(out.Subject)))
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(out.Body)

	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}

// encodeHeaderWord applies RFC 2047 B-encoding unconditionally
func encodeHeaderWord(s string) string {
	return fmt.Sprintf("=?utf-8?B?%s?=", base64.StdEncoding.EncodeToString([]byte(s)))
}

func stripHeaderBreaks(s string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(s)
}
