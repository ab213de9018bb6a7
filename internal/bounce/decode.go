package bounce

import (
	"encoding/base64"
	"errors"
	"io"
	"mime/quotedprintable"
	"strings"
	"unicode"

	"golang.org/x/text/encoding/ianaindex"
)

// Encoding is a Content-Transfer-Encoding.
type Encoding string

const (
	Encoding7Bit            Encoding = "7bit"
	Encoding8Bit            Encoding = "8bit"
	EncodingBinary          Encoding = "binary"
	EncodingBase64          Encoding = "base64"
	EncodingQuotedPrintable Encoding = "quoted-printable"
)

// ParseEncoding normalizes a Content-Transfer-Encoding header value. Unknown
// values are returned as is and decode as identity.
func ParseEncoding(s string) Encoding {
	return Encoding(strings.ToLower(strings.TrimSpace(s)))
}

// Decode undoes a transfer encoding. It is best-effort and never fails: the
// longest decodable prefix is returned for malformed input, and the input
// itself when nothing decodes.
func Decode(content string, enc Encoding) string {
	switch enc {
	case EncodingBase64:
		return decodeBase64(content)
	case EncodingQuotedPrintable:
		return decodeQuotedPrintable(content)
	}
	return content
}

func decodeBase64(s string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if clean == "" {
		return s
	}
	b, err := base64.StdEncoding.DecodeString(clean)
	if err == nil {
		return string(b)
	}
	if b, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(clean, "=")); err == nil {
		return string(b)
	}
	var corrupt base64.CorruptInputError
	if errors.As(err, &corrupt) {
		if n := int(corrupt) / 4 * 4; n > 0 {
			if b, err := base64.StdEncoding.DecodeString(clean[:n]); err == nil {
				return string(b)
			}
		}
	}
	return s
}

func decodeQuotedPrintable(s string) string {
	b, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(s)))
	if err != nil && len(b) == 0 {
		return s
	}
	return string(b)
}

// ToUTF8 converts text from the named charset. Unknown charsets and
// conversion errors leave the text unchanged.
func ToUTF8(text []byte, charset string) string {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return string(text)
	}
	enc, err := ianaindex.IANA.Encoding(charset)
	if err != nil || enc == nil {
		return string(text)
	}
	out, err := enc.NewDecoder().Bytes(text)
	if err != nil {
		return string(text)
	}
	return string(out)
}
