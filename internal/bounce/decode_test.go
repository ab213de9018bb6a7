package bounce

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		content string
		enc     Encoding
		want    string
	}{
		{"base64", "dXNlciB1bmtub3du", EncodingBase64, "user unknown"},
		{"base64 wrapped lines", "dXNlciB1\r\nbmtub3du\r\n", EncodingBase64, "user unknown"},
		{"base64 without padding", "aGk", EncodingBase64, "hi"},
		{"base64 corrupt tail keeps prefix", "dXNlciB1bmtub3du!!!!", EncodingBase64, "user unknown"},
		{"base64 garbage returns input", "!!!!", EncodingBase64, "!!!!"},
		{"quoted-printable", "mailbox=20is full=\r\n now", EncodingQuotedPrintable, "mailbox is full now"},
		{"quoted-printable soft break", "Delivery to the following recipient failed perm=\nanently", EncodingQuotedPrintable, "Delivery to the following recipient failed permanently"},
		{"7bit identity", "user unknown", Encoding7Bit, "user unknown"},
		{"unknown encoding identity", "x-uuencode stuff", ParseEncoding("X-UUENCODE"), "x-uuencode stuff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.content, tt.enc))
		})
	}
}

func TestParseEncoding(t *testing.T) {
	assert.Equal(t, EncodingBase64, ParseEncoding(" Base64 "))
	assert.Equal(t, EncodingQuotedPrintable, ParseEncoding("Quoted-Printable"))
	assert.Equal(t, Encoding(""), ParseEncoding(""))
}

func TestToUTF8(t *testing.T) {
	assert.Equal(t, "café", ToUTF8([]byte{'c', 'a', 'f', 0xe9}, "ISO-8859-1"))
	assert.Equal(t, "plain", ToUTF8([]byte("plain"), ""))
	assert.Equal(t, "plain", ToUTF8([]byte("plain"), "x-no-such-charset"))
}
