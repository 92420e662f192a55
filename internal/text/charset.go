package text

import (
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

// ToUTF8 transcodes content to UTF-8 using the declared or sniffed charset.
// Content that cannot be decoded is returned as is.
func ToUTF8(content []byte, contentType string) string {
	if utf8.Valid(content) {
		return string(content)
	}
	enc, _, _ := charset.DetermineEncoding(content, contentType)
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return string(content)
	}
	return string(decoded)
}
