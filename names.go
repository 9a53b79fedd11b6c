package questdb

import (
	"unicode/utf8"
)

// Characters that never appear in a table or column name on the wire.
// Space, comma and equals are structural in the row grammar; the rest are
// rejected by the server's name rules.
func isForbiddenNameChar(r rune) bool {
	switch r {
	case ' ', ',', '=', '?', '\'', '"', '\\', '/', ':', ')', '(', '+', '*', '%', '~':
		return true
	case '\ufeff':
		return true
	}
	return r < 0x20 || (r >= 0x7f && r <= 0x9f)
}

func validateTableName(name string) error {
	if name == "" {
		return newErr(KindInvalidArgument, "table name is empty")
	}
	if !utf8.ValidString(name) {
		return newErr(KindInvalidArgument, "table name is not valid UTF-8")
	}
	for i, r := range name {
		if r == '.' {
			if i == 0 || i == len(name)-1 {
				return newErr(KindInvalidArgument, "table name %q must not start or end with a dot", name)
			}
			continue
		}
		if isForbiddenNameChar(r) {
			return newErr(KindInvalidArgument, "table name %q contains an illegal character %q", name, r)
		}
	}
	return nil
}

func validateColumnName(name string) error {
	if name == "" {
		return newErr(KindInvalidArgument, "column name is empty")
	}
	if !utf8.ValidString(name) {
		return newErr(KindInvalidArgument, "column name is not valid UTF-8")
	}
	for _, r := range name {
		if r == '.' || isForbiddenNameChar(r) {
			return newErr(KindInvalidArgument, "column name %q contains an illegal character %q", name, r)
		}
	}
	return nil
}

// appendEscapedString appends s with the protocol's backslash escaping.
// Unquoted (symbol) values escape the structural characters space, comma
// and equals; quoted (string column) values escape the double quote
// instead. Newlines and backslashes are escaped in both forms.
func appendEscapedString(dst []byte, s string, quoted bool) []byte {
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch b {
		case ' ', ',', '=':
			if !quoted {
				dst = append(dst, '\\')
			}
			dst = append(dst, b)
		case '"':
			if quoted {
				dst = append(dst, '\\')
			}
			dst = append(dst, b)
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		default:
			dst = append(dst, b)
		}
	}
	return dst
}
