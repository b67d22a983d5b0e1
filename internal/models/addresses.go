package models

import "strings"

// Address lists are persisted as a single pipe-joined text column
// ("a@x.com|b@x.com"). The raw delimiter format never leaves this codec:
// storage code encodes on the way in and decodes on the way out.

const addressSeparator = "|"

// EncodeAddressList joins addresses into the stored pipe-delimited form,
// filtering out empty entries so the column never carries dangling
// separators. A nil list encodes to nil (stored as SQL NULL), which is
// distinct from an empty list: downstream mail policy treats "no cc list"
// and "empty cc list" differently.
func EncodeAddressList(addresses []string) *string {
	if addresses == nil {
		return nil
	}
	filtered := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			filtered = append(filtered, trimmed)
		}
	}
	joined := strings.Join(filtered, addressSeparator)
	return &joined
}

// DecodeAddressList splits a stored pipe-delimited value back into a list,
// dropping empty segments. A nil stored value yields a nil list.
func DecodeAddressList(stored *string) []string {
	if stored == nil {
		return nil
	}
	parts := strings.Split(*stored, addressSeparator)
	addresses := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}
	return addresses
}
