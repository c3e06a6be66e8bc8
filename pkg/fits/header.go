package fits

import (
	"bytes"
	"fmt"
	"strings"
)

// Header is an ordered list of header records.
type Header []Card

// Index returns the position of the first card with the given key, or -1.
// Keys compare case-insensitively.
func (h Header) Index(key string) int {
	key = strings.TrimSpace(key)
	for i := range h {
		if strings.EqualFold(h[i].Key, key) {
			return i
		}
	}
	return -1
}

// Get returns the first card with the given key.
func (h Header) Get(key string) (Card, bool) {
	if i := h.Index(key); i >= 0 {
		return h[i], true
	}
	return Card{}, false
}

// Has reports whether a card with the given key exists.
func (h Header) Has(key string) bool { return h.Index(key) >= 0 }

// Int returns the integer value of key.
func (h Header) Int(key string) (int64, bool) {
	c, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	return c.Int()
}

// Float returns the numeric value of key.
func (h Header) Float(key string) (float64, bool) {
	c, ok := h.Get(key)
	if !ok {
		return 0, false
	}
	return c.Float()
}

// Text returns the string value of key.
func (h Header) Text(key string) (string, bool) {
	c, ok := h.Get(key)
	if !ok {
		return "", false
	}
	return c.Text()
}

// Set replaces the value of the first card with c.Key, or appends c.
// Commentary cards are always appended.
func (h *Header) Set(c Card) {
	if IsCommentary(c.Key) {
		*h = append(*h, c)
		return
	}
	if i := h.Index(c.Key); i >= 0 {
		(*h)[i] = c
		return
	}
	*h = append(*h, c)
}

// SetValue is a shorthand for Set with a normalised value.
func (h *Header) SetValue(key string, value any, comment string) error {
	c, err := NewCard(key, value, comment)
	if err != nil {
		return err
	}
	h.Set(c)
	return nil
}

// Add appends c without replacing existing cards.
func (h *Header) Add(c Card) { *h = append(*h, c) }

// Delete removes every card with the given key and reports whether any was removed.
func (h *Header) Delete(key string) bool {
	out := (*h)[:0]
	removed := false
	for _, c := range *h {
		if strings.EqualFold(c.Key, strings.TrimSpace(key)) {
			removed = true
			continue
		}
		out = append(out, c)
	}
	*h = out
	return removed
}

// Keys returns the keys of all cards in order, including duplicates.
func (h Header) Keys() []string {
	keys := make([]string, len(h))
	for i := range h {
		keys[i] = h[i].Key
	}
	return keys
}

// Clone returns an independent copy.
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	copy(out, h)
	return out
}

// Filter returns the cards for which keep returns true.
func (h Header) Filter(keep func(Card) bool) Header {
	var out Header
	for _, c := range h {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

// Merge copies cards from other into h using Set semantics.
func (h *Header) Merge(other Header) {
	for _, c := range other {
		h.Set(c)
	}
}

// String renders the header as newline separated records, for debugging.
func (h Header) String() string {
	var b strings.Builder
	for _, c := range h {
		rec, err := c.encode()
		if err != nil {
			fmt.Fprintf(&b, "%-8s<invalid: %v>\n", c.Key, err)
			continue
		}
		for len(rec) > 0 {
			b.Write(bytes.TrimRight(rec[:CardSize], " "))
			b.WriteByte('\n')
			rec = rec[CardSize:]
		}
	}
	return b.String()
}

// encodeHeader renders cards plus END, padded to a block boundary.
func encodeHeader(h Header) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range h {
		rec, err := c.encode()
		if err != nil {
			return nil, err
		}
		buf.Write(rec)
	}
	buf.WriteString(fmt.Sprintf("%-80s", KeyEnd))
	buf.Write(bytes.Repeat([]byte{' '}, padLen(buf.Len())))
	return buf.Bytes(), nil
}

// decodeHeader reads cards starting at data[0] until END. It returns the
// header and the number of bytes consumed including block padding.
func decodeHeader(data []byte) (Header, int, error) {
	var h Header
	for off := 0; off+CardSize <= len(data); off += CardSize {
		rec := data[off : off+CardSize]
		if string(bytes.TrimRight(rec, " ")) == KeyEnd {
			end := off + CardSize
			end += padLen(end)
			if end > len(data) {
				return nil, 0, fmt.Errorf("%w: header padding truncated", ErrCorruptFile)
			}
			return h, end, nil
		}
		c, err := parseCard(rec)
		if err != nil {
			c = salvageCard(rec)
		}
		h = append(h, c)
	}
	return nil, 0, fmt.Errorf("%w: missing END record", ErrCorruptFile)
}
