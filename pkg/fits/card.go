package fits

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	valueIndicator = "= "
	valueColumn    = 10 // first column after "KEYWORD = "
	commentaryText = CardSize - KeywordSize
	minStringWidth = 8
	fixedWidth     = 20
)

// Literal is a header value kept verbatim, for example a complex number.
type Literal string

// Card is a single header record.
//
// Value is one of nil (commentary or undefined), bool, int64, float64,
// string or Literal. Keys longer than eight characters are written with the
// HIERARCH convention.
type Card struct {
	Key      string
	Value    any
	Comment  string
	Hierarch bool
}

// NewCard builds a card, normalising Go numeric types to int64/float64.
func NewCard(key string, value any, comment string) (Card, error) {
	v, err := normaliseValue(value)
	if err != nil {
		return Card{}, fmt.Errorf("%w: %s: %v", ErrInvalidCard, key, err)
	}
	return Card{Key: upper(key), Value: v, Comment: comment}, nil
}

// Commentary builds a COMMENT/HISTORY/blank card carrying free text.
func Commentary(key, text string) Card {
	return Card{Key: upper(key), Comment: text}
}

// IsCommentary reports whether key names a record without a value.
func IsCommentary(key string) bool {
	k := upper(key)
	return k == KeyComment || k == KeyHistory || k == ""
}

// Int returns the value as an integer. Quoted integer strings and floats
// with no fractional part are accepted.
func (c Card) Int() (int64, bool) {
	switch v := c.Value.(type) {
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Float returns the value as a float. Integers are widened.
func (c Card) Float() (float64, bool) {
	switch v := c.Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Bool returns a logical value.
func (c Card) Bool() (bool, bool) {
	v, ok := c.Value.(bool)
	return v, ok
}

// Text returns a string value.
func (c Card) Text() (string, bool) {
	v, ok := c.Value.(string)
	return v, ok
}

func (c Card) hierarch() bool {
	if c.Hierarch || len(c.Key) > KeywordSize {
		return true
	}
	for i := 0; i < len(c.Key); i++ {
		if !isKeywordChar(c.Key[i]) {
			return true
		}
	}
	return false
}

func isKeywordChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9') || b == '-' || b == '_'
}

// encode renders the card as one or more 80-byte records.
func (c Card) encode() ([]byte, error) {
	if IsCommentary(c.Key) && c.Value == nil {
		return encodeCommentary(c.Key, c.Comment)
	}

	val, err := formatValue(c.Value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCard, c.Key, err)
	}

	var line string
	if c.hierarch() {
		line = KeyHierarch + " " + c.Key + " = " + strings.TrimLeft(val, " ")
	} else {
		line = fmt.Sprintf("%-8s", c.Key) + valueIndicator + val
	}
	if len(line) > CardSize {
		return nil, fmt.Errorf("%w: %s: value does not fit in one record", ErrInvalidCard, c.Key)
	}
	if c.Comment != "" && len(line)+3 < CardSize {
		line += " / " + c.Comment
	}
	if len(line) > CardSize {
		line = line[:CardSize]
	}
	if err := checkASCII(line); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCard, c.Key, err)
	}
	return []byte(fmt.Sprintf("%-80s", line)), nil
}

func encodeCommentary(key, text string) ([]byte, error) {
	if err := checkASCII(text); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidCard, key, err)
	}
	var out []byte
	for {
		chunk := text
		if len(chunk) > commentaryText {
			chunk = text[:commentaryText]
		}
		out = append(out, fmt.Sprintf("%-8s%-72s", key, chunk)...)
		text = text[len(chunk):]
		if text == "" {
			return out, nil
		}
	}
}

func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case bool:
		if v {
			return fmt.Sprintf("%*s", fixedWidth, "T"), nil
		}
		return fmt.Sprintf("%*s", fixedWidth, "F"), nil
	case int64:
		return fmt.Sprintf("%*d", fixedWidth, v), nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", fmt.Errorf("non-finite value %v", v)
		}
		s := strconv.FormatFloat(v, 'G', -1, 64)
		if !strings.ContainsAny(s, ".E") {
			s += ".0"
		}
		return fmt.Sprintf("%*s", fixedWidth, s), nil
	case string:
		esc := strings.ReplaceAll(v, "'", "''")
		return "'" + fmt.Sprintf("%-*s", minStringWidth, esc) + "'", nil
	case Literal:
		return fmt.Sprintf("%*s", fixedWidth, string(v)), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func normaliseValue(v any) (any, error) {
	switch v := v.(type) {
	case nil, bool, int64, float64, string, Literal:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", v)
		}
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return float64(v), nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func checkASCII(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return fmt.Errorf("non-printable byte 0x%02x", s[i])
		}
	}
	return nil
}

// parseCard decodes one 80-byte record.
func parseCard(rec []byte) (Card, error) {
	if len(rec) != CardSize {
		return Card{}, ErrInvalidCard
	}
	s := string(rec)
	if err := checkASCII(s); err != nil {
		return Card{}, fmt.Errorf("%w: %v", ErrInvalidCard, err)
	}
	key := strings.TrimRight(s[:KeywordSize], " ")

	if key == KeyHierarch {
		rest := s[KeywordSize:]
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return Card{Key: KeyHierarch, Comment: strings.TrimRight(rest, " ")}, nil
		}
		v, comment, err := parseValue(rest[eq+1:])
		if err != nil {
			return Card{}, err
		}
		return Card{Key: strings.TrimSpace(rest[:eq]), Value: v, Comment: comment, Hierarch: true}, nil
	}

	if s[KeywordSize:valueColumn] == valueIndicator && !IsCommentary(key) {
		v, comment, err := parseValue(s[valueColumn:])
		if err != nil {
			return Card{}, fmt.Errorf("%s: %w", key, err)
		}
		return Card{Key: key, Value: v, Comment: comment}, nil
	}

	return Card{Key: key, Comment: strings.TrimRight(s[KeywordSize:], " ")}, nil
}

// salvageCard keeps a record whose value cannot be parsed. The value text
// is preserved as a Literal so typed accessors report it as unusable while
// the rest of the header stays readable. Non-printable bytes become '?'.
func salvageCard(rec []byte) Card {
	b := make([]byte, len(rec))
	for i, c := range rec {
		if c < 0x20 || c > 0x7e {
			c = '?'
		}
		b[i] = c
	}
	s := string(b)
	key := strings.TrimRight(s[:KeywordSize], " ")

	if key == KeyHierarch {
		rest := s[KeywordSize:]
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return Card{Key: KeyHierarch, Comment: strings.TrimRight(rest, " ")}
		}
		return Card{Key: strings.TrimSpace(rest[:eq]), Value: Literal(strings.TrimSpace(rest[eq+1:])), Hierarch: true}
	}
	if s[KeywordSize:valueColumn] == valueIndicator && !IsCommentary(key) {
		return Card{Key: key, Value: Literal(strings.TrimSpace(s[valueColumn:]))}
	}
	return Card{Key: key, Comment: strings.TrimRight(s[KeywordSize:], " ")}
}

func parseValue(field string) (any, string, error) {
	t := strings.TrimLeft(field, " ")
	if strings.HasPrefix(t, "'") {
		var b strings.Builder
		i := 1
		for {
			if i >= len(t) {
				return nil, "", fmt.Errorf("%w: unterminated string", ErrInvalidCard)
			}
			if t[i] == '\'' {
				if i+1 < len(t) && t[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				break
			}
			b.WriteByte(t[i])
			i++
		}
		return strings.TrimRight(b.String(), " "), parseComment(t[i+1:]), nil
	}

	text, comment := t, ""
	if j := strings.IndexByte(t, '/'); j >= 0 {
		text, comment = t[:j], strings.TrimSpace(t[j+1:])
	}
	text = strings.TrimSpace(text)
	switch text {
	case "":
		return nil, comment, nil
	case "T":
		return true, comment, nil
	case "F":
		return false, comment, nil
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, comment, nil
	}
	if isNumeric(text) {
		if f, err := strconv.ParseFloat(strings.Replace(strings.ToUpper(text), "D", "E", 1), 64); err == nil {
			return f, comment, nil
		}
	}
	return Literal(text), comment, nil
}

func parseComment(rest string) string {
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[j+1:])
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '.', c == '+', c == '-', c == 'E', c == 'e', c == 'D', c == 'd':
		default:
			return false
		}
	}
	return true
}
