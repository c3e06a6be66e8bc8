package spherex

import (
	"fmt"
	"strings"
)

// Unit is a physical unit string in FITS/astropy notation, e.g. "electron / s".
type Unit string

const (
	ElectronPerSecond Unit = "electron / s"
	Electron          Unit = "electron"
	ADU               Unit = "adu"
	Dimensionless     Unit = "dimensionless"
)

// ParseUnit normalises whitespace and validates the character set of a unit
// string. The empty string yields ErrMissingUnit.
func ParseUnit(s string) (Unit, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return "", ErrMissingUnit
	}
	norm := strings.Join(fields, " ")
	depth := 0
	for i := 0; i < len(norm); i++ {
		c := norm[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte(" ./*^+-_", c) >= 0:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return "", fmt.Errorf("%w: %q: unbalanced parentheses", ErrInvalidUnit, s)
			}
		default:
			return "", fmt.Errorf("%w: %q: unexpected character %q", ErrInvalidUnit, s, c)
		}
	}
	if depth != 0 {
		return "", fmt.Errorf("%w: %q: unbalanced parentheses", ErrInvalidUnit, s)
	}
	return Unit(norm), nil
}

func (u Unit) String() string { return string(u) }
