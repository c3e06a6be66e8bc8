package spherex

import (
	"regexp"
	"strings"

	"github.com/samcharles93/spherex/pkg/fits"
)

var (
	wcsKeyPattern = regexp.MustCompile(`^(` +
		`WCSAXES[A-Z]?|WCSNAME[A-Z]?|` +
		`(CTYPE|CRPIX|CRVAL|CDELT|CUNIT|CROTA|CNAME|CRDER|CSYER)[0-9]+[A-Z]?|` +
		`(CD|PC)[0-9]+_[0-9]+[A-Z]?|` +
		`P[VS][0-9]+_[0-9]+[A-Z]?|` +
		`(LONPOLE|LATPOLE|RADESYS|EQUINOX)[A-Z]?|RADECSYS|MJDREF` +
		`)$`)
	sipKeyPattern = regexp.MustCompile(`^(A|B|AP|BP)_(ORDER|DMAX|[0-9]+_[0-9]+)$`)
)

const sipSuffix = "-SIP"

// IsWCSKey reports whether key belongs to the world coordinate system block.
func IsWCSKey(key string) bool {
	k := strings.ToUpper(strings.TrimSpace(key))
	return wcsKeyPattern.MatchString(k) || sipKeyPattern.MatchString(k)
}

// splitWCS separates WCS records from the rest of h. The WCS header is nil
// when none are present.
func splitWCS(h fits.Header) (meta, wcs fits.Header) {
	for _, c := range h {
		if IsWCSKey(c.Key) {
			wcs = append(wcs, c)
		} else {
			meta = append(meta, c)
		}
	}
	return meta, wcs
}

// wcsCards renders the WCS block for writing. Without relax, SIP distortion
// terms are dropped and the -SIP projection suffix is removed from CTYPE.
func wcsCards(wcs fits.Header, relax bool) fits.Header {
	if relax {
		return wcs.Clone()
	}
	out := make(fits.Header, 0, len(wcs))
	for _, c := range wcs {
		k := strings.ToUpper(c.Key)
		if sipKeyPattern.MatchString(k) {
			continue
		}
		if strings.HasPrefix(k, "CTYPE") {
			if s, ok := c.Text(); ok {
				c.Value = strings.TrimSuffix(s, sipSuffix)
			}
		}
		out = append(out, c)
	}
	return out
}
