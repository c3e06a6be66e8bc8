package fits

import "errors"

var (
	ErrNotFITS           = errors.New("fits: not a FITS file")
	ErrCorruptFile       = errors.New("fits: corrupt file")
	ErrUnsupportedBitPix = errors.New("fits: unsupported BITPIX")
	ErrUnsupportedHDU    = errors.New("fits: unsupported HDU type")
	ErrHDUNotFound       = errors.New("fits: HDU not found")
	ErrInvalidCard       = errors.New("fits: invalid header card")
	ErrShape             = errors.New("fits: array length does not match shape")
)
