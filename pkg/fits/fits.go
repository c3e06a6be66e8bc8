// Package fits implements the subset of the Flexible Image Transport System
// needed to store multi-extension image containers.
//
// A file is a sequence of header-data units (HDUs). Each HDU starts with a
// header of 80-byte ASCII records terminated by an END record, padded to a
// 2880-byte block, followed by an optional big-endian data payload padded to
// the same block size. The first HDU is the primary HDU; the rest are IMAGE
// extensions.
package fits

// Format constants fixed by the FITS standard.
const (
	// BlockSize is the size of every header and data block.
	BlockSize = 2880

	// CardSize is the size of a single header record.
	CardSize = 80

	// KeywordSize is the maximum length of a standard keyword.
	KeywordSize = 8

	// PrimaryName is the implicit name of the first HDU.
	PrimaryName = "PRIMARY"
)

// Reserved keyword names.
const (
	KeySimple   = "SIMPLE"
	KeyXTension = "XTENSION"
	KeyBitPix   = "BITPIX"
	KeyNAxis    = "NAXIS"
	KeyExtend   = "EXTEND"
	KeyPCount   = "PCOUNT"
	KeyGCount   = "GCOUNT"
	KeyExtName  = "EXTNAME"
	KeyBZero    = "BZERO"
	KeyBScale   = "BSCALE"
	KeyBlank    = "BLANK"
	KeyEnd      = "END"
	KeyComment  = "COMMENT"
	KeyHistory  = "HISTORY"
	KeyHierarch = "HIERARCH"
	KeyChecksum = "CHECKSUM"
	KeyDataSum  = "DATASUM"
)

// XTensionImage is the XTENSION value of an image extension.
const XTensionImage = "IMAGE"
