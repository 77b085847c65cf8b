package converter

import "errors"

// Validation failures for patch resource input. All of them are terminal:
// no output is produced once one is detected. Callers classify with errors.Is.
var (
	// ErrInvalidHeader means the identifier byte at offset 0 is not 0x89,
	// so the input is not an SCI0 patch resource at all.
	ErrInvalidHeader = errors.New("not an SCI0 patch resource")

	// ErrInvalidSize means the container length does not match either the
	// one-bank or the two-bank size once the title offset is accounted for.
	ErrInvalidSize = errors.New("patch resource has unexpected size")

	// ErrMissingSeparator means a two-bank container lacks the AB CD marker
	// between voice 48 and voice 49.
	ErrMissingSeparator = errors.New("bank separator bytes not found")

	// ErrInvalidPayloadSize means extracted voice data is not a whole number
	// of banks. Valid input can never trigger it; it guards the boundary
	// between extraction and encoding.
	ErrInvalidPayloadSize = errors.New("voice payload has unexpected size")
)
