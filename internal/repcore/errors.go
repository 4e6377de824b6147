package repcore

import "fmt"

// DecodeError is the base error type for everything that can go wrong while
// turning raw replay bytes into a DecodedReplay: a common message +
// optional byte offset, with each failure mode a distinct Go type so
// callers can type-switch on it instead of matching error strings.
type DecodeError struct {
	Message string
	Offset  *int
}

func (e *DecodeError) Error() string {
	if e.Offset != nil {
		return fmt.Sprintf("%s (offset 0x%x)", e.Message, *e.Offset)
	}
	return e.Message
}

// MalformedHeaderError indicates the fixed header could not be read.
type MalformedHeaderError struct{ DecodeError }

// DecryptFailureError indicates the Blowfish-encrypted packet stream could
// not be decrypted or decompressed.
type DecryptFailureError struct{ DecodeError }

// UnsupportedVersionError indicates clientVersion has no registered
// decoder/stats-table bundle.
type UnsupportedVersionError struct {
	DecodeError
	ClientVersion ClientVersion
}

// TruncatedStreamError indicates the packet stream ended mid-frame.
type TruncatedStreamError struct{ DecodeError }

// IndexMissingError indicates a client version is known to the decoder
// registry but has no stats index table (should not normally happen since
// both registries are populated together, but kept distinct so callers
// can tell the two apart in logs and alerts).
type IndexMissingError struct {
	DecodeError
	ClientVersion ClientVersion
}

func NewMalformedHeaderError(msg string) *MalformedHeaderError {
	return &MalformedHeaderError{DecodeError{Message: msg}}
}

func NewDecryptFailureError(msg string) *DecryptFailureError {
	return &DecryptFailureError{DecodeError{Message: msg}}
}

func NewUnsupportedVersionError(v ClientVersion) *UnsupportedVersionError {
	return &UnsupportedVersionError{
		DecodeError:   DecodeError{Message: fmt.Sprintf("unsupported client version: %s", v)},
		ClientVersion: v,
	}
}

func NewTruncatedStreamError(msg string, offset int) *TruncatedStreamError {
	return &TruncatedStreamError{DecodeError{Message: msg, Offset: &offset}}
}

func NewIndexMissingError(v ClientVersion) *IndexMissingError {
	return &IndexMissingError{
		DecodeError:   DecodeError{Message: fmt.Sprintf("no stats index table for client version: %s", v)},
		ClientVersion: v,
	}
}
