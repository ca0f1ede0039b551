package backend

// Foreign engine status codes, as reported by FPDF_GetLastError.
const (
	StatusSuccess  uint32 = 0
	StatusUnknown  uint32 = 1
	StatusFile     uint32 = 2
	StatusFormat   uint32 = 3
	StatusPassword uint32 = 4
	StatusSecurity uint32 = 5
	StatusPage     uint32 = 6
)

// MapOpenStatus translates a document-open status code into the error
// taxonomy. File and format failures both mean the bytes are not a usable
// document; password and security failures are credential problems the
// caller can act on; everything else is an uncategorized engine failure.
func MapOpenStatus(code uint32) error {
	switch code {
	case StatusFile, StatusFormat:
		return &OpenError{Reason: OpenCorrupt, Code: code}
	case StatusPassword:
		return &OpenError{Reason: OpenBadPassword, Code: code}
	case StatusSecurity:
		return &OpenError{Reason: OpenUnsupportedSecurity, Code: code}
	default:
		return &EngineError{Op: "open document", Code: code}
	}
}
