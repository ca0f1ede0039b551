package handle

// Kind identifies which sort of foreign object a handle refers to. The
// foreign engine keys its release calls on this, so a handle must always be
// released as the kind it was created with.
type Kind int

const (
	KindDocument Kind = iota + 1
	KindPage
	KindTextPage
	KindBitmap
	KindFont
	KindProgressive
)

// String returns a short lowercase name, used in error messages.
func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindPage:
		return "page"
	case KindTextPage:
		return "text page"
	case KindBitmap:
		return "bitmap"
	case KindFont:
		return "font"
	case KindProgressive:
		return "progressive render"
	default:
		return "unknown"
	}
}
