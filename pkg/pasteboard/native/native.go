// Package native describes the pasteboard server as this process sees it:
// a handful of reference-counted foreign objects and the messages they answer.
//
// Ownership follows the Cocoa rules. Methods documented as returning an owned
// object hand the caller one reference that it must Release. Borrowed objects
// stay valid only while their parent is alive and must be retained to outlive it.
package native

// Class is a content class accepted by Board.ReadObjects.
type Class uint8

const (
	// ClassString selects items that can be coerced into a string.
	ClassString Class = iota
	// ClassItem selects raw multi-representation items.
	ClassItem
)

func (c Class) String() string {
	switch c {
	case ClassString:
		return "NSString"
	case ClassItem:
		return "NSPasteboardItem"
	default:
		return "unknown"
	}
}

type Object interface {
	Retain()
	Release()
}

// Array is an immutable list returned by the server.
type Array interface {
	Object
	Len() int
	// At returns a borrowed element.
	At(i int) Object
}

type String interface {
	Object
	String() string
}

type Data interface {
	Object
	// Bytes returns a copy of the buffer.
	Bytes() []byte
}

// Item is one pasteboard entry carrying representations keyed by type identifier.
type Item interface {
	Object
	SetData(data Data, typ string) bool
	// DataForType returns an owned buffer, or false when typ is not set.
	DataForType(typ string) (Data, bool)
	// Types lists the type identifiers in server order.
	Types() ([]string, bool)
}

type Board interface {
	Object
	// Scoped runs fn in a context where autoreleased objects stay valid
	// until fn returns.
	Scoped(fn func() error) error
	ClearContents()
	// ReadObjects returns an owned array, or false when the server returned nil.
	ReadObjects(classes ...Class) (Array, bool)
	WriteObjects(objs ...Object) bool
	// NewString, NewData and NewItem return owned objects.
	NewString(s string) (String, bool)
	NewData(b []byte) (Data, bool)
	NewItem() (Item, bool)
}

type Driver interface {
	// GeneralPasteboard returns an owned reference to the shared board.
	GeneralPasteboard() (Board, bool)
}
