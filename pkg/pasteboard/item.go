package pasteboard

import (
	"fmt"
	"slices"

	"github.com/cespare/xxhash"
	"github.com/rs/zerolog"
)

// Item is a detached copy of one pasteboard entry. Text is the decoded
// form of RawText, the payload stored under TypePlainText.
type Item struct {
	Types      []string
	Text       string
	RawText    []byte
	Attachment []byte
}

func (i Item) Has(typ string) bool {
	return slices.Contains(i.Types, typ)
}

// Representation returns the payload stored under one of the fixed type
// identifiers.
func (i Item) Representation(typ string) ([]byte, error) {
	if !i.Has(typ) {
		return nil, fmt.Errorf("%w: %s", ErrMissingRepresentation, typ)
	}

	switch typ {
	case TypePlainText:
		return i.RawText, nil
	case TypeAttachment:
		return i.Attachment, nil
	default:
		return nil, fmt.Errorf("%w: %s is not fetched", ErrMissingRepresentation, typ)
	}
}

// Hash is the xxhash digest of the attachment.
func (i Item) Hash() uint64 {
	return xxhash.Sum64(i.Attachment)
}

func (i Item) MarshalZerologObject(e *zerolog.Event) {
	e.Strs("types", i.Types)
	e.Int("text_length", len(i.Text))
	e.Int("attachment_length", len(i.Attachment))
	e.Uint64("hash", i.Hash())
}
