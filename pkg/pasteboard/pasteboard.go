// Package pasteboard gives a process access to the system pasteboard: plain
// text, a (text, attachment) pair carried by one item, and the list of type
// identifiers an item offers.
//
// A Pasteboard holds one reference to the shared board and nothing else, so
// a single value can be used from any number of goroutines. Close waits for
// calls already in flight before it drops the reference. Every call is a
// synchronous round trip to the pasteboard server; no object obtained from
// the server outlives the call that obtained it.
package pasteboard

import (
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/cespare/xxhash"
	"github.com/labi-le/pasteboard/pkg/ctxlog"
	"github.com/labi-le/pasteboard/pkg/mime"
	"github.com/labi-le/pasteboard/pkg/pasteboard/native"
	"github.com/rs/zerolog"
)

const (
	TypePlainText  = mime.TypePlainText
	TypeAttachment = mime.TypeKakaoAttachment
)

// loader is implemented by drivers that bind to the platform lazily.
type loader interface {
	Load() error
}

type Pasteboard struct {
	board  native.Board
	logger zerolog.Logger

	// inflight is held shared by every operation and exclusively by Close,
	// so the board reference is never dropped under a running call.
	inflight sync.RWMutex
	closed   bool
	cleanup   runtime.Cleanup
}

// New obtains the general pasteboard from the platform driver.
func New(opts ...Option) (*Pasteboard, error) {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.driver == nil {
		o.driver = defaultDriver()
	}
	if o.driver == nil {
		return nil, fmt.Errorf("%w: no pasteboard driver for %s", ErrResourceUnavailable, runtime.GOOS)
	}

	if l, ok := o.driver.(loader); ok {
		if err := l.Load(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrResourceUnavailable, err)
		}
	}

	board, ok := o.driver.GeneralPasteboard()
	if !ok || board == nil {
		return nil, fmt.Errorf("%w: generalPasteboard returned nil", ErrResourceUnavailable)
	}

	p := &Pasteboard{
		board:  board,
		logger: ctxlog.Driver(o.logger, o.driver),
	}
	p.cleanup = runtime.AddCleanup(p, func(b native.Board) { b.Release() }, board)

	return p, nil
}

// Close drops the handle's reference to the board. The board itself is
// shared and stays alive. Close blocks until operations already running on
// other goroutines return. Calls after the first are no-ops.
func (p *Pasteboard) Close() error {
	p.inflight.Lock()
	defer p.inflight.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.cleanup.Stop()
	p.board.Release()

	return nil
}

// Read returns the text of the first item that can be read as a string.
func (p *Pasteboard) Read() (string, error) {
	var text string

	err := p.scoped("pasteboard.Read", func(log zerolog.Logger) error {
		obj, err := p.first(native.ClassString)
		if err != nil {
			return err
		}
		defer obj.Release()

		s, ok := obj.(native.String)
		if !ok {
			return fmt.Errorf("%w: first object is not a string", ErrNoCompatibleData)
		}

		text = s.String()
		log.Trace().Int("length", len(text)).Msg("text read")
		return nil
	})

	return text, err
}

// ReadData returns the plain text and the attachment of the first item.
// A representation the item does not carry comes back empty.
func (p *Pasteboard) ReadData() (string, []byte, error) {
	var (
		text       string
		attachment []byte
	)

	err := p.scoped("pasteboard.ReadData", func(log zerolog.Logger) error {
		it, err := p.firstItem()
		if err != nil {
			return err
		}
		defer it.Release()

		raw, _ := representation(it, TypePlainText)
		text = decodeLossy(raw)
		attachment, _ = representation(it, TypeAttachment)

		log.Debug().
			Int("text_length", len(text)).
			Int("attachment_length", len(attachment)).
			Uint64("attachment_hash", xxhash.Sum64(attachment)).
			Msg("item read")
		return nil
	})

	return text, attachment, err
}

// ReadBuffer lists the type identifiers of the first item in the order the
// server reports them.
func (p *Pasteboard) ReadBuffer() ([]string, error) {
	var types []string

	err := p.scoped("pasteboard.ReadBuffer", func(log zerolog.Logger) error {
		it, err := p.firstItem()
		if err != nil {
			return err
		}
		defer it.Release()

		var ok bool
		if types, ok = it.Types(); !ok {
			return fmt.Errorf("%w: types returned nil", ErrMissingRepresentation)
		}

		log.Trace().Strs("types", types).Msg("types listed")
		return nil
	})

	return types, err
}

// ReadItem snapshots the first item: its type identifiers and whichever of
// the text and attachment representations it carries.
func (p *Pasteboard) ReadItem() (Item, error) {
	var item Item

	err := p.scoped("pasteboard.ReadItem", func(log zerolog.Logger) error {
		it, err := p.firstItem()
		if err != nil {
			return err
		}
		defer it.Release()

		types, ok := it.Types()
		if !ok {
			return fmt.Errorf("%w: types returned nil", ErrMissingRepresentation)
		}
		item.Types = types

		if raw, ok := representation(it, TypePlainText); ok {
			item.RawText = raw
			item.Text = decodeLossy(slices.Clone(raw))
		}
		item.Attachment, _ = representation(it, TypeAttachment)

		log.Trace().Object("item", item).Msg("item read")
		return nil
	})

	return item, err
}

// Write replaces the pasteboard contents with text.
func (p *Pasteboard) Write(text string) error {
	return p.scoped("pasteboard.Write", func(log zerolog.Logger) error {
		s, ok := p.board.NewString(text)
		if !ok || s == nil {
			return fmt.Errorf("%w: text is not representable as a string", ErrWriteRejected)
		}
		defer s.Release()

		if err := p.publish(s); err != nil {
			return err
		}

		log.Trace().Int("length", len(text)).Msg("text written")
		return nil
	})
}

// WriteData replaces the pasteboard contents with one item carrying text as
// plain text and data as the attachment.
func (p *Pasteboard) WriteData(text string, data []byte) error {
	return p.scoped("pasteboard.WriteData", func(log zerolog.Logger) error {
		it, ok := p.board.NewItem()
		if !ok || it == nil {
			return fmt.Errorf("%w: cannot allocate item", ErrWriteRejected)
		}
		defer it.Release()

		if err := p.setData(it, []byte(text), TypePlainText); err != nil {
			return err
		}
		if err := p.setData(it, data, TypeAttachment); err != nil {
			return err
		}

		if err := p.publish(it); err != nil {
			return err
		}

		log.Debug().
			Int("text_length", len(text)).
			Int("attachment_length", len(data)).
			Uint64("attachment_hash", xxhash.Sum64(data)).
			Msg("item written")
		return nil
	})
}

func (p *Pasteboard) scoped(op string, fn func(log zerolog.Logger) error) error {
	p.inflight.RLock()
	defer p.inflight.RUnlock()

	if p.closed {
		return fmt.Errorf("%w: handle closed", ErrResourceUnavailable)
	}

	log := ctxlog.Op(p.logger, op)

	err := p.board.Scoped(func() error { return fn(log) })
	if err != nil {
		log.Debug().Err(err).Send()
	}
	return err
}

// first returns an owned reference to the first object the board yields
// for class.
func (p *Pasteboard) first(class native.Class) (native.Object, error) {
	arr, ok := p.board.ReadObjects(class)
	if !ok || arr == nil {
		return nil, ErrReadNull
	}
	defer arr.Release()

	if arr.Len() == 0 {
		return nil, ErrReadEmpty
	}

	obj := arr.At(0)
	if obj == nil {
		return nil, ErrReadEmpty
	}
	obj.Retain()

	return obj, nil
}

func (p *Pasteboard) firstItem() (native.Item, error) {
	obj, err := p.first(native.ClassItem)
	if err != nil {
		return nil, err
	}

	it, ok := obj.(native.Item)
	if !ok {
		obj.Release()
		return nil, fmt.Errorf("%w: first object is not an item", ErrNoCompatibleData)
	}
	return it, nil
}

// publish clears the board and commits objs. Clearing always succeeds.
func (p *Pasteboard) publish(objs ...native.Object) error {
	p.board.ClearContents()

	if !p.board.WriteObjects(objs...) {
		return fmt.Errorf("%w: writeObjects: returned false", ErrWriteRejected)
	}
	return nil
}

func (p *Pasteboard) setData(it native.Item, b []byte, typ string) error {
	d, ok := p.board.NewData(b)
	if !ok || d == nil {
		return fmt.Errorf("%w: cannot allocate data for %s", ErrWriteRejected, typ)
	}
	defer d.Release()

	if !it.SetData(d, typ) {
		return fmt.Errorf("%w: setData:forType: %s returned false", ErrWriteRejected, typ)
	}
	return nil
}

// representation copies the payload stored under typ. A missing
// representation is reported through ok, never as a failure.
func representation(it native.Item, typ string) (b []byte, ok bool) {
	d, ok := it.DataForType(typ)
	if !ok || d == nil {
		return nil, false
	}
	defer d.Release()

	return d.Bytes(), true
}
