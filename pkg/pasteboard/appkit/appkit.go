//go:build darwin

// Package appkit talks to NSPasteboard through the Objective-C runtime,
// without cgo.
package appkit

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	"github.com/ebitengine/purego/objc"
	"github.com/labi-le/pasteboard/pkg/pasteboard/native"
)

const (
	appKitPath = "/System/Library/Frameworks/AppKit.framework/AppKit"

	nsUTF8StringEncoding = 4
)

var (
	_ native.Driver = &Driver{}
	_ native.Board  = &board{}
	_ native.Item   = &item{}
)

var (
	selAlloc   = objc.RegisterName("alloc")
	selInit    = objc.RegisterName("init")
	selNew     = objc.RegisterName("new")
	selRetain  = objc.RegisterName("retain")
	selRelease = objc.RegisterName("release")
	selDrain   = objc.RegisterName("drain")

	selGeneralPasteboard    = objc.RegisterName("generalPasteboard")
	selClearContents        = objc.RegisterName("clearContents")
	selReadObjects          = objc.RegisterName("readObjectsForClasses:options:")
	selWriteObjects         = objc.RegisterName("writeObjects:")
	selSetDataForType       = objc.RegisterName("setData:forType:")
	selDataForType          = objc.RegisterName("dataForType:")
	selTypes                = objc.RegisterName("types")
	selIsKindOfClass        = objc.RegisterName("isKindOfClass:")
	selArrayWithCapacity    = objc.RegisterName("arrayWithCapacity:")
	selAddObject            = objc.RegisterName("addObject:")
	selCount                = objc.RegisterName("count")
	selObjectAtIndex        = objc.RegisterName("objectAtIndex:")
	selStringWithUTF8String = objc.RegisterName("stringWithUTF8String:")
	selInitWithBytesLenEnc  = objc.RegisterName("initWithBytes:length:encoding:")
	selInitWithBytesLen     = objc.RegisterName("initWithBytes:length:")
	selUTF8String           = objc.RegisterName("UTF8String")
	selLengthOfBytes        = objc.RegisterName("lengthOfBytesUsingEncoding:")
	selBytes                = objc.RegisterName("bytes")
	selLength               = objc.RegisterName("length")
)

var (
	loadOnce sync.Once
	loadErr  error

	clsNSPasteboard      objc.Class
	clsNSPasteboardItem  objc.Class
	clsNSString          objc.Class
	clsNSData            objc.Class
	clsNSMutableArray    objc.Class
	clsNSAutoreleasePool objc.Class
)

func load() error {
	loadOnce.Do(func() {
		if _, err := purego.Dlopen(appKitPath, purego.RTLD_GLOBAL|purego.RTLD_LAZY); err != nil {
			loadErr = fmt.Errorf("appkit: failed to load AppKit: %w", err)
			return
		}

		clsNSPasteboard = objc.GetClass("NSPasteboard")
		clsNSPasteboardItem = objc.GetClass("NSPasteboardItem")
		clsNSString = objc.GetClass("NSString")
		clsNSData = objc.GetClass("NSData")
		clsNSMutableArray = objc.GetClass("NSMutableArray")
		clsNSAutoreleasePool = objc.GetClass("NSAutoreleasePool")

		for name, cls := range map[string]objc.Class{
			"NSPasteboard":      clsNSPasteboard,
			"NSPasteboardItem":  clsNSPasteboardItem,
			"NSString":          clsNSString,
			"NSData":            clsNSData,
			"NSMutableArray":    clsNSMutableArray,
			"NSAutoreleasePool": clsNSAutoreleasePool,
		} {
			if cls == 0 {
				loadErr = fmt.Errorf("appkit: class %s not found", name)
				return
			}
		}
	})
	return loadErr
}

// Driver hands out the general pasteboard.
type Driver struct{}

func New() *Driver {
	return new(Driver)
}

// Load resolves AppKit and the classes the driver needs. Only the first
// call does any work.
func (d *Driver) Load() error {
	return load()
}

func (d *Driver) GeneralPasteboard() (native.Board, bool) {
	if err := load(); err != nil {
		return nil, false
	}

	var pb objc.ID
	withPool(func() {
		pb = objc.ID(clsNSPasteboard).Send(selGeneralPasteboard)
		if pb != 0 {
			pb.Send(selRetain)
		}
	})
	if pb == 0 {
		return nil, false
	}

	return &board{object{id: pb}}, true
}

func withPool(fn func()) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pool := objc.ID(clsNSAutoreleasePool).Send(selNew)
	defer pool.Send(selDrain)

	fn()
}

// object owns one reference to id unless it was handed out as borrowed.
type object struct {
	id objc.ID
}

func (o object) Retain()         { o.id.Send(selRetain) }
func (o object) Release()        { o.id.Send(selRelease) }
func (o object) objcID() objc.ID { return o.id }

type identified interface {
	objcID() objc.ID
}

type board struct {
	object
}

// Scoped pins the goroutine to its thread and drains a fresh autorelease
// pool once fn returns.
func (b *board) Scoped(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	pool := objc.ID(clsNSAutoreleasePool).Send(selNew)
	defer pool.Send(selDrain)

	return fn()
}

func (b *board) ClearContents() {
	b.id.Send(selClearContents)
}

func (b *board) ReadObjects(classes ...native.Class) (native.Array, bool) {
	list := objc.ID(clsNSMutableArray).Send(selArrayWithCapacity, uintptr(len(classes)))
	if list == 0 {
		return nil, false
	}

	wanted := make([]native.Class, 0, len(classes))
	for _, c := range classes {
		cls := classOf(c)
		if cls == 0 {
			continue
		}
		list.Send(selAddObject, objc.ID(cls))
		wanted = append(wanted, c)
	}

	res := b.id.Send(selReadObjects, list, objc.ID(0))
	if res == 0 {
		return nil, false
	}
	res.Send(selRetain)

	return &array{object: object{id: res}, classes: wanted}, true
}

func (b *board) WriteObjects(objs ...native.Object) bool {
	list := objc.ID(clsNSMutableArray).Send(selArrayWithCapacity, uintptr(len(objs)))
	if list == 0 {
		return false
	}

	for _, obj := range objs {
		o, ok := obj.(identified)
		if !ok || o.objcID() == 0 {
			return false
		}
		list.Send(selAddObject, o.objcID())
	}

	return objc.Send[bool](b.id, selWriteObjects, list)
}

func (b *board) NewString(s string) (native.String, bool) {
	var ptr uintptr
	if len(s) > 0 {
		ptr = uintptr(unsafe.Pointer(unsafe.StringData(s)))
	}

	id := objc.ID(clsNSString).Send(selAlloc).
		Send(selInitWithBytesLenEnc, ptr, uintptr(len(s)), uintptr(nsUTF8StringEncoding))
	runtime.KeepAlive(s)

	if id == 0 {
		return nil, false
	}
	return &str{object{id: id}}, true
}

func (b *board) NewData(buf []byte) (native.Data, bool) {
	var ptr uintptr
	if len(buf) > 0 {
		ptr = uintptr(unsafe.Pointer(&buf[0]))
	}

	id := objc.ID(clsNSData).Send(selAlloc).Send(selInitWithBytesLen, ptr, uintptr(len(buf)))
	runtime.KeepAlive(buf)

	if id == 0 {
		return nil, false
	}
	return &data{object{id: id}}, true
}

func (b *board) NewItem() (native.Item, bool) {
	id := objc.ID(clsNSPasteboardItem).Send(selAlloc).Send(selInit)
	if id == 0 {
		return nil, false
	}
	return &item{object{id: id}}, true
}

type array struct {
	object
	classes []native.Class
}

func (a *array) Len() int {
	return int(a.id.Send(selCount))
}

// At wraps the element as the class the read was filtered by. With a
// single class the server guarantees the element type.
func (a *array) At(i int) native.Object {
	id := a.id.Send(selObjectAtIndex, uintptr(i))
	if id == 0 {
		return nil
	}

	if len(a.classes) == 1 {
		return wrap(id, a.classes[0])
	}
	for _, c := range a.classes {
		if objc.Send[bool](id, selIsKindOfClass, objc.ID(classOf(c))) {
			return wrap(id, c)
		}
	}
	return object{id: id}
}

func wrap(id objc.ID, c native.Class) native.Object {
	switch c {
	case native.ClassString:
		return &str{object{id: id}}
	case native.ClassItem:
		return &item{object{id: id}}
	default:
		return object{id: id}
	}
}

func classOf(c native.Class) objc.Class {
	switch c {
	case native.ClassString:
		return clsNSString
	case native.ClassItem:
		return clsNSPasteboardItem
	default:
		return 0
	}
}

type str struct {
	object
}

func (s *str) String() string {
	return goString(s.id)
}

type data struct {
	object
}

func (d *data) Bytes() []byte {
	n := int(d.id.Send(selLength))
	if n <= 0 {
		return nil
	}

	ptr := d.id.Send(selBytes)
	if ptr == 0 {
		return nil
	}

	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
	return out
}

type item struct {
	object
}

func (it *item) SetData(d native.Data, typ string) bool {
	o, ok := d.(identified)
	if !ok || o.objcID() == 0 {
		return false
	}

	nsType := nsString(typ)
	if nsType == 0 {
		return false
	}

	return objc.Send[bool](it.id, selSetDataForType, o.objcID(), nsType)
}

func (it *item) DataForType(typ string) (native.Data, bool) {
	nsType := nsString(typ)
	if nsType == 0 {
		return nil, false
	}

	id := it.id.Send(selDataForType, nsType)
	if id == 0 {
		return nil, false
	}
	id.Send(selRetain)

	return &data{object{id: id}}, true
}

func (it *item) Types() ([]string, bool) {
	list := it.id.Send(selTypes)
	if list == 0 {
		return nil, false
	}

	n := int(list.Send(selCount))
	types := make([]string, 0, n)
	for i := range n {
		s := list.Send(selObjectAtIndex, uintptr(i))
		if s == 0 {
			continue
		}
		types = append(types, goString(s))
	}

	return types, true
}

// nsString returns an autoreleased NSString.
func nsString(s string) objc.ID {
	return objc.ID(clsNSString).Send(selStringWithUTF8String, s)
}

// goString copies the UTF-8 contents of an NSString.
func goString(id objc.ID) string {
	n := int(id.Send(selLengthOfBytes, uintptr(nsUTF8StringEncoding)))
	if n <= 0 {
		return ""
	}

	ptr := id.Send(selUTF8String)
	if ptr == 0 {
		return ""
	}

	return string(unsafe.Slice((*byte)(unsafe.Pointer(ptr)), n))
}
