package mime

import (
	"bytes"
	"strings"
)

// Type identifiers exchanged with other applications.
const (
	TypePlainText       = "public.utf8-plain-text"
	TypeKakaoAttachment = "com.kakao.kakaoTalk.emoji.attachment"
)

type Type int32

const (
	TypeUnknown Type = iota - 1

	TypeText
	TypeImage
	TypePath

	TypeAudio
	TypeVideo
	TypeBinary
)

func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeImage:
		return "image"
	case TypePath:
		return "path"
	case TypeAudio:
		return "audio"
	case TypeVideo:
		return "video"
	case TypeBinary:
		return "binary"
	default:
		return "unknown"
	}
}

var utiTypes = map[string]Type{
	TypePlainText:             TypeText,
	"public.plain-text":       TypeText,
	"public.utf16-plain-text": TypeText,
	"public.rtf":              TypeText,
	"public.html":             TypeText,
	"nsstringpboardtype":      TypeText,

	"public.png":         TypeImage,
	"public.jpeg":        TypeImage,
	"public.tiff":        TypeImage,
	"com.compuserve.gif": TypeImage,

	"public.file-url":       TypePath,
	"public.url":            TypePath,
	"nsfilenamespboardtype": TypePath,

	"public.mp3":                TypeAudio,
	"public.mpeg-4":             TypeVideo,
	"com.apple.quicktime-movie": TypeVideo,

	strings.ToLower(TypeKakaoAttachment): TypeBinary,
}

// FromUTI classifies a type identifier. Identifiers outside the public
// namespace are application-private blobs.
func FromUTI(id string) Type {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return TypeUnknown
	}
	if typ, ok := utiTypes[id]; ok {
		return typ
	}

	switch {
	case strings.HasPrefix(id, "public.") && strings.Contains(id, "text"):
		return TypeText
	case strings.HasPrefix(id, "public.") && strings.Contains(id, "image"):
		return TypeImage
	case strings.HasPrefix(id, "public.") && strings.Contains(id, "audio"):
		return TypeAudio
	case strings.HasPrefix(id, "public.") && strings.Contains(id, "movie"):
		return TypeVideo
	default:
		return TypeBinary
	}
}

func fromBytesSniff(data []byte) Type {
	switch {
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}):
		return TypeImage
	case len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}):
		return TypeImage
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x47, 0x49, 0x46, 0x38}):
		return TypeImage
	case len(data) >= 2 && bytes.Equal(data[:2], []byte{0x42, 0x4D}):
		return TypeImage
	case len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")):
		return TypeImage
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x25, 0x50, 0x44, 0x46}):
		return TypeBinary
	case len(data) >= 4 && bytes.Equal(data[:4], []byte{0x50, 0x4B, 0x03, 0x04}):
		return TypeBinary
	case len(data) >= 2 && bytes.Equal(data[:2], []byte{0x1F, 0x8B}):
		return TypeBinary
	case len(data) == 0:
		return TypeUnknown
	default:
		return TypeText
	}
}

// From sniffs the kind of a raw payload by its magic bytes.
func From(src []byte) Type {
	return fromBytesSniff(src)
}
