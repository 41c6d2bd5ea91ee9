package mime_test

import (
	"testing"

	"github.com/labi-le/pasteboard/pkg/mime"
)

func TestFromUTI(t *testing.T) {
	tests := []struct {
		id   string
		want mime.Type
	}{
		{mime.TypePlainText, mime.TypeText},
		{mime.TypeKakaoAttachment, mime.TypeBinary},
		{"PUBLIC.PNG", mime.TypeImage},
		{"public.file-url", mime.TypePath},
		{"public.utf16-external-plain-text", mime.TypeText},
		{"com.apple.quicktime-movie", mime.TypeVideo},
		{"com.example.private", mime.TypeBinary},
		{"  ", mime.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := mime.FromUTI(tt.id); got != tt.want {
				t.Errorf("FromUTI(%q) = %s, want %s", tt.id, got, tt.want)
			}
		})
	}
}

func TestFrom(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want mime.Type
	}{
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}, mime.TypeImage},
		{"gzip", []byte{0x1F, 0x8B, 0x08}, mime.TypeBinary},
		{"text", []byte("hello"), mime.TypeText},
		{"empty", nil, mime.TypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mime.From(tt.data); got != tt.want {
				t.Errorf("From() = %s, want %s", got, tt.want)
			}
		})
	}
}
