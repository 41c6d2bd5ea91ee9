package pasteboard_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/labi-le/pasteboard/pkg/pasteboard"
	"github.com/labi-le/pasteboard/pkg/pasteboard/memory"
)

var (
	payloadASCII      = "Hello World"
	payloadCyrillic   = "кириллица"
	payloadEmoji      = "👋 🌍 🧑‍💻 🚀"
	payloadLargeMixed = string(bytes.Repeat([]byte("Hello World 👋 кириллица 🌍 🧑‍💻 🚀"), 1000))
)

func testPasteboard(t *testing.T) (*pasteboard.Pasteboard, *memory.Server) {
	t.Helper()

	srv := memory.New()
	pb, err := pasteboard.New(pasteboard.WithDriver(srv))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	t.Cleanup(func() {
		if err := pb.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
		if n := srv.Live(); n != 0 {
			t.Errorf("%d pasteboard objects leaked", n)
		}
		if n := srv.BoardRefs(); n != 0 {
			t.Errorf("%d board references leaked", n)
		}
	})

	return pb, srv
}

func TestPasteboard_WriteRead(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"hello", "hello"},
		{"Empty", ""},
		{"ASCII", payloadASCII},
		{"Cyrillic", payloadCyrillic},
		{"Emoji", payloadEmoji},
		{"LargeMixed", payloadLargeMixed},
		{"Multiline", "first line\nsecond line\r\nthird"},
	}

	pb, srv := testPasteboard(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := pb.Write(tt.text); err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			got, err := pb.Read()
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got != tt.text {
				t.Errorf("Read() mismatch:\ngot len: %d\nwant len: %d", len(got), len(tt.text))
			}
			if n := srv.Live(); n != 0 {
				t.Errorf("%d objects alive after round trip", n)
			}
		})
	}
}

func TestPasteboard_WriteDataReadData(t *testing.T) {
	tests := []struct {
		name string
		text string
		data []byte
	}{
		{"Scenario", "a", []byte{0x01, 0x02}},
		{"EmptyAttachment", "text only in practice", []byte{}},
		{"NilAttachment", "nil", nil},
		{"EmptyText", "", []byte{0xDE, 0xAD, 0xBE, 0xEF}},
		{"Unicode", payloadEmoji, []byte(payloadCyrillic)},
		{"Large", payloadLargeMixed, bytes.Repeat([]byte{0x00, 0xFF}, 1<<15)},
	}

	pb, srv := testPasteboard(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := pb.WriteData(tt.text, tt.data); err != nil {
				t.Fatalf("WriteData() error = %v", err)
			}

			text, data, err := pb.ReadData()
			if err != nil {
				t.Fatalf("ReadData() error = %v", err)
			}
			if text != tt.text {
				t.Errorf("ReadData() text = %q, want %q", text, tt.text)
			}
			if diff := cmp.Diff(tt.data, data, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("ReadData() attachment mismatch (-want +got):\n%s", diff)
			}
			if n := srv.Live(); n != 0 {
				t.Errorf("%d objects alive after round trip", n)
			}
		})
	}
}

func TestPasteboard_ReadBuffer(t *testing.T) {
	pb, _ := testPasteboard(t)

	if err := pb.WriteData("a", []byte{0x01, 0x02}); err != nil {
		t.Fatalf("WriteData() error = %v", err)
	}

	got, err := pb.ReadBuffer()
	if err != nil {
		t.Fatalf("ReadBuffer() error = %v", err)
	}

	want := []string{pasteboard.TypePlainText, pasteboard.TypeAttachment}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadBuffer() mismatch (-want +got):\n%s", diff)
	}

	if err := pb.Write("plain"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	got, err = pb.ReadBuffer()
	if err != nil {
		t.Fatalf("ReadBuffer() error = %v", err)
	}
	if diff := cmp.Diff([]string{pasteboard.TypePlainText}, got); diff != "" {
		t.Errorf("ReadBuffer() after Write mismatch (-want +got):\n%s", diff)
	}
}

func TestPasteboard_ReadBufferKeepsServerOrder(t *testing.T) {
	pb, srv := testPasteboard(t)

	srv.Put(
		memory.Representation{Type: "public.html", Data: []byte("<b>x</b>")},
		memory.Representation{Type: pasteboard.TypeAttachment, Data: []byte{0x07}},
		memory.Representation{Type: pasteboard.TypePlainText, Data: []byte("x")},
	)

	got, err := pb.ReadBuffer()
	if err != nil {
		t.Fatalf("ReadBuffer() error = %v", err)
	}

	want := []string{"public.html", pasteboard.TypeAttachment, pasteboard.TypePlainText}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadBuffer() mismatch (-want +got):\n%s", diff)
	}
}

func TestPasteboard_AbsentAttachment(t *testing.T) {
	pb, _ := testPasteboard(t)

	if err := pb.Write("only text"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	text, data, err := pb.ReadData()
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	if text != "only text" {
		t.Errorf("ReadData() text = %q, want %q", text, "only text")
	}
	if len(data) != 0 {
		t.Errorf("ReadData() attachment = %v, want empty", data)
	}

	item, err := pb.ReadItem()
	if err != nil {
		t.Fatalf("ReadItem() error = %v", err)
	}
	if item.Has(pasteboard.TypeAttachment) {
		t.Errorf("item reports an attachment it does not carry")
	}
	if _, err := item.Representation(pasteboard.TypeAttachment); !errors.Is(err, pasteboard.ErrMissingRepresentation) {
		t.Errorf("Representation() error = %v, want %v", err, pasteboard.ErrMissingRepresentation)
	}
	got, err := item.Representation(pasteboard.TypePlainText)
	if err != nil {
		t.Fatalf("Representation() error = %v", err)
	}
	if string(got) != "only text" {
		t.Errorf("Representation() = %q, want %q", got, "only text")
	}
}

func TestPasteboard_AbsentText(t *testing.T) {
	pb, srv := testPasteboard(t)

	srv.Put(memory.Representation{Type: pasteboard.TypeAttachment, Data: []byte{0x01}})

	if _, err := pb.Read(); !errors.Is(err, pasteboard.ErrReadEmpty) {
		t.Errorf("Read() error = %v, want %v", err, pasteboard.ErrReadEmpty)
	}

	text, data, err := pb.ReadData()
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	if text != "" {
		t.Errorf("ReadData() text = %q, want empty", text)
	}
	if diff := cmp.Diff([]byte{0x01}, data); diff != "" {
		t.Errorf("ReadData() attachment mismatch (-want +got):\n%s", diff)
	}
}

func TestPasteboard_ReadItem(t *testing.T) {
	pb, _ := testPasteboard(t)

	attachment := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	if err := pb.WriteData("caption", attachment); err != nil {
		t.Fatalf("WriteData() error = %v", err)
	}

	got, err := pb.ReadItem()
	if err != nil {
		t.Fatalf("ReadItem() error = %v", err)
	}

	want := pasteboard.Item{
		Types:      []string{pasteboard.TypePlainText, pasteboard.TypeAttachment},
		Text:       "caption",
		RawText:    []byte("caption"),
		Attachment: attachment,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadItem() mismatch (-want +got):\n%s", diff)
	}
	if got.Hash() != want.Hash() {
		t.Errorf("Hash() = %x, want %x", got.Hash(), want.Hash())
	}
}

func TestPasteboard_WriteReplacesContents(t *testing.T) {
	pb, srv := testPasteboard(t)

	if err := pb.WriteData("first", []byte{0x01}); err != nil {
		t.Fatalf("WriteData() error = %v", err)
	}
	if err := pb.Write("second"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := pb.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "second" {
		t.Errorf("Read() = %q, want %q", got, "second")
	}

	want := [][]memory.Representation{
		{{Type: pasteboard.TypePlainText, Data: []byte("second")}},
	}
	if diff := cmp.Diff(want, srv.Items()); diff != "" {
		t.Errorf("board contents mismatch (-want +got):\n%s", diff)
	}
}

func TestPasteboard_NoCompatibleData(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(*memory.Server)
		want    error
	}{
		{
			name:    "cleared board",
			prepare: func(s *memory.Server) { s.Clear() },
			want:    pasteboard.ErrReadEmpty,
		},
		{
			name:    "nil read",
			prepare: func(s *memory.Server) { s.SetNullReads(true) },
			want:    pasteboard.ErrReadNull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb, srv := testPasteboard(t)
			tt.prepare(srv)

			if _, err := pb.Read(); !errors.Is(err, tt.want) || !errors.Is(err, pasteboard.ErrNoCompatibleData) {
				t.Errorf("Read() error = %v, want %v", err, tt.want)
			}
			if _, _, err := pb.ReadData(); !errors.Is(err, tt.want) {
				t.Errorf("ReadData() error = %v, want %v", err, tt.want)
			}
			if _, err := pb.ReadBuffer(); !errors.Is(err, tt.want) {
				t.Errorf("ReadBuffer() error = %v, want %v", err, tt.want)
			}
			if _, err := pb.ReadItem(); !errors.Is(err, tt.want) {
				t.Errorf("ReadItem() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPasteboard_WriteRejected(t *testing.T) {
	t.Run("writeObjects false", func(t *testing.T) {
		pb, srv := testPasteboard(t)
		srv.SetRejectWrites(true)

		if err := pb.Write("x"); !errors.Is(err, pasteboard.ErrWriteRejected) {
			t.Errorf("Write() error = %v, want %v", err, pasteboard.ErrWriteRejected)
		}
		if err := pb.WriteData("x", []byte{0x01}); !errors.Is(err, pasteboard.ErrWriteRejected) {
			t.Errorf("WriteData() error = %v, want %v", err, pasteboard.ErrWriteRejected)
		}
	})

	t.Run("setData false keeps contents", func(t *testing.T) {
		pb, srv := testPasteboard(t)

		if err := pb.Write("keep"); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		srv.SetRejectSets(true)

		if err := pb.WriteData("lost", []byte{0x01}); !errors.Is(err, pasteboard.ErrWriteRejected) {
			t.Errorf("WriteData() error = %v, want %v", err, pasteboard.ErrWriteRejected)
		}

		got, err := pb.Read()
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if got != "keep" {
			t.Errorf("Read() = %q, want %q", got, "keep")
		}
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		pb, _ := testPasteboard(t)

		if err := pb.Write("\xff\xfe"); !errors.Is(err, pasteboard.ErrWriteRejected) {
			t.Errorf("Write() error = %v, want %v", err, pasteboard.ErrWriteRejected)
		}
	})
}

func TestPasteboard_LossyText(t *testing.T) {
	pb, srv := testPasteboard(t)

	srv.Put(memory.Representation{Type: pasteboard.TypePlainText, Data: []byte("a\xffb")})

	text, _, err := pb.ReadData()
	if err != nil {
		t.Fatalf("ReadData() error = %v", err)
	}
	if text != "a\uFFFDb" {
		t.Errorf("ReadData() text = %q, want %q", text, "a\uFFFDb")
	}
}

func TestItem_RawText(t *testing.T) {
	pb, srv := testPasteboard(t)

	raw := []byte("a\xffb")
	srv.Put(memory.Representation{Type: pasteboard.TypePlainText, Data: raw})

	item, err := pb.ReadItem()
	if err != nil {
		t.Fatalf("ReadItem() error = %v", err)
	}
	if item.Text != "a\uFFFDb" {
		t.Errorf("Text = %q, want %q", item.Text, "a\uFFFDb")
	}

	got, err := item.Representation(pasteboard.TypePlainText)
	if err != nil {
		t.Fatalf("Representation() error = %v", err)
	}
	if diff := cmp.Diff(raw, got); diff != "" {
		t.Errorf("Representation() mismatch (-want +got):\n%s", diff)
	}

	got[0] = 'z'
	if item.Text != "a\uFFFDb" {
		t.Errorf("Text changed with RawText: %q", item.Text)
	}
}

type unloadable struct {
	*memory.Server
}

func (unloadable) Load() error { return errors.New("framework missing") }

func TestNew_Unavailable(t *testing.T) {
	tests := []struct {
		name   string
		driver func() *memory.Server
		wrap   func(*memory.Server) pasteboard.Option
	}{
		{
			name: "nil general pasteboard",
			driver: func() *memory.Server {
				srv := memory.New()
				srv.SetUnavailable(true)
				return srv
			},
			wrap: func(s *memory.Server) pasteboard.Option { return pasteboard.WithDriver(s) },
		},
		{
			name:   "driver fails to load",
			driver: memory.New,
			wrap:   func(s *memory.Server) pasteboard.Option { return pasteboard.WithDriver(unloadable{s}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := tt.driver()

			pb, err := pasteboard.New(tt.wrap(srv))
			if !errors.Is(err, pasteboard.ErrResourceUnavailable) {
				t.Fatalf("New() error = %v, want %v", err, pasteboard.ErrResourceUnavailable)
			}
			if pb != nil {
				t.Errorf("New() returned a handle on failure")
			}
			if n := srv.BoardRefs(); n != 0 {
				t.Errorf("BoardRefs() = %d after failed New, want 0", n)
			}
		})
	}
}

func TestPasteboard_Close(t *testing.T) {
	srv := memory.New()

	pb, err := pasteboard.New(pasteboard.WithDriver(srv))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if n := srv.BoardRefs(); n != 1 {
		t.Fatalf("BoardRefs() = %d, want 1", n)
	}

	for range 2 {
		if err := pb.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}
	if n := srv.BoardRefs(); n != 0 {
		t.Errorf("BoardRefs() after Close = %d, want 0", n)
	}

	if _, err := pb.Read(); !errors.Is(err, pasteboard.ErrResourceUnavailable) {
		t.Errorf("Read() after Close error = %v, want %v", err, pasteboard.ErrResourceUnavailable)
	}
	if err := pb.Write("x"); !errors.Is(err, pasteboard.ErrResourceUnavailable) {
		t.Errorf("Write() after Close error = %v, want %v", err, pasteboard.ErrResourceUnavailable)
	}
}

func TestPasteboard_SharedBoard(t *testing.T) {
	srv := memory.New()

	writer, err := pasteboard.New(pasteboard.WithDriver(srv))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer writer.Close()

	reader, err := pasteboard.New(pasteboard.WithDriver(srv))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer reader.Close()

	if err := writer.Write("from another handle"); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := reader.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got != "from another handle" {
		t.Errorf("Read() = %q, want %q", got, "from another handle")
	}
}

func TestPasteboard_Concurrent(t *testing.T) {
	pb, srv := testPasteboard(t)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for range 100 {
				var err error
				switch i % 3 {
				case 0:
					err = pb.WriteData("concurrent", []byte{byte(i)})
				case 1:
					_, err = pb.Read()
				default:
					_, err = pb.ReadBuffer()
				}

				// A read may land between another goroutine's clear and write.
				if err != nil && !errors.Is(err, pasteboard.ErrNoCompatibleData) {
					t.Errorf("goroutine %d: %v", i, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n := srv.Live(); n != 0 {
		t.Errorf("%d objects alive after concurrent use", n)
	}
}

func TestPasteboard_CloseWaitsForInflight(t *testing.T) {
	srv := memory.New()

	pb, err := pasteboard.New(pasteboard.WithDriver(srv))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	for i := range 8 {
		wg.Add(1)
		started.Add(1)
		go func() {
			defer wg.Done()

			once := sync.OnceFunc(started.Done)
			defer once()

			for {
				var err error
				if i%2 == 0 {
					err = pb.Write("racing close")
				} else {
					_, err = pb.Read()
				}
				once()

				if errors.Is(err, pasteboard.ErrResourceUnavailable) {
					return
				}
				if err != nil && !errors.Is(err, pasteboard.ErrNoCompatibleData) {
					t.Errorf("goroutine %d: %v", i, err)
					return
				}
			}
		}()
	}

	started.Wait()
	if err := pb.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	wg.Wait()

	if n := srv.BoardRefs(); n != 0 {
		t.Errorf("BoardRefs() = %d after Close, want 0", n)
	}
	if n := srv.Live(); n != 0 {
		t.Errorf("%d objects alive after Close", n)
	}
}
