package relay

import (
	"bytes"
	"testing"
)

func TestCodecUTF8Passthrough(t *testing.T) {
	codec, err := NewCodec("utf-8")
	if err != nil {
		t.Fatalf("NewCodec(utf-8) failed: %v", err)
	}
	if codec.Name() != "utf-8" {
		t.Errorf("Name() = %q, want utf-8", codec.Name())
	}

	text, err := codec.Decode([]byte("hello, 世界"))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if text != "hello, 世界" {
		t.Errorf("Decode() = %q", text)
	}

	if got := codec.Encode("hello, 世界"); !bytes.Equal(got, []byte("hello, 世界")) {
		t.Errorf("Encode() = %q", got)
	}
}

func TestCodecUTF8RejectsInvalidBytes(t *testing.T) {
	codec, _ := NewCodec("utf8")

	if _, err := codec.Decode([]byte{0xff, 0xfe, 0xfd}); err == nil {
		t.Error("Decode() accepted invalid UTF-8")
	}
}

func TestCodecGBKRoundTrip(t *testing.T) {
	codec, err := NewCodec("GBK")
	if err != nil {
		t.Fatalf("NewCodec(GBK) failed: %v", err)
	}

	// "你好" in GBK.
	wire := []byte{0xc4, 0xe3, 0xba, 0xc3}

	text, err := codec.Decode(wire)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if text != "你好" {
		t.Errorf("Decode() = %q, want 你好", text)
	}

	if got := codec.Encode(text); !bytes.Equal(got, wire) {
		t.Errorf("Encode() = %x, want %x", got, wire)
	}
}

func TestCodecGBKRejectsMalformedSequence(t *testing.T) {
	codec, _ := NewCodec("gbk")

	// A lead byte with no trailer decodes to the replacement rune, which the
	// codec reports as a malformed message.
	if _, err := codec.Decode([]byte{0xc4}); err == nil {
		t.Error("Decode() accepted a truncated GBK sequence")
	}
}

func TestCodecEncodeNeverFails(t *testing.T) {
	codec, err := NewCodec("iso-8859-1")
	if err != nil {
		t.Fatalf("NewCodec(iso-8859-1) failed: %v", err)
	}

	// Unrepresentable runes are replaced, not dropped as an error.
	if got := codec.Encode("café 世界"); len(got) == 0 {
		t.Error("Encode() returned no bytes for partially unsupported text")
	}
}

func TestCodecUnknownEncoding(t *testing.T) {
	if _, err := NewCodec("klingon-8"); err == nil {
		t.Error("NewCodec() accepted an unknown charset")
	}
}
