package pngtext

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(40 * x), G: uint8(40 * y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test PNG: %v", err)
	}
	return buf.Bytes()
}

func TestWriteReadKeyword(t *testing.T) {
	data := testPNG(t)

	out, err := WriteKeyword(data, "chara", "payload-one")
	if err != nil {
		t.Fatalf("WriteKeyword failed: %v", err)
	}
	text, ok, err := ReadKeyword(out, "chara")
	if err != nil || !ok {
		t.Fatalf("ReadKeyword failed: ok=%v err=%v", ok, err)
	}
	if text != "payload-one" {
		t.Errorf("got %q", text)
	}

	// The image must still decode.
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("output no longer decodes as PNG: %v", err)
	}
}

func TestWriteKeywordReplaces(t *testing.T) {
	data := testPNG(t)
	withFirst, err := WriteKeyword(data, "chara", "first")
	if err != nil {
		t.Fatal(err)
	}
	withSecond, err := WriteKeyword(withFirst, "chara", "second")
	if err != nil {
		t.Fatal(err)
	}
	texts, err := ReadTextChunks(withSecond)
	if err != nil {
		t.Fatal(err)
	}
	count := 0
	for _, chunk := range texts {
		if chunk.Keyword == "chara" {
			count++
			if chunk.Text != "second" {
				t.Errorf("expected replacement, got %q", chunk.Text)
			}
		}
	}
	if count != 1 {
		t.Errorf("expected exactly one chara chunk, got %d", count)
	}
}

func TestWriteKeywordPreservesOtherChunks(t *testing.T) {
	data := testPNG(t)
	withOther, err := WriteKeyword(data, "naidata", "lore")
	if err != nil {
		t.Fatal(err)
	}
	withBoth, err := WriteKeyword(withOther, "chara", "card")
	if err != nil {
		t.Fatal(err)
	}
	lore, ok, err := ReadKeyword(withBoth, "naidata")
	if err != nil || !ok || lore != "lore" {
		t.Errorf("naidata chunk lost: ok=%v err=%v text=%q", ok, err, lore)
	}
}

func TestReadNonPNG(t *testing.T) {
	if _, err := ReadTextChunks([]byte("definitely not a png")); err == nil {
		t.Error("expected error for non-PNG input")
	}
}
