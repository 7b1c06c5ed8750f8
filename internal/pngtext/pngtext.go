// Package pngtext reads and writes PNG tEXt/iTXt chunks without touching the
// image data. Character cards ride in a tEXt chunk keyed "chara"; NovelAI
// lorebook exports use "naidata".
package pngtext

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// TextChunk is one decoded textual chunk.
type TextChunk struct {
	Keyword string
	Text    string
}

type rawChunk struct {
	typ  string
	data []byte
}

func readChunks(data []byte) ([]rawChunk, error) {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return nil, fmt.Errorf("not a PNG file")
	}
	var chunks []rawChunk
	offset := len(pngSignature)
	for offset+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[offset : offset+4]))
		typ := string(data[offset+4 : offset+8])
		if offset+12+length > len(data) {
			return nil, fmt.Errorf("truncated PNG chunk %q", typ)
		}
		chunkData := data[offset+8 : offset+8+length]
		expected := binary.BigEndian.Uint32(data[offset+8+length : offset+12+length])
		crc := crc32.NewIEEE()
		crc.Write(data[offset+4 : offset+8])
		crc.Write(chunkData)
		if crc.Sum32() != expected {
			return nil, fmt.Errorf("bad CRC on PNG chunk %q", typ)
		}
		chunks = append(chunks, rawChunk{typ: typ, data: chunkData})
		offset += 12 + length
		if typ == "IEND" {
			break
		}
	}
	if len(chunks) == 0 || chunks[len(chunks)-1].typ != "IEND" {
		return nil, fmt.Errorf("PNG missing IEND chunk")
	}
	return chunks, nil
}

func decodeText(chunk rawChunk) (TextChunk, bool) {
	switch chunk.typ {
	case "tEXt":
		idx := bytes.IndexByte(chunk.data, 0)
		if idx < 0 {
			return TextChunk{}, false
		}
		return TextChunk{Keyword: string(chunk.data[:idx]), Text: string(chunk.data[idx+1:])}, true
	case "iTXt":
		idx := bytes.IndexByte(chunk.data, 0)
		if idx < 0 || idx+2 >= len(chunk.data) {
			return TextChunk{}, false
		}
		keyword := string(chunk.data[:idx])
		compressed := chunk.data[idx+1] == 1
		rest := chunk.data[idx+3:]
		// Skip language tag and translated keyword.
		for i := 0; i < 2; i++ {
			n := bytes.IndexByte(rest, 0)
			if n < 0 {
				return TextChunk{}, false
			}
			rest = rest[n+1:]
		}
		if !compressed {
			return TextChunk{Keyword: keyword, Text: string(rest)}, true
		}
		r, err := zlib.NewReader(bytes.NewReader(rest))
		if err != nil {
			return TextChunk{}, false
		}
		defer r.Close()
		text, err := io.ReadAll(r)
		if err != nil {
			return TextChunk{}, false
		}
		return TextChunk{Keyword: keyword, Text: string(text)}, true
	}
	return TextChunk{}, false
}

// ReadTextChunks returns every textual chunk of a PNG in file order.
func ReadTextChunks(data []byte) ([]TextChunk, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}
	var texts []TextChunk
	for _, chunk := range chunks {
		if text, ok := decodeText(chunk); ok {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// ReadKeyword returns the text of the first tEXt/iTXt chunk with the given
// keyword.
func ReadKeyword(data []byte, keyword string) (string, bool, error) {
	texts, err := ReadTextChunks(data)
	if err != nil {
		return "", false, err
	}
	for _, text := range texts {
		if text.Keyword == keyword {
			return text.Text, true, nil
		}
	}
	return "", false, nil
}

func encodeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.WriteString(typ)
	buf.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])
}

// WriteKeyword returns a copy of the PNG where the first tEXt/iTXt chunk with
// the given keyword is replaced with a tEXt chunk carrying text. When no such
// chunk exists one is inserted before IEND. All other chunks are preserved
// byte-for-byte.
func WriteKeyword(data []byte, keyword, text string) ([]byte, error) {
	chunks, err := readChunks(data)
	if err != nil {
		return nil, err
	}

	payload := append(append([]byte(keyword), 0), []byte(text)...)
	replaced := false

	var out bytes.Buffer
	out.Grow(len(data) + len(payload) + 12)
	out.Write(pngSignature)
	for _, chunk := range chunks {
		if !replaced && (chunk.typ == "tEXt" || chunk.typ == "iTXt") {
			if decoded, ok := decodeText(chunk); ok && decoded.Keyword == keyword {
				encodeChunk(&out, "tEXt", payload)
				replaced = true
				continue
			}
		}
		if chunk.typ == "IEND" && !replaced {
			encodeChunk(&out, "tEXt", payload)
			replaced = true
		}
		encodeChunk(&out, chunk.typ, chunk.data)
	}
	return out.Bytes(), nil
}
