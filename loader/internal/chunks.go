package internal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"bezbot/types"
)

var ErrNoChunks = errors.New("no chunks in input")

// ReadChunks читает записи чанков из JSON-массива или JSON Lines.
// Записи без текста пропускаются.
func ReadChunks(path string) ([]types.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	chunks, err := DecodeChunks(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return chunks, nil
}

func DecodeChunks(r io.Reader) ([]types.Chunk, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoChunks
		}
		return nil, err
	}

	var records []types.Chunk
	dec := json.NewDecoder(br)
	if first == '[' {
		if err := dec.Decode(&records); err != nil {
			return nil, err
		}
	} else {
		for {
			var c types.Chunk
			err := dec.Decode(&c)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", len(records)+1, err)
			}
			records = append(records, c)
		}
	}

	chunks := records[:0]
	for _, c := range records {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		chunks = append(chunks, c)
	}
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	return chunks, nil
}

// EmbeddingText — текст, по которому строится вектор чанка:
// заголовок параграфа и сам текст.
func EmbeddingText(c types.Chunk) string {
	if c.ParagraphName == "" {
		return c.Text
	}
	return c.ParagraphName + "\n" + c.Text
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		if !strings.ContainsRune(" \t\r\n", rune(b)) {
			return b, br.UnreadByte()
		}
	}
}
