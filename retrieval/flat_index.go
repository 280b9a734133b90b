package retrieval

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"bezbot/types"
)

const (
	IndexFile    = "faiss_index.bin"
	MetadataFile = "metadata.json"
	InfoFile     = "index_info.json"
)

// fourcc FAISS для IndexFlatL2
var flatL2Magic = [4]byte{'I', 'x', 'F', '2'}

const (
	faissDummy    int64 = 1 << 20
	faissMetricL2 int32 = 1
)

var (
	ErrUnsupportedIndex = errors.New("unsupported index type")
	ErrDimension        = errors.New("vector dimension mismatch")
)

// IndexInfo is the optional descriptor written next to the index.
type IndexInfo struct {
	BuildID        string `json:"build_id,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Dimension      int    `json:"dimension"`
	TotalChunks    int    `json:"total_chunks"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// FlatIndex держит все векторы в памяти и ищет полным перебором по L2.
// После загрузки только читается, поэтому безопасен для конкурентных Search.
type FlatIndex struct {
	dim     int
	vectors []float32
	chunks  []types.Chunk
	info    IndexInfo
}

func NewFlatIndex(dim int, vectors []float32, chunks []types.Chunk) (*FlatIndex, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if len(vectors)%dim != 0 {
		return nil, fmt.Errorf("%w: %d floats is not a multiple of %d", ErrDimension, len(vectors), dim)
	}
	for i := range chunks {
		chunks[i].ID = i
	}
	return &FlatIndex{dim: dim, vectors: vectors, chunks: chunks}, nil
}

// LoadFlatIndex читает faiss_index.bin, metadata.json и (если есть) index_info.json.
func LoadFlatIndex(dir string) (*FlatIndex, error) {
	f, err := os.Open(filepath.Join(dir, IndexFile))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()

	dim, vectors, err := ReadFAISS(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", IndexFile, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("open metadata: %w", err)
	}
	var chunks []types.Chunk
	if err := json.Unmarshal(data, &chunks); err != nil {
		return nil, fmt.Errorf("parse %s: %w", MetadataFile, err)
	}

	idx, err := NewFlatIndex(dim, vectors, chunks)
	if err != nil {
		return nil, err
	}

	if data, err := os.ReadFile(filepath.Join(dir, InfoFile)); err == nil {
		if err := json.Unmarshal(data, &idx.info); err != nil {
			return nil, fmt.Errorf("parse %s: %w", InfoFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("open index info: %w", err)
	}
	return idx, nil
}

func (x *FlatIndex) Dim() int { return x.dim }

// Len is the number of searchable chunks: vectors without metadata are never returned.
func (x *FlatIndex) Len() int {
	return min(len(x.vectors)/x.dim, len(x.chunks))
}

func (x *FlatIndex) Info() IndexInfo { return x.info }

// Chunk returns the chunk stored at ordinal id.
func (x *FlatIndex) Chunk(id int) (types.Chunk, bool) {
	if id < 0 || id >= len(x.chunks) {
		return types.Chunk{}, false
	}
	return x.chunks[id], true
}

func (x *FlatIndex) Search(ctx context.Context, vec []float32, k int) ([]types.SearchResult, error) {
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimension, len(vec), x.dim)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type hit struct {
		id   int
		dist float64
	}
	total := len(x.vectors) / x.dim
	hits := make([]hit, 0, total)
	for id := range total {
		hits = append(hits, hit{id: id, dist: squaredL2(vec, x.vectors[id*x.dim:(id+1)*x.dim])})
	}
	// при равных расстояниях выигрывает меньший id
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	results := make([]types.SearchResult, 0, min(k, len(hits)))
	for _, h := range hits[:min(k, len(hits))] {
		if h.id >= len(x.chunks) {
			continue
		}
		results = append(results, types.SearchResult{
			Chunk:    x.chunks[h.id],
			Distance: h.dist,
		})
	}
	return results, nil
}

// ReadFAISS decodes an IndexFlatL2 serialized by faiss.write_index.
func ReadFAISS(r io.Reader) (dim int, vectors []float32, err error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return 0, nil, err
	}
	if magic != flatL2Magic {
		return 0, nil, fmt.Errorf("%w: %q", ErrUnsupportedIndex, magic[:])
	}

	var hdr struct {
		D         int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return 0, nil, fmt.Errorf("header: %w", err)
	}
	if hdr.Metric > 1 {
		var arg float32
		if err := binary.Read(r, binary.LittleEndian, &arg); err != nil {
			return 0, nil, fmt.Errorf("metric arg: %w", err)
		}
	}
	if hdr.Metric != faissMetricL2 {
		return 0, nil, fmt.Errorf("%w: metric %d", ErrUnsupportedIndex, hdr.Metric)
	}
	if hdr.D <= 0 || hdr.NTotal < 0 {
		return 0, nil, fmt.Errorf("invalid header: d=%d ntotal=%d", hdr.D, hdr.NTotal)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, nil, fmt.Errorf("vector count: %w", err)
	}
	if count != uint64(hdr.NTotal)*uint64(hdr.D) {
		return 0, nil, fmt.Errorf("%w: %d floats for %d x %d", ErrDimension, count, hdr.NTotal, hdr.D)
	}

	raw := make([]byte, count*4)
	if _, err := io.ReadFull(r, raw); err != nil {
		return 0, nil, fmt.Errorf("vectors: %w", err)
	}
	vectors = make([]float32, count)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return int(hdr.D), vectors, nil
}

// WriteFAISS encodes vectors as an IndexFlatL2 readable by faiss.read_index.
func WriteFAISS(w io.Writer, dim int, vectors []float32) error {
	if dim <= 0 || len(vectors)%dim != 0 {
		return fmt.Errorf("%w: %d floats for dimension %d", ErrDimension, len(vectors), dim)
	}
	hdr := struct {
		Magic     [4]byte
		D         int32
		NTotal    int64
		Dummy1    int64
		Dummy2    int64
		IsTrained uint8
		Metric    int32
		Count     uint64
	}{
		Magic:     flatL2Magic,
		D:         int32(dim),
		NTotal:    int64(len(vectors) / dim),
		Dummy1:    faissDummy,
		Dummy2:    faissDummy,
		IsTrained: 1,
		Metric:    faissMetricL2,
		Count:     uint64(len(vectors)),
	}
	if err := binary.Write(w, binary.LittleEndian, hdr); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, vectors)
}

// WriteFlatIndex пишет полный набор файлов векторного хранилища в dir.
func WriteFlatIndex(dir string, dim int, vectors []float32, chunks []types.Chunk, info IndexInfo) error {
	if len(vectors) != dim*len(chunks) {
		return fmt.Errorf("%w: %d floats for %d chunks", ErrDimension, len(vectors), len(chunks))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	err := writeFileAtomic(filepath.Join(dir, IndexFile), func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		if err := WriteFAISS(bw, dim, vectors); err != nil {
			return err
		}
		return bw.Flush()
	})
	if err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	for i := range chunks {
		chunks[i].ID = i
	}
	if err := writeJSON(filepath.Join(dir, MetadataFile), chunks); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	info.Dimension = dim
	info.TotalChunks = len(chunks)
	if err := writeJSON(filepath.Join(dir, InfoFile), info); err != nil {
		return fmt.Errorf("write index info: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
