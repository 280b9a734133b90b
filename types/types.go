package types

import "unicode/utf8"

// Chunk is one retrievable paragraph of an indexed document. ID is the
// ordinal position of the chunk inside the vector index.
type Chunk struct {
	ID                int    `json:"chunk_id"`
	Text              string `json:"text"`
	DocumentName      string `json:"document_name,omitempty"`
	DocumentShortName string `json:"document_short_name,omitempty"`
	DocumentSource    string `json:"document_source,omitempty"`
	DocumentNumber    string `json:"document_number,omitempty"`
	DocumentDate      string `json:"document_date,omitempty"`
	ParagraphName     string `json:"paragraph_name,omitempty"`
	ParagraphNumber   *int   `json:"paragraph_number,omitempty"`
	PageNumber        *int   `json:"page_number,omitempty"`
}

// DocumentKey identifies the source document of the chunk: the short name
// when present, the full name otherwise.
func (c Chunk) DocumentKey() string {
	if c.DocumentShortName != "" {
		return c.DocumentShortName
	}
	return c.DocumentName
}

type SearchResult struct {
	Chunk
	Rank     int
	Distance float64
	Score    float64
}

// Response converts the result into its wire shape.
func (r SearchResult) Response() ChunkResponse {
	return ChunkResponse{
		Rank:              r.Rank,
		Score:             r.Score,
		Distance:          r.Distance,
		DocumentName:      Optional(r.DocumentName),
		DocumentShortName: Optional(r.DocumentShortName),
		DocumentSource:    Optional(r.DocumentSource),
		DocumentNumber:    Optional(r.DocumentNumber),
		DocumentDate:      Optional(r.DocumentDate),
		ParagraphName:     Optional(r.ParagraphName),
		ParagraphNumber:   r.ParagraphNumber,
		PageNumber:        r.PageNumber,
		Text:              r.Text,
		TextLength:        utf8.RuneCountInString(r.Text),
	}
}

type Source struct {
	DocumentName      string  `json:"document_name"`
	DocumentShortName string  `json:"document_short_name"`
	DocumentSource    string  `json:"document_source"`
	DocumentNumber    *string `json:"document_number"`
	DocumentDate      *string `json:"document_date"`
}

type Answer struct {
	Query          string
	Context        string
	ContextLength  int
	NumChunksUsed  int
	Sources        []Source
	RelevantChunks []SearchResult
}

func (a Answer) Response() RAGAnswerResponse {
	chunks := make([]ChunkResponse, len(a.RelevantChunks))
	for i, r := range a.RelevantChunks {
		chunks[i] = r.Response()
	}
	sources := a.Sources
	if sources == nil {
		sources = []Source{}
	}
	return RAGAnswerResponse{
		Query:          a.Query,
		Context:        a.Context,
		ContextLength:  a.ContextLength,
		NumChunksUsed:  a.NumChunksUsed,
		Sources:        sources,
		RelevantChunks: chunks,
	}
}

// Question is a single quiz question: text, options, index of the correct
// option and optional indexes of known wrong options.
type Question struct {
	Q string   `json:"q"`
	O []string `json:"o"`
	C *int     `json:"c,omitempty"`
	W []int    `json:"w,omitempty"`
}

func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
