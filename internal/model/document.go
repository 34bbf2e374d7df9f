// Package model defines the data types that flow through the evidence pipeline.
package model

// Page is the extracted text of one page of a document. Number is 1-based.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// Document is an uploaded file after text extraction.
// Pages without extractable text are omitted.
type Document struct {
	Filename string `json:"filename"`
	Pages    []Page `json:"pages"`
}

// Chunk is a sentence-level passage tagged with its source document and page.
type Chunk struct {
	Text     string `json:"text"`
	Document string `json:"filename"`
	Page     int    `json:"page"`
}

// EmbeddedChunk is a Chunk plus its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Vector []float32 `json:"-"`
}

// UploadFile is a raw document handed to the upload operation.
type UploadFile struct {
	Filename string
	Data     []byte
}
