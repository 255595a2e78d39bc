// Package extract turns statement documents into text and tables for the
// import pipeline. The pipeline treats extraction as an opaque collaborator;
// this package provides the contract plus a Gemini-backed implementation.
package extract

import "context"

// Document is the structured result of extracting one statement file.
type Document struct {
	Text      string       `json:"text"`
	Tables    [][][]string `json:"tables"`
	PageCount int          `json:"page_count"`
}

// Extractor extracts text and tables from raw document bytes. It fails with
// domain.ErrEmptyDocument when the document has zero pages.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (*Document, error)
}
