package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xhad/newton/internal/models"
)

var ErrUnsupportedKind = errors.New("unsupported file type: expected PDF, Word document, JPEG or PNG")

// Extractor turns uploaded documents into plain text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// Extract returns the text of a PDF or Word upload. Any other kind yields
// an empty string. Library failures are returned as they are.
func (e *Extractor) Extract(file models.UploadedFile) (string, error) {
	r := bytes.NewReader(file.Data)
	switch file.Kind {
	case models.KindPDF:
		return ExtractPDF(r, int64(len(file.Data)))
	case models.KindDOCX:
		return ExtractDOCX(r, int64(len(file.Data)))
	}
	return "", nil
}

// DetectKind sniffs the content and falls back to the file extension.
func DetectKind(name string, data []byte) (models.FileKind, error) {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if kind, ok := kindByMIME(m.String()); ok {
			return kind, nil
		}
	}

	// DOCX files written by some tools only sniff as a plain zip archive.
	if mtype.Is("application/zip") {
		if kind, ok := kindByExtension(name); ok && kind == models.KindDOCX {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%s (%s): %w", filepath.Base(name), mtype.String(), ErrUnsupportedKind)
}

func kindByMIME(m string) (models.FileKind, bool) {
	switch m {
	case models.MIMEPDF:
		return models.KindPDF, true
	case models.MIMEDOCX:
		return models.KindDOCX, true
	case models.MIMEJPEG:
		return models.KindJPEG, true
	case models.MIMEPNG:
		return models.KindPNG, true
	}
	return "", false
}

func kindByExtension(name string) (models.FileKind, bool) {
	switch filepath.Ext(name) {
	case ".pdf":
		return models.KindPDF, true
	case ".docx":
		return models.KindDOCX, true
	case ".jpg", ".jpeg":
		return models.KindJPEG, true
	case ".png":
		return models.KindPNG, true
	}
	return "", false
}

// NewUpload validates raw bytes received from an upload surface.
func NewUpload(name string, data []byte) (*models.UploadedFile, error) {
	kind, err := DetectKind(name, data)
	if err != nil {
		return nil, err
	}
	return &models.UploadedFile{
		Name: filepath.Base(name),
		Kind: kind,
		Data: data,
	}, nil
}

// Load reads an upload from disk.
func Load(path string) (*models.UploadedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", path, err)
	}
	return NewUpload(path, data)
}
