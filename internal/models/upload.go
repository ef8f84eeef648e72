package models

type FileKind string

const (
	KindPDF  FileKind = "pdf"
	KindDOCX FileKind = "docx"
	KindJPEG FileKind = "jpeg"
	KindPNG  FileKind = "png"
)

// MIME types accepted by the upload surface.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
)

func (k FileKind) IsImage() bool {
	return k == KindJPEG || k == KindPNG
}

func (k FileKind) MediaType() string {
	switch k {
	case KindPDF:
		return MIMEPDF
	case KindDOCX:
		return MIMEDOCX
	case KindJPEG:
		return MIMEJPEG
	case KindPNG:
		return MIMEPNG
	}
	return ""
}

// UploadedFile is the file currently attached to the session. It is not
// part of the conversation log.
type UploadedFile struct {
	Name string
	Kind FileKind
	Data []byte
}
