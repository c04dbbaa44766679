package domain

import "time"

// FileAttachment is an opaque payload attached to a resolution. The engine
// records metadata and stores the bytes untouched; it never inspects them.
type FileAttachment struct {
	ID         string
	Name       string
	Size       int64
	MimeType   string
	Payload    []byte
	UploadedAt time.Time
}

// Ref returns the metadata reference carried on resolutions.
func (f *FileAttachment) Ref() AttachmentRef {
	return AttachmentRef{ID: f.ID, Name: f.Name, Size: f.Size, MimeType: f.MimeType}
}
