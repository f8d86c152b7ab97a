package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

var ErrUnsupportedType = errors.New("unsupported file type, expected PDF, JPEG or PNG")

type FileInfo struct {
	Filename    string
	ContentType string
	Size        int64
}

// Storage keeps uploaded invoice documents. Returned names are relative to
// the storage root.
type Storage interface {
	SaveFile(file io.Reader, info FileInfo) (string, error)
	SavePath(path string) (string, error)
	GetFilePath(name string) (string, error)
	DeleteFile(name string) error
}

type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

var extensionKinds = map[string]Kind{
	".pdf":  KindPDF,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
}

var contentTypeExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
}

// Extension picks the stored file extension from the file name, falling back
// to the content type.
func Extension(info FileInfo) (string, error) {
	ext := strings.ToLower(filepath.Ext(info.Filename))
	if _, ok := extensionKinds[ext]; ok {
		return ext, nil
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(info.ContentType, ";")[0]))
	if ext, ok := contentTypeExtensions[ct]; ok {
		return ext, nil
	}
	return "", ErrUnsupportedType
}

// KindOf classifies a stored file by extension.
func KindOf(name string) (Kind, error) {
	kind, ok := extensionKinds[strings.ToLower(filepath.Ext(name))]
	if !ok {
		return "", ErrUnsupportedType
	}
	return kind, nil
}
