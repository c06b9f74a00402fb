package platform

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"linkup/backend/internal/models"

	"github.com/google/uuid"
)

// Files is the upload intake collaborator: given a binary it returns a
// retrievable URL, name and size for attaching to a message.
type Files interface {
	Store(name string, r io.Reader) (models.FileDescriptor, error)
}

// DiskFiles stores uploads on the local filesystem and serves them under a
// static base URL.
type DiskFiles struct {
	dir     string
	baseURL string
}

func NewDiskFiles(dir, baseURL string) (*DiskFiles, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskFiles{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (f *DiskFiles) Store(name string, r io.Reader) (models.FileDescriptor, error) {
	safeName := filepath.Base(name)
	stored := uuid.New().String() + "_" + safeName

	dst, err := os.Create(filepath.Join(f.dir, stored))
	if err != nil {
		return models.FileDescriptor{}, err
	}
	defer dst.Close()

	size, err := io.Copy(dst, r)
	if err != nil {
		return models.FileDescriptor{}, err
	}

	return models.FileDescriptor{
		URL:  fmt.Sprintf("%s/%s", f.baseURL, stored),
		Name: safeName,
		Size: size,
	}, nil
}
