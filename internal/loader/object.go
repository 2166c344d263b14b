package loader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var ErrNoBPFObject = errors.New("no BPF object available")

// Must match the output of bpf/Makefile
const embeddedObjectPath = "obj/sockwho.bpf.o"

// ObjectLoader is an interface which describes objects which
// return/"load" a BPF ELF-format object as a byte slice.
type ObjectLoader interface {
	Load() ([]byte, error)
}

//go:embed all:obj
var objects embed.FS

// EmbeddedObjectLoader returns the BPF ELF-format object embedded in the Go
// executable at build-time.
type EmbeddedObjectLoader struct{}

// Load returns a BPF ELF-format object.
func (*EmbeddedObjectLoader) Load() ([]byte, error) {
	obj, err := objects.ReadFile(embeddedObjectPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoBPFObject
	}
	if err != nil {
		return nil, fmt.Errorf("reading embedded BPF object: %w", err)
	}

	// Guard against some build-time mishap
	if len(obj) == 0 {
		return nil, ErrNoBPFObject
	}

	return obj, nil
}

// FileObjectLoader reads a BPF ELF-format object from the filesystem.
type FileObjectLoader struct {
	Path string
}

func (l *FileObjectLoader) Load() ([]byte, error) {
	obj, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("reading BPF object %q: %w", l.Path, err)
	}

	if len(obj) == 0 {
		return nil, fmt.Errorf("reading BPF object %q: %w", l.Path, ErrNoBPFObject)
	}

	return obj, nil
}

// NewObjectLoader returns a loader for the object at path, or for the
// embedded object when path is empty.
func NewObjectLoader(path string) ObjectLoader {
	if path == "" {
		return new(EmbeddedObjectLoader)
	}
	return &FileObjectLoader{Path: path}
}
