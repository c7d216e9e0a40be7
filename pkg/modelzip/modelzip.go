// Package modelzip implements the archive convention used for uploaded model folders.
// A folder is packed into one zip preserving relative paths. Unpacking locates a single
// previewable model with its optional glTF buffer and any image textures.
package modelzip

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
)

// FileType classifies an archive entry by extension.
type FileType string

const (
	FileTypeGLB     FileType = "glb"
	FileTypeGLTF    FileType = "gltf"
	FileTypeOBJ     FileType = "obj"
	FileTypeFBX     FileType = "fbx"
	FileTypeUnknown FileType = "unknown"
)

const (
	contentTypeGLTF   = "model/gltf+json"
	contentTypeBinary = "application/octet-stream"
)

// File is one entry of a folder to pack.
type File struct {
	Path    string
	Content []byte
}

// Payload is an extracted entry together with its content type.
type Payload struct {
	Path        string
	ContentType string
	Data        []byte
}

// Bundle is the previewable content found inside an archive.
type Bundle struct {
	Kind     FileType
	Model    Payload
	Binary   *Payload
	Textures map[string]Payload
}

// DetectFileType maps a file name to its model kind.
func DetectFileType(name string) FileType {
	switch strings.ToLower(path.Ext(name)) {
	case ".glb":
		return FileTypeGLB
	case ".gltf":
		return FileTypeGLTF
	case ".obj":
		return FileTypeOBJ
	case ".fbx":
		return FileTypeFBX
	default:
		return FileTypeUnknown
	}
}

// Pack zips files into one archive. Entries keep their relative paths and are
// written in path order.
func Pack(files []File) ([]byte, error) {
	sorted := make([]File, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for _, f := range sorted {
		name := strings.TrimPrefix(path.Clean(strings.ReplaceAll(f.Path, "\\", "/")), "/")
		if name == "" || name == "." || strings.HasPrefix(name, "../") {
			_ = zw.Close()
			return nil, fmt.Errorf("invalid entry path %q", f.Path)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := w.Write(f.Content); err != nil {
			_ = zw.Close()
			return nil, fmt.Errorf("write entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Unpack reads an archive produced by Pack. It returns nil without error when the
// archive holds no gltf or fbx model. Only the first model and the first glTF buffer
// are kept.
func Unpack(archive []byte) (*Bundle, error) {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	var (
		bundle *Bundle
		binary *Payload
	)
	textures := make(map[string]Payload)

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := entry.Name
		ext := strings.ToLower(path.Ext(name))

		switch {
		case ext == ".gltf" || ext == ".fbx":
			if bundle != nil {
				continue
			}
			data, err := readEntry(entry)
			if err != nil {
				return nil, err
			}
			kind := DetectFileType(name)
			ct := contentTypeBinary
			if kind == FileTypeGLTF {
				ct = contentTypeGLTF
			}
			bundle = &Bundle{Kind: kind, Model: Payload{Path: name, ContentType: ct, Data: data}}
		case ext == ".bin":
			if binary != nil {
				continue
			}
			data, err := readEntry(entry)
			if err != nil {
				return nil, err
			}
			binary = &Payload{Path: name, ContentType: contentTypeBinary, Data: data}
		case ext == ".png" || ext == ".jpg" || ext == ".jpeg":
			data, err := readEntry(entry)
			if err != nil {
				return nil, err
			}
			textures[name] = Payload{Path: name, ContentType: contentTypeBinary, Data: data}
		}
	}

	if bundle == nil {
		return nil, nil
	}
	if bundle.Kind == FileTypeGLTF {
		bundle.Binary = binary
	}
	bundle.Textures = textures
	return bundle, nil
}

func readEntry(entry *zip.File) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry %s: %w", entry.Name, err)
	}
	defer rc.Close() //nolint:errcheck
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry %s: %w", entry.Name, err)
	}
	return data, nil
}
