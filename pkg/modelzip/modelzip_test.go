package modelzip

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFileType(t *testing.T) {
	assert.Equal(t, FileTypeGLB, DetectFileType("chair.GLB"))
	assert.Equal(t, FileTypeGLTF, DetectFileType("scene/chair.gltf"))
	assert.Equal(t, FileTypeOBJ, DetectFileType("chair.obj"))
	assert.Equal(t, FileTypeFBX, DetectFileType("chair.fbx"))
	assert.Equal(t, FileTypeUnknown, DetectFileType("readme.md"))
	assert.Equal(t, FileTypeUnknown, DetectFileType("noext"))
}

func TestPackUnpackRoundTrip(t *testing.T) {
	files := []File{
		{Path: "chair/chair.gltf", Content: []byte(`{"asset":{"version":"2.0"}}`)},
		{Path: "chair/chair.bin", Content: []byte{0, 1, 2, 3}},
		{Path: "chair/textures/wood.png", Content: []byte("png-bytes")},
		{Path: "chair/textures/metal.JPG", Content: []byte("jpg-bytes")},
		{Path: "chair/readme.txt", Content: []byte("ignored")},
	}

	archive, err := Pack(files)
	require.NoError(t, err)

	bundle, err := Unpack(archive)
	require.NoError(t, err)
	require.NotNil(t, bundle)

	assert.Equal(t, FileTypeGLTF, bundle.Kind)
	assert.Equal(t, "chair/chair.gltf", bundle.Model.Path)
	assert.Equal(t, "model/gltf+json", bundle.Model.ContentType)
	assert.Equal(t, files[0].Content, bundle.Model.Data)

	require.NotNil(t, bundle.Binary)
	assert.Equal(t, files[1].Content, bundle.Binary.Data)
	assert.Equal(t, "application/octet-stream", bundle.Binary.ContentType)

	require.Len(t, bundle.Textures, 2)
	assert.Equal(t, []byte("png-bytes"), bundle.Textures["chair/textures/wood.png"].Data)
	assert.Equal(t, []byte("jpg-bytes"), bundle.Textures["chair/textures/metal.JPG"].Data)
}

func TestUnpackFBXDropsBinary(t *testing.T) {
	archive, err := Pack([]File{
		{Path: "lamp.fbx", Content: []byte("fbx")},
		{Path: "lamp.bin", Content: []byte("bin")},
	})
	require.NoError(t, err)

	bundle, err := Unpack(archive)
	require.NoError(t, err)
	require.NotNil(t, bundle)
	assert.Equal(t, FileTypeFBX, bundle.Kind)
	assert.Equal(t, "application/octet-stream", bundle.Model.ContentType)
	assert.Nil(t, bundle.Binary)
}

func TestUnpackWithoutPreviewableModel(t *testing.T) {
	archive, err := Pack([]File{
		{Path: "mesh.glb", Content: []byte("glb")},
		{Path: "mesh.obj", Content: []byte("obj")},
	})
	require.NoError(t, err)

	bundle, err := Unpack(archive)
	require.NoError(t, err)
	assert.Nil(t, bundle)
}

func TestUnpackCorruptArchive(t *testing.T) {
	_, err := Unpack([]byte("definitely not a zip"))
	assert.Error(t, err)
}

func TestPackRejectsEscapingPaths(t *testing.T) {
	_, err := Pack([]File{{Path: "../secret.gltf", Content: []byte("x")}})
	assert.Error(t, err)
}

func TestBundleThumbnails(t *testing.T) {
	stored := map[string]string{"a": "thumb-a", "c": "thumb-c"}
	open := func(_ context.Context, id string) (io.ReadCloser, bool, error) {
		v, ok := stored[id]
		if !ok {
			return nil, false, nil
		}
		return io.NopCloser(strings.NewReader(v)), true, nil
	}

	buf := &bytes.Buffer{}
	require.NoError(t, BundleThumbnails(context.Background(), buf, []string{"a", "b", "c"}, open))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"a", "ERROR_b.txt", "c"}, names)
}
