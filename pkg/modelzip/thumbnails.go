package modelzip

import (
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// ThumbnailSource opens the thumbnail stored for an id. A missing thumbnail is
// reported through found=false.
type ThumbnailSource func(ctx context.Context, id string) (r io.ReadCloser, found bool, err error)

// BundleThumbnails streams a zip with one entry per id into w. Found thumbnails are
// stored under the bare id. Missing ones get an ERROR_<id>.txt placeholder so the
// client can tell which previews failed.
func BundleThumbnails(ctx context.Context, w io.Writer, ids []string, open ThumbnailSource) error {
	zw := zip.NewWriter(w)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return err
		}
		if err := addThumbnail(ctx, zw, id, open); err != nil {
			_ = zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize thumbnail bundle: %w", err)
	}
	return nil
}

func addThumbnail(ctx context.Context, zw *zip.Writer, id string, open ThumbnailSource) error {
	rc, found, err := open(ctx, id)
	if err != nil {
		return fmt.Errorf("open thumbnail %s: %w", id, err)
	}
	if !found {
		entry, err := zw.Create("ERROR_" + id + ".txt")
		if err != nil {
			return fmt.Errorf("create placeholder %s: %w", id, err)
		}
		_, err = io.WriteString(entry, "Thumbnail not found for "+id)
		return err
	}
	defer rc.Close() //nolint:errcheck

	entry, err := zw.CreateHeader(&zip.FileHeader{Name: id, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", id, err)
	}
	if _, err := io.Copy(entry, rc); err != nil {
		return fmt.Errorf("copy thumbnail %s: %w", id, err)
	}
	return nil
}
