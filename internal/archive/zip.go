package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// ZipWriter builds a flat zip archive from files on disk.
type ZipWriter struct {
	zw *zip.Writer
}

func NewZipWriter(w io.Writer, level int) *ZipWriter {
	if level < flate.HuffmanOnly || level > flate.BestCompression {
		level = flate.BestCompression
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})
	return &ZipWriter{zw: zw}
}

// AddFile copies the file at path into the archive under entryName.
func (z *ZipWriter) AddFile(path, entryName string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build zip header for %s: %w", path, err)
	}
	header.Name = entryName
	header.Method = zip.Deflate

	entry, err := z.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to create zip entry %s: %w", entryName, err)
	}
	if _, err := io.Copy(entry, file); err != nil {
		return fmt.Errorf("failed to write zip entry %s: %w", entryName, err)
	}
	return nil
}

// Finalize writes the central directory. The archive is unusable until it
// returns successfully.
func (z *ZipWriter) Finalize() error {
	return z.zw.Close()
}
