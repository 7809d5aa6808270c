package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/librarian/internal/shared/paths"
	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is an archive container and compression pair
type Format int

const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGzip
	FormatTarZstd
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGzip:
		return "tar.gz"
	case FormatTarZstd:
		return "tar.zst"
	default:
		return "unknown"
	}
}

var (
	// ErrUnsupported is returned for payloads that are not a known archive
	ErrUnsupported = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for entries escaping the destination
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// PartialSuffix marks an archive that is still being downloaded. It is
// ignored when guessing the format from the file name.
const PartialSuffix = ".partial"

// Result summarizes an extraction
type Result struct {
	Format Format
	Files  int
	Bytes  int64
}

var mimeFormats = map[string]Format{
	"application/zip":   FormatZip,
	"application/x-tar": FormatTar,
	"application/gzip":  FormatTarGzip,
	"application/zstd":  FormatTarZstd,
}

// Detect sniffs the archive format of path
func Detect(path string) (Format, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return FormatUnknown, err
	}
	for m := mtype; m != nil; m = m.Parent() {
		for mime, format := range mimeFormats {
			if m.Is(mime) {
				return format, nil
			}
		}
	}
	return byExtension(path), nil
}

func byExtension(path string) Format {
	name := strings.TrimSuffix(strings.ToLower(filepath.Base(path)), PartialSuffix)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGzip
	case strings.HasSuffix(name, ".tar.zst"), strings.HasSuffix(name, ".tzst"):
		return FormatTarZstd
	case strings.HasSuffix(name, ".tar"):
		return FormatTar
	default:
		return FormatUnknown
	}
}

// Extract unpacks the archive at src into dest, creating dest if needed.
// Cancellation is checked between entries.
func Extract(ctx context.Context, src, dest string) (Result, error) {
	format, err := Detect(src)
	if err != nil {
		return Result{}, fmt.Errorf("detect archive format: %w", err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, err
	}

	var res Result
	switch format {
	case FormatZip:
		res, err = extractZip(ctx, src, dest)
	case FormatTar, FormatTarGzip, FormatTarZstd:
		res, err = extractTarFile(ctx, src, dest, format)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(src))
	}
	res.Format = format
	return res, err
}

// target resolves an entry name under dest
func target(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	full := filepath.Join(dest, clean)
	if !paths.Within(dest, full) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return full, nil
}

func fileMode(mode os.FileMode) os.FileMode {
	return mode.Perm() | 0o600
}

func writeFile(path string, r io.Reader, mode os.FileMode) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fileMode(mode))
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func extractZip(ctx context.Context, src, dest string) (Result, error) {
	var res Result

	reader, err := zip.OpenReader(src)
	if errors.Is(err, zip.ErrInsecurePath) {
		reader.Close()
		return res, fmt.Errorf("%w: %v", ErrUnsafePath, err)
	}
	if err != nil {
		return res, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		path, err := target(dest, file.Name)
		if err != nil {
			return res, err
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(path, 0o755); err != nil {
				return res, err
			}
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return res, fmt.Errorf("open %s: %w", file.Name, err)
		}
		n, err := writeFile(path, rc, file.Mode())
		rc.Close()
		if err != nil {
			return res, fmt.Errorf("extract %s: %w", file.Name, err)
		}
		res.Files++
		res.Bytes += n
	}
	return res, nil
}

func extractTarFile(ctx context.Context, src, dest string, format Format) (Result, error) {
	file, err := os.Open(src)
	if err != nil {
		return Result{}, err
	}
	defer file.Close()

	var r io.Reader = file
	switch format {
	case FormatTarGzip:
		gz, err := gzip.NewReader(file)
		if err != nil {
			return Result{}, fmt.Errorf("gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	case FormatTarZstd:
		zr, err := zstd.NewReader(file)
		if err != nil {
			return Result{}, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return extractTar(ctx, tar.NewReader(r), dest)
}

func extractTar(ctx context.Context, tr *tar.Reader, dest string) (Result, error) {
	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		header, err := tr.Next()
		if err == io.EOF {
			return res, nil
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return res, fmt.Errorf("%w: %s", ErrUnsafePath, header.Name)
		}
		if err != nil {
			return res, fmt.Errorf("read tar: %w", err)
		}

		path, err := target(dest, header.Name)
		if err != nil {
			return res, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(path, 0o755); err != nil {
				return res, err
			}
		case tar.TypeReg:
			n, err := writeFile(path, tr, header.FileInfo().Mode())
			if err != nil {
				return res, fmt.Errorf("extract %s: %w", header.Name, err)
			}
			res.Files++
			res.Bytes += n
		case tar.TypeSymlink:
			link := header.Linkname
			if !filepath.IsAbs(link) {
				link = filepath.Join(filepath.Dir(path), link)
			}
			if !paths.Within(dest, link) {
				return res, fmt.Errorf("%w: %s -> %s", ErrUnsafePath, header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return res, err
			}
			if err := os.Symlink(header.Linkname, path); err != nil && !os.IsExist(err) {
				return res, err
			}
		default:
			// Hard links and devices are not part of app payloads
		}
	}
}
