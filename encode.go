package epaper

import (
	"bytes"
	"crypto/sha1"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/everframe/epaper/pack"
	"github.com/everframe/epaper/raster"
	"github.com/everframe/epaper/resample"
	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Ext is the file extension used for packed frame buffers.
const Ext = ".bin"

// Result is an encoded frame.
type Result struct {
	// Data is the packed frame buffer
	Data []byte
	// Size is the resolution of the frame
	Size raster.Size
	// SourceSize is the resolution of the decoded source image, it is
	// zero when the frame was served from the cache
	SourceSize raster.Size
	// Cached is set when the frame was served from the cache
	Cached bool
}

// Encode resamples m to the configured resolution, dithers it to the
// palette and packs it.
func (e *Encoder) Encode(m image.Image) (*Result, error) {
	size := e.quantizer.Size()

	rgb, err := resample.Resample(m, size, e.cfg.Backend)
	if err != nil {
		return nil, err
	}

	ix, err := e.quantizer.Quantize(rgb)
	if err != nil {
		return nil, err
	}

	b, err := pack.Pack(ix, size)
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:       b,
		Size:       size,
		SourceSize: raster.SizeOf(m.Bounds()),
	}, nil
}

// EncodeTo encodes m and writes the frame buffer to w in a single write.
// Nothing is written if encoding fails.
func (e *Encoder) EncodeTo(w io.Writer, m image.Image) (*Result, error) {
	r, err := e.Encode(m)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(r.Data); err != nil {
		return nil, &IOError{Op: "write", Err: err}
	}
	return r, nil
}

// OutputPath returns the default frame buffer path for an image, the same
// path with the extension replaced by Ext.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + Ext
}

func (e *Encoder) decode(name string, b []byte) (image.Image, error) {
	m, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(e.cfg.AutoOrient))
	if err != nil {
		return nil, fmt.Errorf("epaper: %s: %w: %w", name, raster.ErrInvalidInput, err)
	}
	return m, nil
}

// checksum identifies source file contents in the cache.
func checksum(b []byte) string {
	return fmt.Sprintf("%X", sha1.Sum(b))
}

// Forget removes any cached frame for the image in input encoded with the
// current configuration.
func (e *Encoder) Forget(input string) error {
	if e.cache == nil {
		return nil
	}
	b, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return e.cache.Delete(checksum(b), e.fingerprint)
}

func (e *Encoder) lookup(sum string) ([]byte, error) {
	if e.cache == nil {
		return nil, nil
	}
	b, err := e.cache.Get(sum, e.fingerprint)
	if err != nil {
		return nil, err
	}
	if b != nil && len(b) != e.cfg.Size().PackedLen() {
		return nil, nil
	}
	return b, nil
}

// EncodeFile decodes the image in input, encodes it and writes the frame
// buffer to output, or OutputPath(input) if output is empty. The frame is
// written to a temporary file first so output is either replaced entirely
// or left untouched.
func (e *Encoder) EncodeFile(input, output string) (*Result, error) {
	if output == "" {
		output = OutputPath(input)
	}
	if filepath.Clean(input) == filepath.Clean(output) {
		return nil, errors.New("epaper: output would overwrite input")
	}

	b, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}
	sum := checksum(b)

	frame, err := e.lookup(sum)
	if err != nil {
		return nil, err
	}

	var r *Result
	if frame != nil {
		e.logger.Printf("Cache hit for \"%s\", with SHA1 \"%s\"\n", input, sum)
		r = &Result{
			Data:   frame,
			Size:   e.cfg.Size(),
			Cached: true,
		}
	} else {
		m, err := e.decode(input, b)
		if err != nil {
			return nil, err
		}
		if r, err = e.Encode(m); err != nil {
			return nil, fmt.Errorf("epaper: %s: %w", input, err)
		}
		if e.cache != nil {
			if err := e.cache.Put(sum, e.fingerprint, r.Data); err != nil {
				return nil, err
			}
		}
	}

	if err := writeFile(output, r.Data); err != nil {
		return nil, err
	}

	e.logger.Printf("Converted image saved to: %s\n", output)
	e.logger.Printf("Image size: %s\n", r.Size)
	e.logger.Printf("Packed data size: %d bytes\n", len(r.Data))
	e.logger.Printf("Expected size: %d bytes\n", r.Size.PackedLen())

	return r, nil
}

// writeFile atomically replaces file with b.
func writeFile(file string, b []byte) (err error) {
	tmp := filepath.Join(filepath.Dir(file), fmt.Sprintf(".%s.%s", filepath.Base(file), uuid.NewString()))

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return &IOError{Op: "create", Path: tmp, Err: err}
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(b); err != nil {
		return &IOError{Op: "write", Path: tmp, Err: err}
	}
	if err = f.Sync(); err != nil {
		return &IOError{Op: "sync", Path: tmp, Err: err}
	}
	if err = f.Close(); err != nil {
		return &IOError{Op: "close", Path: tmp, Err: err}
	}
	if err = os.Rename(tmp, file); err != nil {
		return &IOError{Op: "rename", Path: file, Err: err}
	}

	return nil
}
