package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"memorial-guestbook/internal/entity"

	"github.com/jdeng/goheif"
	"golang.org/x/image/draw"
)

const (
	// Images are compressed toward this budget; the result is best
	// effort, never worse than the input.
	MaxImageBytes     = 512 * 1024
	MaxImageDimension = 1920
	jpegQuality       = 85
	minJPEGQuality    = 40

	MaxVideoMB    = 50
	MaxVideoBytes = MaxVideoMB * 1024 * 1024

	// Files over this size are rejected before any processing; nothing
	// the processor emits may legitimately be this big.
	MaxUploadMB    = 100
	MaxUploadBytes = MaxUploadMB * 1024 * 1024
)

var ErrUnsupportedType = errors.New("unsupported file type")

// TooLargeError rejects an oversized video, naming the limit.
type TooLargeError struct {
	LimitMB int
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("video must be less than %dMB, consider trimming or compressing before upload", e.LimitMB)
}

// DecodeError reports a corrupt HEIC source. It is fatal for that file.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode HEIC image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// File is an in-memory media file moving through the processor.
type File struct {
	Name string
	Data []byte
}

// Process normalizes an arbitrary user-selected file into an
// upload-ready one. It is a pure function: no network, no disk, one
// file in, one file (and its type) out, or an error.
func Process(f File) (File, entity.MediaType, error) {
	switch Classify(f.Name, f.Data) {
	case KindImage:
		processed, err := processImage(f)
		if err != nil {
			return File{}, "", err
		}
		return processed, entity.MediaTypeImage, nil
	case KindVideo:
		processed, err := processVideo(f)
		if err != nil {
			return File{}, "", err
		}
		return processed, entity.MediaTypeVideo, nil
	default:
		return File{}, "", ErrUnsupportedType
	}
}

// processImage transcodes HEIC to JPEG, then compresses. A corrupt HEIC
// fails the file; a failed compression silently falls back to the
// pre-compression bytes.
func processImage(f File) (File, error) {
	working := f
	if isHEICName(f.Name) || isHEICBrand(f.Data) {
		transcoded, err := convertHEICToJPEG(f)
		if err != nil {
			return File{}, err
		}
		working = transcoded
	}

	compressed, err := compressImage(working)
	if err != nil {
		return File{Name: normalizeImageName(working.Name), Data: working.Data}, nil
	}
	return compressed, nil
}

func convertHEICToJPEG(f File) (File, error) {
	img, err := goheif.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return File{}, &DecodeError{Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return File{}, &DecodeError{Err: err}
	}

	return File{Name: normalizeImageName(f.Name), Data: buf.Bytes()}, nil
}

// compressImage re-encodes toward MaxImageBytes at up to
// MaxImageDimension on the longer side, stepping the JPEG quality down
// until the budget is met. It errors rather than produce output larger
// than its input.
func compressImage(f File) (File, error) {
	img, _, err := image.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return File{}, fmt.Errorf("failed to decode image: %w", err)
	}

	img = scaleDown(img, MaxImageDimension)

	var out []byte
	for quality := jpegQuality; quality >= minJPEGQuality; quality -= 10 {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return File{}, fmt.Errorf("failed to encode image: %w", err)
		}
		out = buf.Bytes()
		if len(out) <= MaxImageBytes {
			break
		}
	}

	if len(out) > len(f.Data) {
		return File{}, errors.New("compressed output larger than input")
	}

	return File{Name: normalizeImageName(f.Name), Data: out}, nil
}

// scaleDown resamples img so its longer side is at most maxDim.
func scaleDown(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(longest)
	dstW := int(float64(width)*scale + 0.5)
	dstH := int(float64(height)*scale + 0.5)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// processVideo only checks size; transcoding in-process is out of scope.
func processVideo(f File) (File, error) {
	if len(f.Data) > MaxVideoBytes {
		return File{}, &TooLargeError{LimitMB: MaxVideoMB}
	}
	return f, nil
}

// normalizeImageName makes the file name reflect the true output
// format, whatever the input extension was.
func normalizeImageName(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		return name
	}
	if e := ext(name); e != "" {
		return name[:len(name)-len(e)] + ".jpg"
	}
	return name + ".jpg"
}
