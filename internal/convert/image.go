package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

const jpegQuality = 90

func (s *Service) convertImage(ctx context.Context, src source, target string) ([]byte, error) {
	if target == "pdf" {
		return imageToPDF(src)
	}

	img, _, err := image.Decode(bytes.NewReader(src.Data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return encodeImage(img, target)
}

func encodeImage(img image.Image, target string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch target {
	case "png":
		err = png.Encode(&buf, img)
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, flatten(img), &jpeg.Options{Quality: jpegQuality})
	case "gif":
		err = gif.Encode(&buf, img, &gif.Options{NumColors: 256})
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	default:
		return nil, fmt.Errorf("no image encoder for %s", target)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", target, err)
	}
	return buf.Bytes(), nil
}

// flatten composites img onto white. JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

// imageToPDF places the image on a single page. pdfcpu imports PNG and JPEG
// directly; other formats are re-encoded as PNG first.
func imageToPDF(src source) ([]byte, error) {
	data := src.Data
	switch src.MimeType {
	case "image/png", "image/jpeg", "image/jpg", "image/pjpeg":
	default:
		img, _, err := image.Decode(bytes.NewReader(src.Data))
		if err != nil {
			return nil, fmt.Errorf("decode image: %w", err)
		}
		if data, err = encodeImage(img, "png"); err != nil {
			return nil, err
		}
	}

	imp := pdfcpu.DefaultImportConfig()
	var buf bytes.Buffer
	if err := pdfapi.ImportImages(nil, &buf, []io.Reader{bytes.NewReader(data)}, imp, pdfcpuConfig()); err != nil {
		return nil, fmt.Errorf("import image into pdf: %w", err)
	}
	return buf.Bytes(), nil
}
