package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Size is the edge length, in pixels, of the square input the image
// classifier was trained on.
const Size = 200

// ErrDecode is returned when the input bytes are not a decodable raster image.
var ErrDecode = errors.New("image could not be decoded")

// ImageShape is the tensor shape produced by Image: batch, height, width, channel.
var ImageShape = []int64{1, Size, Size, 1}

var imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// AllowedFilename reports whether name has a png, jpg or jpeg extension, in
// any case.
func AllowedFilename(name string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(name))]
}

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Image decodes r as a grayscale image and returns the normalized
// (1, 200, 200, 1) tensor.
func Image(r io.Reader) (*Tensor, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return imageBytes(data)
}

// ImageFile is Image for a file on disk.
func ImageFile(path string) (*Tensor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image file: %w", err)
	}
	return imageBytes(data)
}

func imageBytes(data []byte) (*Tensor, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	gray, err := decodeResized(data)
	if err != nil {
		return nil, err
	}
	return FromGray(gray), nil
}

// FromGray normalizes an already resized grayscale image into a tensor.
// The image must be Size x Size.
func FromGray(gray *image.Gray) *Tensor {
	b := gray.Bounds()
	out := make([]float32, 0, Size*Size)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			out = append(out, float32(row[x])/255.0)
		}
	}
	return &Tensor{
		Shape: append([]int64(nil), ImageShape...),
		Data:  out,
	}
}

// toGray converts any decoded image to 8-bit luma using the BT.601 weights,
// the same weights OpenCV uses for IMREAD_GRAYSCALE. Alpha is dropped, not
// composited, so transparent pixels keep their colour.
func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			gray.Pix[(y-b.Min.Y)*gray.Stride+(x-b.Min.X)] = luma(c.R, c.G, c.B)
		}
	}
	return gray
}

func luma(r, g, b uint16) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 24)
}
