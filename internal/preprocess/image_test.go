package preprocess

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func filled(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func requireImageTensor(t *testing.T, tensor *Tensor) {
	t.Helper()
	require.Equal(t, []int64{1, 200, 200, 1}, tensor.Shape)
	require.Len(t, tensor.Data, 200*200)
	for _, v := range tensor.Data {
		require.GreaterOrEqual(t, v, float32(0))
		require.LessOrEqual(t, v, float32(1))
	}
}

func TestImage_ShapeForAnyInput(t *testing.T) {
	t.Parallel()

	gradient := image.NewRGBA(image.Rect(0, 0, 500, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 500; x++ {
			gradient.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 80, A: 255})
		}
	}

	gray16 := image.NewGray16(image.Rect(0, 0, 37, 911))
	for i := range gray16.Pix {
		gray16.Pix[i] = byte(i)
	}

	tests := []struct {
		name string
		data []byte
	}{
		{name: "500x400 RGB JPEG", data: encodeJPEG(t, gradient)},
		{name: "1x1 PNG", data: encodePNG(t, filled(1, 1, color.White))},
		{name: "tall 16-bit grayscale PNG", data: encodePNG(t, gray16)},
		{name: "exact size PNG", data: encodePNG(t, filled(200, 200, color.Black))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tensor, err := Image(bytes.NewReader(tt.data))
			require.NoError(t, err)
			requireImageTensor(t, tensor)
		})
	}
}

func TestImage_NormalizesToUnitRange(t *testing.T) {
	t.Parallel()

	white, err := Image(bytes.NewReader(encodePNG(t, filled(64, 48, color.White))))
	require.NoError(t, err)
	for _, v := range white.Data {
		require.InDelta(t, 1.0, v, 1.0/255.0)
	}

	black, err := Image(bytes.NewReader(encodePNG(t, filled(300, 10, color.Black))))
	require.NoError(t, err)
	for _, v := range black.Data {
		require.InDelta(t, 0.0, v, 1.0/255.0)
	}
}

func TestImage_DiscardsColor(t *testing.T) {
	t.Parallel()

	// Pure green has luma 0.587 * 255 = 149.685, which rounds to 150.
	tensor, err := Image(bytes.NewReader(encodePNG(t, filled(20, 20, color.RGBA{G: 255, A: 255}))))
	require.NoError(t, err)
	require.InDelta(t, 150.0/255.0, tensor.Data[0], 1.0/255.0)
	require.InDelta(t, tensor.Data[0], tensor.Data[len(tensor.Data)-1], 1e-6)
}

func TestImage_IgnoresAlpha(t *testing.T) {
	t.Parallel()

	clearWhite := image.NewNRGBA(image.Rect(0, 0, 30, 30))
	for i := range clearWhite.Pix {
		if i%4 != 3 {
			clearWhite.Pix[i] = 255
		}
	}
	tensor, err := Image(bytes.NewReader(encodePNG(t, clearWhite)))
	require.NoError(t, err)
	for _, v := range tensor.Data {
		require.InDelta(t, 1.0, v, 1.0/255.0)
	}

	faintGreen := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			faintGreen.SetNRGBA(x, y, color.NRGBA{G: 255, A: 40})
		}
	}
	tensor, err = Image(bytes.NewReader(encodePNG(t, faintGreen)))
	require.NoError(t, err)
	require.InDelta(t, 150.0/255.0, tensor.Data[0], 1.0/255.0)
}

func TestImage_DecodeErrors(t *testing.T) {
	t.Parallel()

	valid := encodePNG(t, filled(10, 10, color.White))

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "garbage", data: []byte("definitely not an image")},
		{name: "truncated png", data: valid[:len(valid)/2]},
		{name: "gif header only", data: []byte("GIF89a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tensor, err := Image(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, ErrDecode)
			require.Nil(t, tensor)
		})
	}
}

func TestImageFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "knee.jpg")
	require.NoError(t, os.WriteFile(path, encodeJPEG(t, filled(640, 480, color.Gray{Y: 128})), 0o600))

	tensor, err := ImageFile(path)
	require.NoError(t, err)
	requireImageTensor(t, tensor)

	_, err = ImageFile(filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrDecode)
}

func TestAllowedFilename(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]bool{
		"knee.png":        true,
		"knee.JPG":        true,
		"scan.v2.jpeg":    true,
		"knee.gif":        false,
		"knee":            false,
		"png":             false,
		"archive.png.zip": false,
	} {
		require.Equal(t, want, AllowedFilename(name), name)
	}
}
