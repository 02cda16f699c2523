//go:build !gocv

package preprocess

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

// decodeResized decodes data, discards color and resizes straight to
// Size x Size with bilinear filtering, which is what cv2.resize defaults to.
func decodeResized(data []byte) (*image.Gray, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: zero-sized image", ErrDecode)
	}

	gray := toGray(img)
	resized := resize.Resize(Size, Size, gray, resize.Bilinear)
	return toGray(resized), nil
}
