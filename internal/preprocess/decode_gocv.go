//go:build gocv

package preprocess

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// decodeResized uses OpenCV for both decode and resize so tensors match the
// pipeline the classifier was trained with bit for bit.
func decodeResized(data []byte) (*image.Gray, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadGrayScale)
	if err != nil || mat.Empty() {
		if err == nil {
			err = fmt.Errorf("opencv returned an empty matrix")
		}
		mat.Close()
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer mat.Close()

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(mat, &resized, image.Pt(Size, Size), 0, 0, gocv.InterpolationLinear)

	img, err := resized.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return toGray(img), nil
}
