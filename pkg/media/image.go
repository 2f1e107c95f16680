package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"golang.org/x/image/draw"

	"github.com/commanalyz/commanalyz/pkg/provider/emotion"
)

// DecodeFrame decodes a JPEG or PNG webcam capture and preprocesses it for
// emotion classification: grayscale conversion, bilinear resize to 48×48, and
// normalisation of each pixel to [0, 1].
func DecodeFrame(data []byte) (emotion.Frame, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("media: decode frame: %w", err)
	}

	// Resize to model input dimensions.
	resized := image.NewGray(image.Rect(0, 0, emotion.FrameWidth, emotion.FrameHeight))
	draw.BiLinear.Scale(resized, resized.Bounds(), src, src.Bounds(), draw.Src, nil)

	frame := make(emotion.Frame, emotion.FrameWidth*emotion.FrameHeight)
	for y := 0; y < emotion.FrameHeight; y++ {
		for x := 0; x < emotion.FrameWidth; x++ {
			frame[y*emotion.FrameWidth+x] = float32(resized.GrayAt(x, y).Y) / 255.0
		}
	}
	return frame, nil
}
