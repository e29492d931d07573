package imagecheck

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// makeJPEG encodes a noisy width x height JPEG and pads it past
// minSize. Noise keeps the encoder honest; trailing padding after the
// EOI marker changes neither the sniffed type nor the decoded header.
func makeJPEG(t *testing.T, width, height, minSize int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rng := rand.New(rand.NewSource(42))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))
	data := buf.Bytes()
	if len(data) < minSize {
		data = append(data, make([]byte, minSize-len(data))...)
	}
	return data
}

func TestValidateAcceptsLandscapeScan(t *testing.T) {
	data := makeJPEG(t, 800, 400, 50<<10)
	verdict := Validate(data)
	require.True(t, verdict.OK, verdict.Reason)
	require.Empty(t, verdict.Reason)
}

func TestValidateRejectsPortraitSelfie(t *testing.T) {
	data := makeJPEG(t, 800, 1700, 50<<10)
	verdict := Validate(data)
	require.False(t, verdict.OK)
	require.Contains(t, verdict.Reason, "portrait")
}

func TestValidateAcceptsHeightExactlyTwiceWidth(t *testing.T) {
	data := makeJPEG(t, 400, 800, 50<<10)
	verdict := Validate(data)
	require.True(t, verdict.OK, verdict.Reason)
}

func TestValidateRejectsTinyFile(t *testing.T) {
	// A flat gray image compresses well below the 10 KiB floor.
	img := image.NewGray(image.Rect(0, 0, 250, 250))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 10}))
	require.Less(t, buf.Len(), minBytes)

	verdict := Validate(buf.Bytes())
	require.False(t, verdict.OK)
	require.Contains(t, verdict.Reason, "too small")
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	data := makeJPEG(t, 800, 400, maxBytes+1)
	verdict := Validate(data)
	require.False(t, verdict.OK)
	require.Contains(t, verdict.Reason, "too large")
}

func TestValidateRejectsPDF(t *testing.T) {
	data := append([]byte("%PDF-1.4\n%"), make([]byte, 50<<10)...)
	verdict := Validate(data)
	require.False(t, verdict.OK)
	require.Contains(t, verdict.Reason, "Unsupported file type")
}

func TestValidateRejectsUndecodableImage(t *testing.T) {
	// Valid PNG magic so the sniffer admits it, then garbage where the
	// IHDR chunk should be.
	data := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 20<<10)...)
	verdict := Validate(data)
	require.False(t, verdict.OK)
	require.Contains(t, verdict.Reason, "Could not read")
}

func TestValidateRejectsTooFewPixels(t *testing.T) {
	data := makeJPEG(t, 199, 199, 20<<10)
	verdict := Validate(data)
	require.False(t, verdict.OK)
	require.Contains(t, verdict.Reason, "at least 200 pixels")
}

func TestValidateAcceptsPNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	rng := rand.New(rand.NewSource(7))
	for y := 0; y < 400; y++ {
		for x := 0; x < 600; x++ {
			img.Set(x, y, color.RGBA{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256)), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.Greater(t, buf.Len(), minBytes)

	verdict := Validate(buf.Bytes())
	require.True(t, verdict.OK, verdict.Reason)
}
