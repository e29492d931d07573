// Package imagecheck is the pre-upload sanity check for identity
// document photos. It is a pure function over the candidate file's
// bytes: no network, no side effects, so a bad scan is rejected before
// it ever enters a workflow draft.
package imagecheck

import (
	"bytes"
	"fmt"
	"image"

	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

const (
	minBytes = 10 << 10 // 10 KiB, anything below is likely an unreadable thumbnail
	maxBytes = 10 << 20 // 10 MiB
	minEdge  = 200      // px

	// Flat ID scans are landscape-ish. A height of more than twice
	// the width is almost always a portrait selfie passed off as a
	// document photo.
	maxHeightFactor = 2
)

// allowedTypes is the raster allow-list. PDF is deliberately absent:
// document *images* go through this validator, agreement PDFs do not.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Verdict is the validation outcome. Reason is empty on success and a
// specific, user-actionable message on failure.
type Verdict struct {
	OK     bool
	Reason string
}

func ok() Verdict           { return Verdict{OK: true} }
func fail(r string) Verdict { return Verdict{OK: false, Reason: r} }

// Validate runs the checks in order, short-circuiting on the first
// failure: MIME type, byte size, decodability, pixel dimensions,
// aspect ratio.
func Validate(data []byte) Verdict {
	mime := mimetype.Detect(data)
	if !allowedTypes[mime.String()] {
		return fail(fmt.Sprintf("Unsupported file type %s. Please upload a JPEG, PNG or WebP photo of your document.", mime.String()))
	}

	if len(data) < minBytes {
		return fail("This image is too small and likely too low quality to review. Please upload a clearer photo.")
	}
	if len(data) > maxBytes {
		return fail("This image is too large. Please compress it to under 10 MB and try again.")
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fail("Could not read this file as an image. Please try a different photo.")
	}

	if cfg.Width < minEdge || cfg.Height < minEdge {
		return fail(fmt.Sprintf("This image is too small (%dx%d). Both sides must be at least %d pixels.", cfg.Width, cfg.Height, minEdge))
	}

	if cfg.Height > maxHeightFactor*cfg.Width {
		return fail("This looks like a portrait photo, not a flat scan of your document. Please photograph the document face-on.")
	}

	return ok()
}
