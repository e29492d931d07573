// Package docfetch delivers remote documents (signed agreements, ID
// scans) to the user as local downloads. It is best-effort I/O: an
// ordered list of fallible strategies is tried in sequence and the
// first success wins, degrading from "saved file" to "opened file".
package docfetch

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/wachira567/victorsprings-client/internal/notify"
	"github.com/wachira567/victorsprings-client/internal/utils"
)

// Fetcher is the slice of the backend client the resolver needs.
type Fetcher interface {
	FetchDocument(ctx context.Context, rawURL string) ([]byte, error)
	ProxyFetchDocument(ctx context.Context, srcURL, filename string) ([]byte, error)
}

// Saver materializes fetched bytes as a local download. The embedding
// app supplies the platform-appropriate implementation.
type Saver interface {
	Save(filename string, data []byte) error
}

// Opener opens a URL in a new browsing context. Last-resort fallback
// when the bytes cannot be fetched at all.
type Opener interface {
	Open(rawURL string) error
}

type Resolver struct {
	fetcher  Fetcher
	saver    Saver
	opener   Opener
	notifier notify.Notifier
}

func NewResolver(fetcher Fetcher, saver Saver, opener Opener, notifier notify.Notifier) *Resolver {
	return &Resolver{fetcher: fetcher, saver: saver, opener: opener, notifier: notifier}
}

type strategy struct {
	name string
	run  func(ctx context.Context, rawURL, filename string) error
}

// Download attempts to deliver the document at rawURL under the
// suggested filename. It never returns an error to the caller: failed
// intermediate strategies are logged and swallowed, and the final
// outcome (saved, opened, or nothing worked) is reported through the
// notifier.
func (r *Resolver) Download(ctx context.Context, rawURL, filename string) {
	r.notifier.Info("Preparing your download...")

	strategies := []strategy{
		{name: "direct", run: r.direct},
		{name: "proxy", run: r.proxy},
		{name: "open", run: r.open},
	}

	for _, s := range strategies {
		err := s.run(ctx, rawURL, filename)
		if err == nil {
			if s.name == "open" {
				r.notifier.Info("Could not save the file directly. It has been opened in your browser instead.")
			} else {
				r.notifier.Success("Document downloaded.")
			}
			return
		}
		utils.Logger.WithError(err).Debugf("Download strategy %q failed for %s", s.name, rawURL)
	}

	r.notifier.Error("Could not download the document. Please try again later.")
}

func (r *Resolver) direct(ctx context.Context, rawURL, filename string) error {
	data, err := r.fetcher.FetchDocument(ctx, withAttachmentDisposition(rawURL))
	if err != nil {
		return err
	}
	return r.saver.Save(ensureExtension(filename, data), data)
}

func (r *Resolver) proxy(ctx context.Context, rawURL, filename string) error {
	data, err := r.fetcher.ProxyFetchDocument(ctx, rawURL, filename)
	if err != nil {
		return err
	}
	return r.saver.Save(ensureExtension(filename, data), data)
}

func (r *Resolver) open(ctx context.Context, rawURL, _ string) error {
	return r.opener.Open(rawURL)
}

// withAttachmentDisposition rewrites known asset-host URLs so the host
// serves the file with an attachment disposition. Cloudinary delivery
// URLs take an fl_attachment transformation flag after /upload/.
func withAttachmentDisposition(rawURL string) string {
	if !strings.Contains(rawURL, "res.cloudinary.com") {
		return rawURL
	}
	if strings.Contains(rawURL, "/fl_attachment") {
		return rawURL
	}
	return strings.Replace(rawURL, "/upload/", "/upload/fl_attachment/", 1)
}

// ensureExtension repairs a suggested filename that arrived without an
// extension by sniffing the fetched bytes.
func ensureExtension(filename string, data []byte) string {
	if filepath.Ext(filename) != "" {
		return filename
	}
	ext := mimetype.Detect(data).Extension()
	if ext == "" {
		return filename
	}
	return filename + ext
}
