package documents

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/docgraph/ingest/internal/logging"
	"github.com/docgraph/ingest/internal/storage"
)

// PageSource is an opened paginated document. Pages are 0-based.
type PageSource interface {
	NumPage() int
	Text(page int) (string, error)
	HTML(page int, header bool) (string, error)
	Close() error
}

// Opener opens a PDF file
type Opener func(path string) (PageSource, error)

// OpenFitz opens path with MuPDF
func OpenFitz(path string) (PageSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Extractor turns a PDF into ordered text and image-description blocks
type Extractor struct {
	open      Opener
	blobs     storage.BlobStore
	describer *Describer
	logger    *zap.Logger
}

// NewExtractor creates an extractor. A nil opener uses OpenFitz.
func NewExtractor(open Opener, blobs storage.BlobStore, describer *Describer, logger *zap.Logger) *Extractor {
	if open == nil {
		open = OpenFitz
	}
	return &Extractor{open: open, blobs: blobs, describer: describer, logger: logging.OrNop(logger)}
}

// Extract walks the pages in order. For each page it emits the page text (when
// not blank) followed by one block per embedded image. fullText is the raw
// text of every page concatenated.
func (e *Extractor) Extract(ctx context.Context, pdfPath string) (blocks []ContentBlock, fullText string, err error) {
	doc, err := e.open(pdfPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	base := strings.TrimSuffix(filepath.Base(pdfPath), ".pdf")
	var text strings.Builder

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		page := i + 1

		pageText, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("skipping page", zap.String("file", pdfPath), zap.Int("page", page), zap.Error(err))
			continue
		}
		text.WriteString(pageText)
		if strings.TrimSpace(pageText) != "" {
			blocks = append(blocks, ContentBlock{Type: BlockText, Content: pageText, Page: page, Source: pdfPath})
		}

		markup, err := doc.HTML(i, false)
		if err != nil {
			e.logger.Warn("could not render page images", zap.String("file", pdfPath), zap.Int("page", page), zap.Error(err))
			continue
		}

		for idx, img := range harvestImages(strings.NewReader(markup)) {
			name := fmt.Sprintf("%s_p%d_img%d.%s", base, page, idx+1, img.ext)
			locator, err := e.blobs.Put(ctx, base, name, img.data, img.mimeType)
			if err != nil {
				return nil, "", fmt.Errorf("failed to store image %s: %w", name, err)
			}

			blocks = append(blocks, ContentBlock{
				Type:      BlockImageDescription,
				Content:   "[IMAGE]: " + e.describer.Describe(ctx, img.data),
				Page:      page,
				Source:    pdfPath,
				ImagePath: locator,
			})
		}
	}

	return blocks, text.String(), nil
}

type pageImage struct {
	data     []byte
	mimeType string
	ext      string
}

// harvestImages returns the base64 data-URI images of a rendered page in
// document order
func harvestImages(r io.Reader) []pageImage {
	var images []pageImage

	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return images
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "img" || !hasAttr {
				continue
			}
			for {
				key, val, more := z.TagAttr()
				if string(key) == "src" {
					if img, ok := decodeDataURI(string(val)); ok {
						images = append(images, img)
					}
					break
				}
				if !more {
					break
				}
			}
		}
	}
}

// decodeDataURI decodes data:<mime>;base64,<payload>
func decodeDataURI(uri string) (pageImage, bool) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return pageImage{}, false
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return pageImage{}, false
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil || len(data) == 0 {
		return pageImage{}, false
	}

	mimeType := strings.TrimSuffix(header, ";base64")
	ext := "png"
	if sub, ok := strings.CutPrefix(mimeType, "image/"); ok && sub != "" {
		ext = sub
	} else {
		mimeType = "image/png"
	}
	return pageImage{data: data, mimeType: mimeType, ext: ext}, true
}
