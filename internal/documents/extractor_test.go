package documents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_OrderKeysAndFullText(t *testing.T) {
	doc := &fakeDoc{pages: []fakePage{
		{text: "Intro page\n", html: pageHTML(dataURI("image/png", []byte("chart")), dataURI("image/jpeg", []byte("photo")))},
		{text: "   ", html: pageHTML(dataURI("image/png", []byte("diagram")))},
		{textErr: errors.New("broken page")},
		{text: "Closing page", html: pageHTML()},
	}}
	blobs := &recordingBlobs{}
	ex := NewExtractor(openerFor(doc), blobs, NewDescriber(fakeVision{}, nil, nil, nil), nil)

	blocks, fullText, err := ex.Extract(context.Background(), "/tmp/in/report.pdf")
	require.NoError(t, err)
	assert.True(t, doc.closed)
	assert.Equal(t, "Intro page\n   Closing page", fullText)

	require.Len(t, blocks, 5)
	assert.Equal(t, ContentBlock{Type: BlockText, Content: "Intro page\n", Page: 1, Source: "/tmp/in/report.pdf"}, blocks[0])

	assert.Equal(t, BlockImageDescription, blocks[1].Type)
	assert.Equal(t, "[IMAGE]: picture of chart", blocks[1].Content)
	assert.Equal(t, "local_assets/report_p1_img1.png", blocks[1].ImagePath)
	assert.Equal(t, 1, blocks[1].Page)

	assert.Equal(t, "local_assets/report_p1_img2.jpeg", blocks[2].ImagePath)
	assert.Equal(t, "[IMAGE]: picture of photo", blocks[2].Content)

	assert.Equal(t, BlockImageDescription, blocks[3].Type)
	assert.Equal(t, 2, blocks[3].Page)
	assert.Equal(t, "local_assets/report_p2_img1.png", blocks[3].ImagePath)

	assert.Equal(t, ContentBlock{Type: BlockText, Content: "Closing page", Page: 4, Source: "/tmp/in/report.pdf"}, blocks[4])

	require.Len(t, blobs.calls, 3)
	assert.Equal(t, "report", blobs.calls[0].base)
	assert.Equal(t, "image/jpeg", blobs.calls[1].contentType)
	assert.Equal(t, []byte("diagram"), blobs.calls[2].data)
}

func TestExtract_VisionFailureUsesPlaceholder(t *testing.T) {
	doc := &fakeDoc{pages: []fakePage{
		{text: "p", html: pageHTML(dataURI("image/png", []byte("x")))},
	}}
	ex := NewExtractor(openerFor(doc), &recordingBlobs{}, NewDescriber(fakeVision{err: errProvider}, nil, nil, nil), nil)

	blocks, _, err := ex.Extract(context.Background(), "a.pdf")
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.Equal(t, "[IMAGE]: Image analysis failed.", blocks[1].Content)
}

func TestExtract_BlobFailureAborts(t *testing.T) {
	doc := &fakeDoc{pages: []fakePage{
		{text: "p", html: pageHTML(dataURI("image/png", []byte("x")))},
	}}
	blobs := &recordingBlobs{err: errors.New("disk full")}
	ex := NewExtractor(openerFor(doc), blobs, NewDescriber(fakeVision{}, nil, nil, nil), nil)

	_, _, err := ex.Extract(context.Background(), "a.pdf")
	assert.ErrorContains(t, err, "disk full")
	assert.True(t, doc.closed)
}

func TestExtract_OpenFailure(t *testing.T) {
	open := func(string) (PageSource, error) { return nil, errors.New("not a pdf") }
	ex := NewExtractor(open, &recordingBlobs{}, NewDescriber(fakeVision{}, nil, nil, nil), nil)

	_, _, err := ex.Extract(context.Background(), "a.pdf")
	assert.ErrorContains(t, err, "failed to open PDF")
}

func TestDecodeDataURI(t *testing.T) {
	img, ok := decodeDataURI(dataURI("image/gif", []byte("gif")))
	require.True(t, ok)
	assert.Equal(t, "gif", img.ext)
	assert.Equal(t, "image/gif", img.mimeType)
	assert.Equal(t, []byte("gif"), img.data)

	img, ok = decodeDataURI(dataURI("application/octet-stream", []byte("raw")))
	require.True(t, ok)
	assert.Equal(t, "png", img.ext)
	assert.Equal(t, "image/png", img.mimeType)

	_, ok = decodeDataURI("https://example.com/a.png")
	assert.False(t, ok)
	_, ok = decodeDataURI("data:image/png,plain")
	assert.False(t, ok)
	_, ok = decodeDataURI("data:image/png;base64,!!!")
	assert.False(t, ok)
}
