package documents

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
)

type fakePage struct {
	text    string
	textErr error
	html    string
}

type fakeDoc struct {
	pages  []fakePage
	closed bool
}

func (d *fakeDoc) NumPage() int { return len(d.pages) }

func (d *fakeDoc) Text(i int) (string, error) {
	return d.pages[i].text, d.pages[i].textErr
}

func (d *fakeDoc) HTML(i int, header bool) (string, error) {
	return d.pages[i].html, nil
}

func (d *fakeDoc) Close() error {
	d.closed = true
	return nil
}

func openerFor(doc *fakeDoc) Opener {
	return func(string) (PageSource, error) { return doc, nil }
}

// pageHTML renders MuPDF-style markup holding the given images
func pageHTML(images ...string) string {
	var b strings.Builder
	b.WriteString(`<div id="page0" style="width:612pt;height:792pt"><p>text</p>`)
	for _, img := range images {
		fmt.Fprintf(&b, `<img style="position:absolute" src="%s">`, img)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func dataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

type putCall struct {
	base, name, contentType string
	data                    []byte
}

type recordingBlobs struct {
	mu    sync.Mutex
	calls []putCall
	err   error
}

func (r *recordingBlobs) Put(ctx context.Context, base, name string, data []byte, contentType string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, putCall{base: base, name: name, contentType: contentType, data: data})
	return "local_assets/" + name, nil
}

type fakeVision struct {
	err error
}

func (v fakeVision) Describe(ctx context.Context, prompt string, image []byte) (string, error) {
	if v.err != nil {
		return "", v.err
	}
	return "picture of " + string(image), nil
}

type fakeText struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeText) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

var errProvider = errors.New("provider unavailable")
