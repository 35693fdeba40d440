package ui

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"assistant-chat/internal/domain"
)

type Options struct {
	PageTitle     string
	Heading       string
	AssistantName string
	LoadingText   string
	Placeholder   string
}

// Page is the state drawn by one render: the whole conversation, the key of
// the input field and an optional error banner.
type Page struct {
	Messages []domain.Message
	InputKey int
	Error    string
}

type Renderer struct {
	tmpl   *template.Template
	md     goldmark.Markdown
	assets Assets
	opts   Options
}

type pageData struct {
	Title         string
	Heading       string
	AssistantName string
	LoadingText   string
	Placeholder   string
	Style         template.CSS
	Logo          template.URL
	Messages      []domain.Message
	InputKey      int
	Error         string
}

func NewRenderer(assets Assets, opts Options) (*Renderer, error) {
	r := &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		assets: assets,
		opts:   opts,
	}
	tmpl, err := template.New("page.html.tmpl").
		Funcs(template.FuncMap{"markdown": r.markdown}).
		ParseFS(assetsFS, "assets/page.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("ui: parse page template: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Render writes the full page. Nothing is written if rendering fails.
func (r *Renderer) Render(w io.Writer, p Page) error {
	var buf bytes.Buffer
	err := r.tmpl.Execute(&buf, pageData{
		Title:         r.opts.PageTitle,
		Heading:       r.opts.Heading,
		AssistantName: r.opts.AssistantName,
		LoadingText:   r.opts.LoadingText,
		Placeholder:   r.opts.Placeholder,
		Style:         r.assets.Style,
		Logo:          r.assets.Logo,
		Messages:      p.Messages,
		InputKey:      p.InputKey,
		Error:         p.Error,
	})
	if err != nil {
		return fmt.Errorf("ui: render page: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}

// markdown converts assistant text to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func (r *Renderer) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
