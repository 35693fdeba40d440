package ui

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/h2non/filetype"
)

//go:embed assets/style.css assets/logo.png assets/page.html.tmpl
var assetsFS embed.FS

// Assets are the stylesheet and avatar image, loaded once at startup and
// inlined into every page.
type Assets struct {
	Style template.CSS
	Logo  template.URL
}

// LoadAssets reads the stylesheet and logo from the given paths, falling back
// to the embedded defaults for empty paths. A configured path that cannot be
// read, or a logo that is not an image, is an error.
func LoadAssets(stylePath, logoPath string) (Assets, error) {
	style, err := readAsset(stylePath, "assets/style.css")
	if err != nil {
		return Assets{}, fmt.Errorf("ui: load stylesheet: %w", err)
	}
	logo, err := readAsset(logoPath, "assets/logo.png")
	if err != nil {
		return Assets{}, fmt.Errorf("ui: load logo: %w", err)
	}
	uri, err := imageDataURI(logo)
	if err != nil {
		return Assets{}, fmt.Errorf("ui: load logo: %w", err)
	}
	return Assets{
		Style: template.CSS(style),
		Logo:  template.URL(uri),
	}, nil
}

func readAsset(path, embedded string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return assetsFS.ReadFile(embedded)
	}
	return os.ReadFile(path)
}

func imageDataURI(data []byte) (string, error) {
	if !filetype.IsImage(data) {
		return "", fmt.Errorf("not a recognised image (%d bytes)", len(data))
	}
	kind, err := filetype.Match(data)
	if err != nil {
		return "", err
	}
	return "data:" + kind.MIME.Value + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
