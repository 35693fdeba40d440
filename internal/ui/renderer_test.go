package ui

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"assistant-chat/internal/domain"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	assets, err := LoadAssets("", "")
	require.NoError(t, err)
	r, err := NewRenderer(assets, Options{
		PageTitle:     "Chat Title",
		Heading:       "HEADING",
		AssistantName: "Guide",
		LoadingText:   "Guide is typing...",
		Placeholder:   "Say something",
	})
	require.NoError(t, err)
	return r
}

func render(t *testing.T, r *Renderer, p Page) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, p))
	return buf.String()
}

func TestLoadAssets_Defaults(t *testing.T) {
	assets, err := LoadAssets("", "")
	require.NoError(t, err)
	require.Contains(t, string(assets.Style), ".chat-bubble")
	require.True(t, strings.HasPrefix(string(assets.Logo), "data:image/png;base64,"))
}

func TestLoadAssets_CustomFiles(t *testing.T) {
	dir := t.TempDir()
	stylePath := filepath.Join(dir, "style.css")
	require.NoError(t, os.WriteFile(stylePath, []byte(".custom { color: red; }"), 0o600))
	logo, err := assetsFS.ReadFile("assets/logo.png")
	require.NoError(t, err)
	logoPath := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(logoPath, logo, 0o600))

	assets, err := LoadAssets(stylePath, logoPath)
	require.NoError(t, err)
	require.Equal(t, ".custom { color: red; }", string(assets.Style))
	require.True(t, strings.HasPrefix(string(assets.Logo), "data:image/png;base64,"))
}

func TestLoadAssets_Errors(t *testing.T) {
	dir := t.TempDir()
	_, err := LoadAssets(filepath.Join(dir, "missing.css"), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "stylesheet")

	_, err = LoadAssets("", filepath.Join(dir, "missing.png"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "logo")

	notImage := filepath.Join(dir, "logo.txt")
	require.NoError(t, os.WriteFile(notImage, []byte("plain text"), 0o600))
	_, err = LoadAssets("", notImage)
	require.Error(t, err)
	require.Contains(t, err.Error(), "not a recognised image")
}

func TestRender_EmptyConversation(t *testing.T) {
	out := render(t, testRenderer(t), Page{})
	require.Contains(t, out, "<title>Chat Title</title>")
	require.Contains(t, out, "HEADING")
	require.Contains(t, out, `name="user_input_0"`)
	require.Contains(t, out, `name="input_key" value="0"`)
	require.Contains(t, out, `placeholder="Say something"`)
	require.Contains(t, out, "Guide is typing...")
	require.Contains(t, out, ".chat-bubble")
	require.NotContains(t, out, "error-banner\" role")
}

func TestRender_Bubbles(t *testing.T) {
	out := render(t, testRenderer(t), Page{
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "<b>hi</b>", Time: "2024-05-01 09:30"},
			{Role: domain.RoleAssistant, Content: "**Hello**\n\n<script>alert(1)</script>", Time: "2024-05-01 09:31"},
		},
		InputKey: 3,
	})

	require.Contains(t, out, `<div class="chat-bubble user-bubble">&lt;b&gt;hi&lt;/b&gt;</div>`)
	require.Contains(t, out, "<strong>Hello</strong>")
	require.NotContains(t, out, "alert(1)")
	require.Contains(t, out, `<span class="assistant-name">Guide</span>`)
	require.Contains(t, out, `<span class="message-time">2024-05-01 09:31</span>`)
	require.NotContains(t, out, "2024-05-01 09:30")
	require.Contains(t, out, `src="data:image/png;base64,`)
	require.Contains(t, out, `name="user_input_3"`)
	require.Less(t, strings.Index(out, "&lt;b&gt;hi"), strings.Index(out, "<strong>Hello</strong>"))
}

func TestRender_ErrorBanner(t *testing.T) {
	out := render(t, testRenderer(t), Page{Error: "The assistant is unavailable <now>"})
	require.Contains(t, out, `<div class="error-banner" role="alert">The assistant is unavailable &lt;now&gt;</div>`)
}
