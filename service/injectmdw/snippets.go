package injectmdw

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

const (
	DefaultContainerID   = "random-background-container"
	DefaultLayerClass    = "random-bg-layer"
	DefaultAppRootID     = "app"
	DefaultSysConfigPath = "/api/manage/sysConfig/page"
)

//go:embed assets/*.tmpl
var assetFS embed.FS

var (
	assetTemplates = template.Must(template.ParseFS(assetFS, "assets/*.tmpl"))

	// identifiers end up in css selectors and must not need escaping
	identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)
)

// SnippetConfig holds the names shared by the injected markup,
// stylesheet and script
type SnippetConfig struct {
	ContainerID   string
	LayerClass    string
	AppRootID     string
	SysConfigPath string
}

// DefaultSnippetConfig returns the names the rotator is
// expected to use on the hosted platform
func DefaultSnippetConfig() SnippetConfig {
	return SnippetConfig{
		ContainerID:   DefaultContainerID,
		LayerClass:    DefaultLayerClass,
		AppRootID:     DefaultAppRootID,
		SysConfigPath: DefaultSysConfigPath,
	}
}

// Validate returns an error if any of the names can't be
// safely embedded in the rendered snippets
func (c SnippetConfig) Validate() error {
	for name, value := range map[string]string{
		"container id": c.ContainerID,
		"layer class":  c.LayerClass,
		"app root id":  c.AppRootID,
	} {
		if !identifierPattern.MatchString(value) {
			return fmt.Errorf("invalid %s %q", name, value)
		}
	}

	if !strings.HasPrefix(c.SysConfigPath, "/") {
		return fmt.Errorf("invalid sys config path %q, must start with /", c.SysConfigPath)
	}

	return nil
}

// Snippets are the rendered fragments written into HTML documents
type Snippets struct {
	// Container is prepended to <body>
	Container string
	// Style is appended to <head>
	Style string
	// Script is appended to <body>
	Script string
}

// rotatorOptions are handed to the rotator script as a json literal
type rotatorOptions struct {
	ContainerID   string `json:"containerId"`
	LayerClass    string `json:"layerClass"`
	AppRootID     string `json:"appRootId"`
	SysConfigPath string `json:"sysConfigPath"`
}

// NewSnippets renders the embedded assets for the provided config
func NewSnippets(config SnippetConfig) (Snippets, error) {
	if err := config.Validate(); err != nil {
		return Snippets{}, err
	}

	// encoding/json escapes <, > and & so the literal can't close the script element
	options, err := json.Marshal(rotatorOptions(config))
	if err != nil {
		return Snippets{}, err
	}

	data := struct {
		SnippetConfig
		Options string
	}{
		SnippetConfig: config,
		Options:       string(options),
	}

	var snippets Snippets

	for name, target := range map[string]*string{
		"container.html.tmpl": &snippets.Container,
		"style.css.tmpl":      &snippets.Style,
		"rotator.js.tmpl":     &snippets.Script,
	} {
		var buf strings.Builder
		if err := assetTemplates.ExecuteTemplate(&buf, name, data); err != nil {
			return Snippets{}, fmt.Errorf("error rendering %s: %w", name, err)
		}
		*target = strings.TrimSpace(buf.String())
	}

	return snippets, nil
}
