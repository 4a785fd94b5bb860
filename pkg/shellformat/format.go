// Package shellformat validates and formats executor shell scripts.
//
// Scripts are parsed with mvdan.cc/sh/v3/syntax (the shfmt parser), so a
// broken script is rejected before it is handed to the shell, and logged
// scripts are printed in a canonical, readable form.
package shellformat

import (
	"bytes"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Option configures the formatter.
type Option func(*config)

type config struct {
	indent uint
	posix  bool
}

func defaultConfig() *config {
	return &config{indent: 2}
}

// WithIndent sets the indentation width in spaces (default: 2).
func WithIndent(n uint) Option {
	return func(c *config) { c.indent = n }
}

// WithPOSIX switches parsing to the POSIX shell language (default: Bash).
func WithPOSIX() Option {
	return func(c *config) { c.posix = true }
}

func (c *config) variant() syntax.LangVariant {
	if c.posix {
		return syntax.LangPOSIX
	}
	return syntax.LangBash
}

// Validate parses the script and returns the parse error, if any.
func Validate(script string, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	parser := syntax.NewParser(syntax.Variant(cfg.variant()))
	if _, err := parser.Parse(strings.NewReader(script), ""); err != nil {
		return fmt.Errorf("invalid shell script: %w", err)
	}
	return nil
}

// Format parses the script and prints it in canonical form. On parse error
// the original input is returned unchanged together with the error.
func Format(script string, opts ...Option) (string, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	script = strings.TrimSpace(script)
	if script == "" {
		return "", nil
	}

	parser := syntax.NewParser(
		syntax.Variant(cfg.variant()),
		syntax.KeepComments(true),
	)
	prog, err := parser.Parse(strings.NewReader(script), "")
	if err != nil {
		return script, fmt.Errorf("invalid shell script: %w", err)
	}

	printer := syntax.NewPrinter(syntax.Indent(cfg.indent), syntax.SpaceRedirects(true))
	var buf bytes.Buffer
	if err := printer.Print(&buf, prog); err != nil {
		return script, fmt.Errorf("failed to print script: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
