package cmd

import (
	"errors"
	"strings"
	"testing"

	"feedjam/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadImportFile(t *testing.T) {
	f, err := readImportFile(strings.NewReader(`
subscriptions:
  - url: https://hnrss.org/frontpage
  - url: https://www.reddit.com/r/golang
    active: false
interests:
  - topic: Rust
    weight: 1.5
  - topic: go
    weight: 1
`))
	require.NoError(t, err)
	require.Len(t, f.Subscriptions, 2)
	assert.Equal(t, "https://hnrss.org/frontpage", f.Subscriptions[0].URL)
	assert.Nil(t, f.Subscriptions[0].Active)
	require.NotNil(t, f.Subscriptions[1].Active)
	assert.False(t, *f.Subscriptions[1].Active)

	in := f.interests()
	require.Len(t, in, 2)
	assert.Equal(t, "Rust", in[0].Topic)
	assert.Equal(t, 1.5, in[0].Weight)
}

func TestReadImportFileErrors(t *testing.T) {
	_, err := readImportFile(strings.NewReader("subscriptions:\n  - active: true\n"))
	assert.ErrorContains(t, err, "url is required")

	_, err = readImportFile(strings.NewReader("subscriptons: []\n"))
	assert.Error(t, err)

	f, err := readImportFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Subscriptions)
}

func TestLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", logLevel("debug").String())
	assert.Equal(t, "WARN", logLevel("WARNING").String())
	assert.Equal(t, "INFO", logLevel("").String())
}

func TestFlags(t *testing.T) {
	assert.Equal(t, ".....", flags(false, false, false, false, false))
	assert.Equal(t, "r+.*.", flags(true, true, false, true, false))
	assert.Equal(t, "..-.h", flags(false, false, true, false, true))
}

func TestParseInterests(t *testing.T) {
	in, err := parseInterests([]string{"rust=1.5", "go"})
	require.NoError(t, err)
	require.Len(t, in, 2)
	assert.Equal(t, "rust", in[0].Topic)
	assert.Equal(t, 1.5, in[0].Weight)
	assert.Equal(t, 1.0, in[1].Weight)

	_, err = parseInterests([]string{"rust=lots"})
	assert.ErrorContains(t, err, "bad weight")
}

func TestCheckSourceType(t *testing.T) {
	reg := parser.NewRegistry(parser.Variant{Type: "rss"}, parser.Variant{Type: "github"})
	assert.NoError(t, checkSourceType(reg, "github"))
	assert.NoError(t, checkSourceType(reg, "rss"))

	err := checkSourceType(reg, "gopher")
	require.Error(t, err)
	assert.True(t, errors.Is(err, parser.ErrNoParser))
	assert.Contains(t, err.Error(), "github, rss")
}
