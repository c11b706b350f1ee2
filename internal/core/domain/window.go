package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ReadyMessage is the sentinel the popup posts once it has bootstrapped.
const ReadyMessage = "xkit:ready"

// Default popup geometry.
const (
	DefaultWindowWidth  = 600
	DefaultWindowHeight = 700
)

// WindowMessage is a message posted by the popup to its opener.
type WindowMessage struct {
	// Origin is the origin of the posting page, e.g. "https://acme.xkit.co".
	Origin string
	// Data is the raw JSON payload.
	Data json.RawMessage
}

// IsReady returns true if the message is the ready sentinel.
func (m WindowMessage) IsReady() bool {
	var s string
	if err := json.Unmarshal(m.Data, &s); err != nil {
		return false
	}
	return s == ReadyMessage
}

// ErrorMessage returns the error text if the message has the shape
// {"error": string}.
func (m WindowMessage) ErrorMessage() (string, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(m.Data, &fields); err != nil {
		return "", false
	}
	raw, ok := fields["error"]
	if !ok {
		return "", false
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err != nil {
		return "", false
	}
	return msg, true
}

// LocationMessage asks the popup to navigate itself.
type LocationMessage struct {
	Location string `json:"location"`
}

// Rect is a screen rectangle in pixels.
type Rect struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// WindowFeatures are the popup's opening parameters.
type WindowFeatures struct {
	Width  int
	Height int
	// Left and Top are only meaningful when Positioned is true.
	Left       int
	Top        int
	Positioned bool
}

// CenteredFeatures returns features for a width x height popup centred in screen.
func CenteredFeatures(width, height int, screen *Rect) WindowFeatures {
	features := WindowFeatures{Width: width, Height: height}
	if screen == nil || screen.Width <= 0 || screen.Height <= 0 {
		return features
	}
	features.Left = screen.Left + (screen.Width-width)/2
	features.Top = screen.Top + (screen.Height-height)/2
	features.Positioned = true
	return features
}

// String renders the features in window.open form.
func (f WindowFeatures) String() string {
	parts := []string{
		"scrollbars=no", "resizable=no", "status=no", "location=no", "menubar=no",
		"width=" + strconv.Itoa(f.Width), "height=" + strconv.Itoa(f.Height),
	}
	if f.Positioned {
		parts = append(parts, "left="+strconv.Itoa(f.Left), "top="+strconv.Itoa(f.Top))
	}
	return strings.Join(parts, ",")
}
