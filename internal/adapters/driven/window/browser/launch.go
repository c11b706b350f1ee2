package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

var _ driven.Navigator = (*Navigator)(nil)

// Launcher opens a URL outside the process.
type Launcher func(url string) error

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// Navigator sends the user to a page in their browser. It stands in for
// redirecting the host page, which a terminal does not have.
type Navigator struct {
	launch Launcher
}

// NewNavigator creates a navigator. A nil launcher uses OpenBrowser.
func NewNavigator(launch Launcher) *Navigator {
	if launch == nil {
		launch = OpenBrowser
	}
	return &Navigator{launch: launch}
}

// Navigate opens url.
func (n *Navigator) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("opening %s in your browser", url)
	return n.launch(url)
}
