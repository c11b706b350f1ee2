// Package browser implements the authorization window on the user's
// desktop browser.
//
// A terminal cannot own a popup, so the opener serves a small bridge page
// on the loopback interface and launches the browser on it. The bridge
// page opens the real popup with window.open, becomes its opener, and
// relays between the popup and this process: messages the popup posts
// are forwarded with POST requests, and navigation, postMessage and close
// requests are fetched by polling.
package browser
