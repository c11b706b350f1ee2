package browser

import (
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

const (
	bridgePath = "/bridge/"

	// maxMessageBytes bounds a relayed message body.
	maxMessageBytes = 64 << 10
)

// relayedMessage is what the bridge page forwards from the popup.
type relayedMessage struct {
	Origin string          `json:"origin"`
	Data   json.RawMessage `json:"data"`
}

func (o *Opener) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /bridge/{nonce}", o.withWindow(o.handlePage))
	mux.HandleFunc("GET /bridge/{nonce}/next", o.withWindow(o.handleNext))
	mux.HandleFunc("POST /bridge/{nonce}/alive", o.withWindow(o.handleAlive))
	mux.HandleFunc("POST /bridge/{nonce}/message", o.withWindow(o.handleMessage))
	mux.HandleFunc("POST /bridge/{nonce}/closed", o.withWindow(o.handleClosed))
	return mux
}

func (o *Opener) withWindow(h func(http.ResponseWriter, *http.Request, *Window)) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		w, ok := o.lookup(r.PathValue("nonce"))
		if !ok {
			http.NotFound(rw, r)
			return
		}
		rw.Header().Set("Cache-Control", "no-store")
		h(rw, r, w)
	}
}

func (o *Opener) handlePage(rw http.ResponseWriter, _ *http.Request, w *Window) {
	w.touch()
	rw.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := bridgePage.Execute(rw, struct {
		Base     string
		URL      string
		Name     string
		Features string
	}{
		Base:     bridgePath + w.nonce,
		URL:      w.url,
		Name:     w.name,
		Features: w.features.String(),
	})
	if err != nil {
		logger.Warn("render bridge page: %v", err)
	}
}

func (o *Opener) handleNext(rw http.ResponseWriter, _ *http.Request, w *Window) {
	rw.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(rw).Encode(w.drain()); err != nil {
		logger.Debug("write bridge commands: %v", err)
	}
}

// handleAlive keeps a bridge page that has not opened its popup yet from
// counting as closed.
func (o *Opener) handleAlive(rw http.ResponseWriter, _ *http.Request, w *Window) {
	w.touch()
	rw.WriteHeader(http.StatusNoContent)
}

func (o *Opener) handleMessage(rw http.ResponseWriter, r *http.Request, w *Window) {
	var msg relayedMessage
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, maxMessageBytes)).Decode(&msg); err != nil {
		http.Error(rw, "malformed message", http.StatusBadRequest)
		return
	}
	w.receive(domain.WindowMessage{Origin: msg.Origin, Data: msg.Data})
	rw.WriteHeader(http.StatusNoContent)
}

func (o *Opener) handleClosed(rw http.ResponseWriter, _ *http.Request, w *Window) {
	w.markClosed()
	o.forget(w)
	rw.WriteHeader(http.StatusNoContent)
}

//nolint:lll // inline script
var bridgePage = template.Must(template.New("bridge").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>xkit - Connect</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            display: flex;
            justify-content: center;
            align-items: center;
            height: 100vh;
            margin: 0;
            background: #FAFAFA;
        }
        .container {
            text-align: center;
            background: white;
            padding: 48px 64px;
            border-radius: 16px;
            border: 1px solid #C7C8CC;
            box-shadow: 0 4px 24px rgba(0,0,0,0.08);
        }
        h1 { color: #333F50; margin: 0 0 8px 0; font-size: 24px; font-weight: 600; }
        p { color: #7B8088; margin: 0 0 24px 0; font-size: 16px; }
        button { background: #6675FF; color: white; border: 0; border-radius: 8px; padding: 12px 32px; font-size: 16px; cursor: pointer; }
        .done button { display: none; }
    </style>
</head>
<body>
    <div class="container" id="container">
        <h1>Connect your account</h1>
        <p id="status">Sign in to the provider in the window that opens.</p>
        <button id="open">Continue</button>
    </div>
    <script>
        const base = {{.Base}};
        let child = null;
        const keepalive = setInterval(() => post("/alive").catch(() => {}), 1000);

        function post(path, body) {
            return fetch(base + path, {method: "POST", body: body === undefined ? "" : JSON.stringify(body)});
        }

        function finish(text) {
            clearInterval(keepalive);
            document.getElementById("status").textContent = text;
            document.getElementById("container").className = "container done";
        }

        window.addEventListener("message", (e) => {
            if (child === null || e.source !== child) return;
            post("/message", {origin: e.origin, data: e.data});
        });

        async function poll() {
            if (child.closed) {
                await post("/closed");
                finish("You can close this tab and return to the terminal.");
                return;
            }
            try {
                const res = await fetch(base + "/next");
                const commands = res.ok ? await res.json() : [];
                for (const c of commands) {
                    if (c.type === "navigate") child.location.replace(c.url);
                    if (c.type === "post") child.postMessage(c.message, c.origin);
                    if (c.type === "close") child.close();
                }
            } catch (err) {
                finish("The terminal session ended. You can close this tab.");
                return;
            }
            setTimeout(poll, 250);
        }

        document.getElementById("open").addEventListener("click", () => {
            child = window.open({{.URL}}, {{.Name}}, {{.Features}});
            if (child === null) {
                document.getElementById("status").textContent = "The popup was blocked. Allow popups for this page and try again.";
                return;
            }
            document.getElementById("open").disabled = true;
            clearInterval(keepalive);
            poll();
        });
    </script>
</body>
</html>`))
