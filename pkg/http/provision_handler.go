package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	devicerrors "mqtt-relay-controller/pkg/errors"
	"mqtt-relay-controller/pkg/logger"
	"mqtt-relay-controller/pkg/settings"
)

const portalPage = `<!DOCTYPE html>
<html>
<head><title>Device Provisioning</title></head>
<body>
<h2>Network Provisioning</h2>
<form method="POST" action="/provision">
  <label>SSID: <input type="text" name="ssid"></label><br>
  <label>Password: <input type="password" name="secret"></label><br>
  <input type="submit" value="Connect">
</form>
</body>
</html>
`

// ProvisionHandler serves the one-time captive-portal-style credentials form
type ProvisionHandler struct {
	submitted chan settings.Credentials
}

// NewProvisionHandler creates a provisioning handler
func NewProvisionHandler() *ProvisionHandler {
	return &ProvisionHandler{
		submitted: make(chan settings.Credentials, 1),
	}
}

// ServeHTTP implements http.Handler for the portal endpoints
func (h *ProvisionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet:
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, portalPage)

	case r.Method == http.MethodPost && r.URL.Path == "/provision":
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		ssid := r.PostFormValue("ssid")
		secret := r.PostFormValue("secret")
		if ssid == "" {
			http.Error(w, "ssid is required", http.StatusBadRequest)
			return
		}

		creds := settings.Credentials{SSID: ssid, Secret: secret}
		select {
		case h.submitted <- creds:
			logger.LogInfo("📶 Credentials received for ssid '%s'", ssid)
		default:
			// Already provisioned in this window
		}
		fmt.Fprint(w, "Credentials accepted, device is connecting...")

	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// RunPortal runs the provisioning flow: serves the portal on the given port
// and waits up to the timeout for credentials. Expiry of the window is fatal
// to the caller (the process restarts and retries provisioning).
func RunPortal(ctx context.Context, port int, timeout time.Duration) (settings.Credentials, error) {
	handler := NewProvisionHandler()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.LogInfo("📶 Provisioning portal listening on :%d (window: %v)", port, timeout)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.LogError("Provisioning portal error: %v", err)
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	select {
	case creds := <-handler.submitted:
		return creds, nil
	case <-time.After(timeout):
		return settings.Credentials{}, devicerrors.NewProvisionError("provisioning window",
			fmt.Errorf("no credentials received within %v", timeout))
	case <-ctx.Done():
		return settings.Credentials{}, devicerrors.NewProvisionError("provisioning window", ctx.Err())
	}
}
