package oauth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jamiequint/groundeffect/internal/geerrors"
)

// AwaitCallback starts a short-lived local HTTP server on 127.0.0.1:8085
// and waits for Google to redirect the browser to /oauth/callback with
// ?code=...&state=.... It validates the returned state matches expectedState
// and shuts the server down 5 minutes after it starts if no callback arrives.
func AwaitCallback(ctx context.Context, expectedState string) (code string, err error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result := make(chan struct {
		code string
		err  error
	}, 1)

	mux := http.NewServeMux()
	srv := &http.Server{Addr: "127.0.0.1:8085", Handler: mux}

	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if errParam := q.Get("error"); errParam != "" {
			fmt.Fprintln(w, "Authorization failed. You may close this window.")
			result <- struct {
				code string
				err  error
			}{"", geerrors.Network(fmt.Errorf("oauth authorization denied: %s", errParam))}
			return
		}
		if q.Get("state") != expectedState {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprintln(w, "State mismatch. You may close this window.")
			result <- struct {
				code string
				err  error
			}{"", geerrors.InvalidRequest("oauth callback state mismatch")}
			return
		}
		fmt.Fprintln(w, "Authorization complete. You may close this window.")
		result <- struct {
			code string
			err  error
		}{q.Get("code"), nil}
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			result <- struct {
				code string
				err  error
			}{"", geerrors.Internal(err)}
		}
	}()

	var res struct {
		code string
		err  error
	}
	select {
	case res = <-result:
	case <-ctx.Done():
		res.err = geerrors.Network(ctx.Err())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	return res.code, res.err
}
