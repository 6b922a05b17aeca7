package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
)

// RecoveryMiddleware turns a handler panic into 500 and logs the stack.
// onPanic (may be nil) is called for every recovered panic. When the handler
// already started the response, the connection is left as is: a second
// status line cannot be sent.
func RecoveryMiddleware(logger *slog.Logger, onPanic func()) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)

			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// клиент сам разорвал соединение, ответ уже не нужен
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				if onPanic != nil {
					onPanic()
				}
				logger.Error("Panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", RequestID(r.Context()),
					"response_started", rw.wroteHeader,
					"stack", string(debug.Stack()),
				)

				if !rw.wroteHeader {
					writeError(rw, "internal server error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
