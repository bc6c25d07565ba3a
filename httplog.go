package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// statusWriter proxies http.ResponseWriter
// and stores the requests status and length.
type statusWriter struct {
	http.ResponseWriter
	status int
	length int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (length int, err error) {
	if w.status == 0 {
		w.status = 200
	}
	length, err = w.ResponseWriter.Write(b)
	w.length += length
	return
}

// HttpLog calls ServeHTTP with a custom responsewriter that
// stores the requests status and length so we can log it.
func HttpLog(handle http.Handler) http.HandlerFunc {
	if handle == nil {
		handle = http.DefaultServeMux
	}
	return func(w http.ResponseWriter, request *http.Request) {
		start := time.Now()
		writer := statusWriter{w, 0, 0}
		handle.ServeHTTP(&writer, request)
		latency := time.Since(start)

		var event *zerolog.Event
		switch {
		case writer.status >= 500:
			event = log.Error()
		case writer.status >= 400:
			event = log.Warn()
		default:
			event = log.Info()
		}
		event.
			Str("remote", request.RemoteAddr).
			Str("method", request.Method).
			Str("url", request.URL.String()).
			Str("proto", request.Proto).
			Int("status", writer.status).
			Int("length", writer.length).
			Str("agent", request.Header.Get("User-Agent")).
			Dur("latency", latency).
			Msg("http request")
	}
}
