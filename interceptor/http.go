package interceptor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/codec"
	"github.com/unkn0wn-root/cacheaside/keys"
)

// HTTPOptions adapt an Interceptor to net/http.
type HTTPOptions struct {
	// Bind returns model arguments (e.g. a decoded JSON body) keyed by argument name.
	// A Bind error marks the request as failing validation: the cache is bypassed.
	Bind func(r *http.Request) (map[string]any, error)
	// Identity names the handler. nil => r.Pattern, else "METHOD path".
	Identity func(r *http.Request) string

	Logger cacheaside.Logger // if nil, NopLogger is used
}

// Middleware caches the JSON body of 200 responses as V and replays it on hit.
// Route arguments come from r.PathValue, then the query string, after Bind results.
func Middleware[V any](ic *Interceptor[V], opts HTTPOptions) func(http.Handler) http.Handler {
	log := opts.Logger
	if log == nil {
		log = cacheaside.NopLogger{}
	}
	identity := opts.Identity
	if identity == nil {
		identity = defaultIdentity
	}

	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inv := &Invocation{Identity: identity(r)}
			args := &requestArgs{r: r}
			if opts.Bind != nil {
				bound, err := opts.Bind(r)
				if err != nil {
					log.Debug("request binding failed; bypassing cache", cacheaside.Fields{"path": r.URL.Path, "err": err})
					inv.ValidationFailed = true
				}
				args.bound = bound
			}
			inv.Args = args

			buf := &bufferedWriter{header: w.Header(), status: http.StatusOK}
			resp, err := ic.Handle(r.Context(), inv, func(context.Context) (*Response, error) {
				h.ServeHTTP(buf, r)
				return decodeResponse[V](buf), nil
			})

			switch {
			case inv.Result != nil:
				writeJSON(w, inv.Result.Status, inv.Result.Payload, log)
			case resp != nil:
				if err != nil {
					log.Warn("cache write failed; serving handler response", cacheaside.Fields{"path": r.URL.Path, "err": err})
				}
				buf.flushTo(w)
			case err != nil:
				log.Error("cache lookup failed", cacheaside.Fields{"path": r.URL.Path, "err": err})
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

// BindJSON decodes the request body into M under name and restores the body for the handler.
func BindJSON[M any](name string) func(r *http.Request) (map[string]any, error) {
	return func(r *http.Request) (map[string]any, error) {
		if r.Body == nil {
			return nil, fmt.Errorf("bind %s: empty body", name)
		}
		body, err := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		var m M
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("bind %s: %w", name, err)
		}
		return map[string]any{name: m}, nil
	}
}

func defaultIdentity(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.Method + " " + r.URL.Path
}

type requestArgs struct {
	r     *http.Request
	bound map[string]any
}

var _ keys.Arguments = (*requestArgs)(nil)

func (a *requestArgs) Argument(name string) (any, bool) {
	if v, ok := a.bound[name]; ok {
		return v, true
	}
	if v := a.r.PathValue(name); v != "" {
		return v, true
	}
	q := a.r.URL.Query()
	if q.Has(name) {
		return q.Get(name), true
	}
	return nil, false
}

// bufferedWriter holds status and body until the interceptor decided what to do.
// Headers go straight to the real writer's map.
type bufferedWriter struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (b *bufferedWriter) Header() http.Header { return b.header }

func (b *bufferedWriter) WriteHeader(status int) {
	if b.wroteHeader {
		return
	}
	b.status = status
	b.wroteHeader = true
}

func (b *bufferedWriter) Write(p []byte) (int, error) {
	b.wroteHeader = true
	return b.body.Write(p)
}

// decodeResponse turns a buffered 200 JSON body into V; other bodies stay raw and are never cached.
// The body must be exactly one non-null document with no fields V does not declare.
func decodeResponse[V any](b *bufferedWriter) *Response {
	resp := &Response{Status: b.status, Payload: b.body.Bytes()}
	body := bytes.TrimSpace(b.body.Bytes())
	if b.status != http.StatusOK || len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return resp
	}
	v, err := codec.NewJSON[V](codec.JSONOptions{DisallowUnknownFields: true}).Decode(body)
	if err != nil {
		return resp
	}
	resp.Payload = v
	return resp
}

func (b *bufferedWriter) flushTo(w http.ResponseWriter) {
	w.WriteHeader(b.status)
	_, _ = w.Write(b.body.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v any, log cacheaside.Logger) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error("encode cached response", cacheaside.Fields{"err": err})
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
