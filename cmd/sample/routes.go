package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/unkn0wn-root/cacheaside"
	"github.com/unkn0wn-root/cacheaside/interceptor"
	"github.com/unkn0wn-root/cacheaside/keys"
)

type Book struct {
	ID   int    `json:"id" cbor:"id" msgpack:"id"`
	Name string `json:"name" cbor:"name" msgpack:"name"`
}

const bookKey = "book-key"

type app struct {
	books cacheaside.Manager[Book]
	log   cacheaside.Logger
	mux   *http.ServeMux
}

func newRouter(books cacheaside.Manager[Book], log cacheaside.Logger) (*http.ServeMux, error) {
	a := &app{books: books, log: log, mux: http.NewServeMux()}

	a.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// cache-aside by hand
	a.mux.HandleFunc("GET /main/book", a.getBook)

	routes := []struct {
		pattern string
		cfg     interceptor.Config
		bind    bool
		h       http.HandlerFunc
	}{
		// key = route pattern
		{"GET /main/book/call-site", interceptor.Config{Strategy: keys.CallSite()}, false, fixedBook},
		// shares the entry written by GET /main/book
		{"GET /main/book/provided-key", interceptor.Config{Strategy: keys.Literal(bookKey)}, false, fixedBook},
		// key = "GET /main/book/{bookId}:{bookId}"
		{"GET /main/book/{bookId}", interceptor.Config{Strategy: keys.FromArgument("bookId")}, false, bookFromRoute},
		// key = "POST /main/book/from-model:{book.id}"
		{"POST /main/book/from-model", interceptor.Config{Strategy: keys.FromModel("book.id")}, true, bookFromModel("Sample Book")},
		// key = "GetBook:{book.id}"
		{"POST /main/book/from-model-prefixed", interceptor.Config{Strategy: keys.FromModel("book.id"), Prefix: "GetBook"}, true, bookFromModel("Sample Book With Prefix")},
	}
	for _, rt := range routes {
		var opts interceptor.HTTPOptions
		if rt.bind {
			opts.Bind = interceptor.BindJSON[Book]("book")
		}
		if err := a.cacheable(rt.pattern, rt.cfg, opts, rt.h); err != nil {
			return nil, err
		}
	}
	return a.mux, nil
}

func (a *app) cacheable(pattern string, cfg interceptor.Config, opts interceptor.HTTPOptions, h http.HandlerFunc) error {
	cfg.Logger = a.log
	opts.Logger = a.log
	ic, err := interceptor.New[Book](a.books, cfg)
	if err != nil {
		return err
	}
	a.mux.Handle(pattern, interceptor.Middleware(ic, opts)(h))
	return nil
}

func (a *app) getBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cached, ok, err := a.books.TryGet(ctx, bookKey)
	if err != nil {
		a.log.Error("book lookup failed", cacheaside.Fields{"err": err})
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	if ok {
		writeBook(w, cached)
		return
	}

	b := Book{ID: 1, Name: "Redis Cache Manager"}
	if err := a.books.Set(ctx, bookKey, b, cacheaside.EntryOptions{Sliding: 24 * time.Hour}); err != nil {
		a.log.Warn("book not cached", cacheaside.Fields{"err": err})
	}
	writeBook(w, b)
}

func fixedBook(w http.ResponseWriter, _ *http.Request) {
	writeBook(w, Book{ID: 1, Name: "Redis Cache Manager"})
}

func bookFromRoute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("bookId"))
	if err != nil {
		http.Error(w, "bookId must be an integer", http.StatusBadRequest)
		return
	}
	writeBook(w, Book{ID: id, Name: "Sample Book"})
}

func bookFromModel(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in Book
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid book", http.StatusBadRequest)
			return
		}
		writeBook(w, Book{ID: in.ID, Name: name})
	}
}

func writeBook(w http.ResponseWriter, b Book) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(b)
}
