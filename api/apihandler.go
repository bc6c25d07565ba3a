// Package api implements the JSON API of the film browser.
package api

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/erikbos/filmbrowser/collection"
	"github.com/erikbos/filmbrowser/database/model"
	"github.com/erikbos/filmbrowser/idhash"
	"github.com/erikbos/filmbrowser/imageresize"
	"github.com/erikbos/filmbrowser/metrics"
	"github.com/erikbos/filmbrowser/search"
)

type Options struct {
	Collection   *collection.CollectionRepo
	Imageresizer *imageresize.Resizer
	// PosterDir is the directory film and series images are read from.
	PosterDir string
	// AdminPasswordHash is the bcrypt hash protecting write requests.
	AdminPasswordHash string
}

type API struct {
	collection        *collection.CollectionRepo
	imageresizer      *imageresize.Resizer
	posterDir         string
	adminPasswordHash []byte
}

// maximum size of a request body.
const maxBodySize = 1 << 20

func New(o *Options) *API {
	return &API{
		collection:        o.Collection,
		imageresizer:      o.Imageresizer,
		posterDir:         o.PosterDir,
		adminPasswordHash: []byte(o.AdminPasswordHash),
	}
}

func (a *API) RegisterHandlers(r *mux.Router) {
	gzip := handlers.CompressHandler

	r.Handle("/metrics", promhttp.Handler())

	r.Handle("/api/search", gzip(http.HandlerFunc(a.searchHandler))).Methods("GET")
	r.Handle("/api/filters", gzip(http.HandlerFunc(a.filtersHandler))).Methods("GET")
	r.HandleFunc("/api/suggest", a.suggestHandler).Methods("GET")
	r.HandleFunc("/api/films/{id}", a.filmHandler).Methods("GET")
	r.HandleFunc("/api/films/{id}/poster", a.posterHandler).Methods("GET", "HEAD")
	r.HandleFunc("/api/films/{id}/rating", a.requireAdmin(a.ratingHandler)).Methods("POST")
	r.HandleFunc("/api/series", a.requireAdmin(a.createSeriesHandler)).Methods("POST")
	r.HandleFunc("/api/series/{id}", a.seriesHandler).Methods("GET")
	r.HandleFunc("/api/persons/{id}/films", a.personFilmsHandler).Methods("GET")
	r.HandleFunc("/api/items/{id}/similar", a.similarHandler).Methods("GET")

	// Set on the root router: a NotFoundHandler on a subrouter answers 404
	// before the method mismatch of a matching path is reported.
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierror(w, "not found", http.StatusNotFound)
	})
}

func serveJSON(obj any, w http.ResponseWriter) {
	serveJSONStatus(obj, http.StatusOK, w)
}

func serveJSONStatus(obj any, status int, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(obj)
}

// decodeBody decodes and validates a JSON request body.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		apierror(w, "expected application/json", http.StatusUnsupportedMediaType)
		return false
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.DecodeContext(r.Context(), v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierror(w, "request body too large", http.StatusRequestEntityTooLarge)
			return false
		}
		apierror(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	if err := collection.Validate(v); err != nil {
		serverError(w, r, err)
		return false
	}
	return true
}

// /api/search?search=...&year_min=...&genre-drama=1
func (a *API) searchHandler(w http.ResponseWriter, r *http.Request) {
	params, errs := search.ParseParams(r.URL.Query())

	response := SearchResponse{
		Query: params.Query,
		Items: make([]SearchItem, 0),
	}
	for _, err := range errs {
		var pe *search.ParamError
		if errors.As(err, &pe) {
			metrics.RecordIgnoredParameter(pe.Param)
		}
		response.Ignored = append(response.Ignored, err.Error())
	}

	result, err := a.collection.Search(r.Context(), params)
	if err != nil {
		serverError(w, r, err)
		return
	}
	for _, item := range result.Items {
		response.Items = append(response.Items, copySearchItem(item))
	}
	serveJSON(response, w)
}

// /api/filters echoes the genre selection of the request.
func (a *API) filtersHandler(w http.ResponseWriter, r *http.Request) {
	params, _ := search.ParseParams(r.URL.Query())

	details, err := a.collection.Details(r.Context())
	if err != nil {
		serverError(w, r, err)
		return
	}
	response := FiltersResponse{
		Genres:     make([]GenreFilter, 0, len(details.Genres)),
		YearMin:    details.YearMin,
		YearMax:    details.YearMax,
		RuntimeMin: details.RuntimeMin,
		RuntimeMax: details.RuntimeMax,
	}
	for _, g := range details.Genres {
		response.Genres = append(response.Genres, GenreFilter{
			Name:  g,
			Count: details.GenreCount[strings.ToLower(g)],
			State: params.Genres.State(g),
		})
	}
	serveJSON(response, w)
}

func (a *API) suggestHandler(w http.ResponseWriter, r *http.Request) {
	hits, err := a.collection.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		serverError(w, r, err)
		return
	}
	serveJSON(nonNilHits(hits), w)
}

func (a *API) filmHandler(w http.ResponseWriter, r *http.Request) {
	film, err := a.collection.GetFilm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		serverError(w, r, err)
		return
	}
	serveJSON(copyFilm(film), w)
}

func (a *API) seriesHandler(w http.ResponseWriter, r *http.Request) {
	series, err := a.collection.GetSeries(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		serverError(w, r, err)
		return
	}
	serveJSON(copySeries(series), w)
}

func (a *API) personFilmsHandler(w http.ResponseWriter, r *http.Request) {
	person, films, err := a.collection.PersonFilms(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		serverError(w, r, err)
		return
	}
	response := PersonFilms{
		ID:    person.ID,
		Name:  person.Name,
		Alias: person.Alias,
		Films: make([]Film, 0, len(films)),
	}
	for _, f := range films {
		response.Films = append(response.Films, copyFilm(f))
	}
	serveJSON(response, w)
}

// /api/items/{id}/similar?kind=series
func (a *API) similarHandler(w http.ResponseWriter, r *http.Request) {
	ref := model.MemberRef{Kind: model.MemberKindFilm, ID: mux.Vars(r)["id"]}
	switch kind := r.URL.Query().Get("kind"); kind {
	case "", string(model.MemberKindFilm):
	case string(model.MemberKindSeries):
		ref.Kind = model.MemberKindSeries
	default:
		apierror(w, "unknown kind "+kind, http.StatusBadRequest)
		return
	}
	hits, err := a.collection.Similar(r.Context(), ref)
	if err != nil {
		serverError(w, r, err)
		return
	}
	serveJSON(nonNilHits(hits), w)
}

func (a *API) ratingHandler(w http.ResponseWriter, r *http.Request) {
	var request RatingRequest
	if !decodeBody(w, r, &request) {
		return
	}
	film, err := a.collection.SetUserRating(r.Context(), mux.Vars(r)["id"], *request.Rating)
	if err != nil {
		serverError(w, r, err)
		return
	}
	serveJSON(copyFilm(film), w)
}

func (a *API) createSeriesHandler(w http.ResponseWriter, r *http.Request) {
	var def collection.SeriesDefinition
	if !decodeBody(w, r, &def) {
		return
	}
	if def.ID != "" && !idhash.Valid(def.ID) {
		apierror(w, "invalid series id", http.StatusBadRequest)
		return
	}
	series, err := a.collection.MakeSeries(r.Context(), def)
	if err != nil {
		serverError(w, r, err)
		return
	}
	serveJSONStatus(copySeries(series), http.StatusCreated, w)
}

// /api/films/{id}/poster?w=200&h=300&q=80
func (a *API) posterHandler(w http.ResponseWriter, r *http.Request) {
	film, err := a.collection.GetFilm(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		serverError(w, r, err)
		return
	}
	if film.Image == "" || a.posterDir == "" {
		apierror(w, "no poster", http.StatusNotFound)
		return
	}
	// images are referenced by name, never by path
	name := filepath.Join(a.posterDir, filepath.Base(filepath.Clean("/"+film.Image)))

	img, err := a.imageresizer.Open(name, imageresize.ParseSize(r.URL.Query()))
	if err != nil {
		if errors.Is(err, imageresize.ErrNotAnImage) {
			serverError(w, r, err)
			return
		}
		apierror(w, "poster not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "max-age=86400")
	http.ServeContent(w, r, filepath.Base(name), img.ModTime, bytes.NewReader(img.Data))
}
