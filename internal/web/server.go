package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/bjornbryggman/eu4-modding-tools/internal/store"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

//go:embed all:static
var staticFS embed.FS

// Server serves the province gallery and its read-only JSON API.
type Server struct {
	Store   *store.Store
	Addr    string
	Origins []string
}

// Handler returns the routed, CORS-wrapped handler.
func (s *Server) Handler() (http.Handler, error) {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/provinces", s.handleProvinces).Methods(http.MethodGet)
	api.HandleFunc("/provinces/{id}", s.handleProvince).Methods(http.MethodGet)
	api.HandleFunc("/hierarchy", s.handleHierarchy).Methods(http.MethodGet)
	api.HandleFunc("/terrains", s.handleTerrains).Methods(http.MethodGet)
	api.HandleFunc("/climates", s.handleClimates).Methods(http.MethodGet)
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating sub filesystem: %w", err)
	}
	r.PathPrefix("/").Handler(http.FileServer(http.FS(staticSub)))

	origins := s.Origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	})
	return c.Handler(r), nil
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	h, err := s.Handler()
	if err != nil {
		return err
	}
	fmt.Printf("Serving at http://%s\n", s.Addr)
	return http.ListenAndServe(s.Addr, h)
}
