package web

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"

	"github.com/bjornbryggman/eu4-modding-tools/internal/apperr"
	"github.com/bjornbryggman/eu4-modding-tools/internal/model"
	"github.com/gorilla/mux"
)

func (s *Server) handleProvinces(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}
	provinces, err := s.Store.ReadProvinces(f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, provinces)
}

func (s *Server) handleProvince(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, apperr.Validationf("invalid province id %q", mux.Vars(r)["id"]))
		return
	}
	p, err := s.Store.ReadProvince(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, p)
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := s.Store.Hierarchy()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, tree)
}

func (s *Server) handleTerrains(w http.ResponseWriter, r *http.Request) {
	terrains, err := s.Store.ReadTerrains()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, terrains)
}

func (s *Server) handleClimates(w http.ResponseWriter, r *http.Request) {
	climates, err := s.Store.ReadClimates()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, climates)
}

type statusResponse struct {
	Provinces    int    `json:"provinces"`
	Prompts      int    `json:"prompts"`
	Images       int    `json:"images"`
	Descriptions int    `json:"descriptions"`
	ImportedAt   string `json:"imported_at"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, statusResponse{
		Provinces:    s.Store.ProvinceCount(),
		Prompts:      s.Store.PromptCount(),
		Images:       s.Store.ImageCount(),
		Descriptions: s.Store.DescriptionCount(),
		ImportedAt:   s.Store.GetMeta("imported_at"),
	})
}

// parseFilter reads ReadProvinces filters from the query string.
func parseFilter(r *http.Request) (model.ProvinceFilter, error) {
	q := r.URL.Query()
	f := model.ProvinceFilter{
		Terrain:   q.Get("terrain"),
		Climate:   q.Get("climate"),
		Area:      q.Get("area"),
		Region:    q.Get("region"),
		Continent: q.Get("continent"),
	}

	var err error
	if f.HasImage, err = boolParam(q.Get("has_image"), "has_image"); err != nil {
		return f, err
	}
	if f.HasPrompt, err = boolParam(q.Get("has_prompt"), "has_prompt"); err != nil {
		return f, err
	}
	if water, err := boolParam(q.Get("include_water"), "include_water"); err != nil {
		return f, err
	} else if water != nil {
		f.IncludeWater = *water
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, apperr.Validationf("invalid 'limit' parameter %q", v)
		}
		f.Limit = n
	}
	return f, nil
}

func boolParam(v, name string) (*bool, error) {
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.Validationf("invalid '%s' parameter %q", name, v)
	}
	return &b, nil
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), apperr.HTTPStatus(err))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil || isNilSlice(v) {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func isNilSlice(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Slice && rv.IsNil()
}
