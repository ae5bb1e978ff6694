package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/benmeehan/qtracker/internal/app"
	"github.com/benmeehan/qtracker/internal/filters"
	"github.com/benmeehan/qtracker/internal/models"
	"github.com/julienschmidt/httprouter"
)

// viewQueryKeys switch GET /v1/venues from the session's filters to ad-hoc ones.
var viewQueryKeys = []string{"mode", "city", "country", "genre", "max_distance", "q"}

type venueList struct {
	Venues        []app.VenueView `json:"venues"`
	Filters       filters.Params  `json:"filters"`
	ActiveFilters int             `json:"activeFilters"`
	Loading       bool            `json:"loading"`
}

type credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"venues":  len(s.tracker.Venues()),
		"loading": s.tracker.IsLoading(),
	})
}

func (s *Server) listVenues(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()

	composition := s.tracker.Composition()
	if raw := q.Get("composition"); raw != "" {
		c, err := filters.ParseComposition(raw)
		if err != nil {
			s.respondErr(w, models.NewValidationError("composition", err.Error()))
			return
		}
		composition = c
	}

	p := s.tracker.Filters()
	if hasAny(q, viewQueryKeys) {
		parsed, err := paramsFromQuery(q)
		if err != nil {
			s.respondErr(w, err)
			return
		}
		p = parsed
	}

	s.respondJSON(w, http.StatusOK, venueList{
		Venues:        s.tracker.View(p, composition),
		Filters:       p,
		ActiveFilters: p.Active(),
		Loading:       s.tracker.IsLoading(),
	})
}

func (s *Server) getVenue(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	view, err := s.tracker.VenueView(ps.ByName("id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) listUpdates(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	updates, err := s.tracker.VenueUpdates(ps.ByName("id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"updates": updates})
}

func (s *Server) createVenue(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.NewVenueInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondErr(w, err)
		return
	}
	id, err := s.tracker.CreateVenue(in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) submitUpdate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in models.StatusUpdateInput
	if err := decodeJSON(r, &in); err != nil {
		s.respondErr(w, err)
		return
	}
	in.VenueID = ps.ByName("id")

	rec, err := s.tracker.SubmitUpdate(in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) listFavorites(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.respondJSON(w, http.StatusOK, map[string][]string{"ids": s.tracker.Favorites()})
}

func (s *Server) toggleFavorite(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	fav, err := s.tracker.ToggleFavorite(id)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "favorite": fav})
}

func (s *Server) getLocation(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	loc, ok := s.tracker.Location()
	if !ok {
		s.respondError(w, http.StatusNotFound, "Location not set")
		return
	}
	s.respondJSON(w, http.StatusOK, loc)
}

func (s *Server) setLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in models.UserLocation
	if err := decodeJSON(r, &in); err != nil {
		s.respondErr(w, err)
		return
	}
	loc, err := s.tracker.SetLocation(in)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, loc)
}

func (s *Server) forgetLocation(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := s.tracker.ForgetLocation(); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) resolveLocation(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	loc, err := s.tracker.ResolveLocation(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, loc)
}

func (s *Server) getFilters(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	p := s.tracker.Filters()
	s.respondJSON(w, http.StatusOK, map[string]any{"filters": p, "activeFilters": p.Active()})
}

func (s *Server) setFilters(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p filters.Params
	if err := decodeJSON(r, &p); err != nil {
		s.respondErr(w, err)
		return
	}
	mode, err := filters.ParseDisplayMode(string(p.DisplayMode))
	if err != nil {
		s.respondErr(w, models.NewValidationError("displayMode", err.Error()))
		return
	}
	if p.MaxDistanceKm < 0 {
		s.respondErr(w, models.NewValidationError("maxDistance", "Distance cannot be negative"))
		return
	}
	p.DisplayMode = mode

	s.tracker.SetFilters(p)
	s.respondJSON(w, http.StatusOK, map[string]any{"filters": p, "activeFilters": p.Active()})
}

func (s *Server) clearFilters(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	s.tracker.ClearFilters()
	p := s.tracker.Filters()
	s.respondJSON(w, http.StatusOK, map[string]any{"filters": p, "activeFilters": p.Active()})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.tracker.Refresh(r.Context()); err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"venues": len(s.tracker.Venues())})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		s.respondErr(w, err)
		return
	}
	u, err := s.tracker.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, u)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var c credentials
	if err := decodeJSON(r, &c); err != nil {
		s.respondErr(w, err)
		return
	}
	u, err := s.tracker.Register(r.Context(), c.Name, c.Email, c.Password)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, u)
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if err := s.tracker.Logout(); err != nil {
		s.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) me(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	u, ok := s.tracker.CurrentUser()
	if !ok {
		s.respondError(w, http.StatusUnauthorized, "Not signed in")
		return
	}
	s.respondJSON(w, http.StatusOK, u)
}

func hasAny(q url.Values, keys []string) bool {
	for _, k := range keys {
		if _, ok := q[k]; ok {
			return true
		}
	}
	return false
}

func paramsFromQuery(q url.Values) (filters.Params, error) {
	mode, err := filters.ParseDisplayMode(q.Get("mode"))
	if err != nil {
		return filters.Params{}, models.NewValidationError("mode", err.Error())
	}
	p := filters.Params{
		DisplayMode: mode,
		City:        strings.TrimSpace(q.Get("city")),
		Country:     strings.TrimSpace(q.Get("country")),
		Genre:       strings.TrimSpace(q.Get("genre")),
		SearchText:  q.Get("q"),
	}
	if raw := q.Get("max_distance"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d < 0 {
			return filters.Params{}, models.NewValidationError("max_distance", "Distance must be a non-negative number")
		}
		p.MaxDistanceKm = d
	}
	return p, nil
}
