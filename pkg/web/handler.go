package web

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mpapenbr/racecoach/log"
	"github.com/mpapenbr/racecoach/pkg/db"
	"github.com/mpapenbr/racecoach/pkg/model"
	"github.com/mpapenbr/racecoach/pkg/repository"
	analysisrepo "github.com/mpapenbr/racecoach/pkg/repository/analysis"
	"github.com/mpapenbr/racecoach/pkg/repository/lap"
	svc "github.com/mpapenbr/racecoach/pkg/service/analysis"
	"github.com/mpapenbr/racecoach/version"
)

var errBadRequest = errors.New("bad request")

type (
	analyzeRequest struct {
		SessionKey    string  `json:"session_key"`
		Lap           int     `json:"lap"`
		RefSessionKey string  `json:"ref_session_key"`
		RefLap        int     `json:"ref_lap"`
		Track         string  `json:"track"`
		Car           string  `json:"car"`
		TrackLengthM  float64 `json:"track_length_m"`
	}
	analyzeResponse struct {
		AnalysisID  int     `json:"analysis_id"`
		TotalDeltaS float64 `json:"total_delta_s"`
		CornerCount int     `json:"corner_count"`
	}
	referenceRequest struct {
		SessionKey string `json:"session_key"`
		Lap        int    `json:"lap"`
	}
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	req := analyzeRequest{TrackLengthM: svc.DefaultTrackLengthM}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	if req.SessionKey == "" || req.Lap < 0 {
		s.writeError(w, fmt.Errorf("%w: session_key and lap are required", errBadRequest))
		return
	}
	if req.TrackLengthM <= 0 {
		s.writeError(w, fmt.Errorf("%w: track_length_m must be > 0", errBadRequest))
		return
	}
	res, err := s.service.Run(r.Context(), &svc.Request{
		SessionKey:    req.SessionKey,
		Lap:           req.Lap,
		RefSessionKey: req.RefSessionKey,
		RefLap:        req.RefLap,
		Track:         req.Track,
		Car:           req.Car,
		TrackLengthM:  req.TrackLengthM,
		Save:          true,
		Publish:       s.publish,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{
		AnalysisID:  res.Record.ID,
		TotalDeltaS: res.Report.TotalDeltaS,
		CornerCount: len(res.Report.Corners),
	})
}

func (s *Server) listAnalyses(w http.ResponseWriter, r *http.Request) {
	track, car, err := trackCar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := createdRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ret, err := analysisrepo.ListByTrackCar(r.Context(), s.db, track, car, opts...)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ret)
}

func (s *Server) getAnalysis(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: invalid id", errBadRequest))
		return
	}
	ret, err := analysisrepo.LoadReport(r.Context(), s.db, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ret)
}

func (s *Server) listLaps(w http.ResponseWriter, r *http.Request) {
	track, car, err := trackCar(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ret, err := lap.ListByTrackCar(r.Context(), s.db, track, car)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ret)
}

func (s *Server) setReference(w http.ResponseWriter, r *http.Request) {
	var req referenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}
	var ret *model.LapInfo
	err := db.WithTx(r.Context(), s.db.DB, func(tx *sql.Tx) error {
		var err error
		ret, err = lap.SetReference(r.Context(), tx, req.SessionKey, req.Lap)
		return err
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ret)
}

// trackModel expects session_key and one or more lap parameters.
func (s *Server) trackModel(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionKey := q.Get("session_key")
	if sessionKey == "" || len(q["lap"]) == 0 {
		s.writeError(w, fmt.Errorf("%w: session_key and lap are required", errBadRequest))
		return
	}
	laps := make([]svc.LapRef, 0, len(q["lap"]))
	for _, v := range q["lap"] {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: invalid lap %q", errBadRequest, v))
			return
		}
		laps = append(laps, svc.LapRef{SessionKey: sessionKey, Lap: n})
	}
	ret, err := s.service.TrackModel(r.Context(), laps)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ret)
}

func trackCar(r *http.Request) (track, car string, err error) {
	track = r.URL.Query().Get("track")
	car = r.URL.Query().Get("car")
	if track == "" || car == "" {
		return "", "", fmt.Errorf("%w: track and car are required", errBadRequest)
	}
	return track, car, nil
}

// createdRange reads the optional date_from and date_to (YYYY-MM-DD, UTC)
// parameters. Both days are included.
func createdRange(r *http.Request) ([]analysisrepo.ListOption, error) {
	ret := make([]analysisrepo.ListOption, 0, 2)
	if v := r.URL.Query().Get("date_from"); v != "" {
		from, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date_from %q", errBadRequest, v)
		}
		ret = append(ret, analysisrepo.WithCreatedFrom(from))
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		to, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid date_to %q", errBadRequest, v)
		}
		ret = append(ret, analysisrepo.WithCreatedBefore(to.AddDate(0, 0, 1)))
	}
	return ret, nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, svc.ErrNoFrames),
		errors.Is(err, svc.ErrNoPositions):
		return http.StatusNotFound
	case errors.Is(err, svc.ErrNoCorners):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code == http.StatusInternalServerError {
		s.l.Error("request failed", log.ErrorField(err))
	}
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.l.Warn("could not write response", log.ErrorField(err))
	}
}
