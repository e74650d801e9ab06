package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"trade-outcome-lab/internal/config"
	"trade-outcome-lab/internal/evaluator"
	"trade-outcome-lab/internal/metrics"
	"trade-outcome-lab/internal/orchestrator"
	"trade-outcome-lab/internal/reporting"
	"trade-outcome-lab/internal/storage"
	"trade-outcome-lab/internal/tradefile"
)

// uploadField is the multipart field carrying the trade file.
const uploadField = "file"

// handleEvaluate evaluates an uploaded CSV or XLSX file.
// Query or form params target_pct and sl_pct override the defaults.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.writeError(w, statusFor(err, http.StatusBadRequest), fmt.Errorf("read upload field %q: %w", uploadField, err))
		return
	}
	defer file.Close()

	targetPct, err := s.pctParam(r, "target_pct", s.targetPct)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	slPct, err := s.pctParam(r, "sl_pct", s.slPct)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	format, err := tradefile.DetectFormat(header.Filename)
	if err != nil {
		s.writeError(w, http.StatusUnsupportedMediaType, err)
		return
	}
	requests, err := tradefile.Read(file, format)
	if err != nil {
		s.writeError(w, statusFor(err, http.StatusBadRequest), err)
		return
	}

	s.logger.Info().Str("file", header.Filename).Int("rows", len(requests)).
		Float64("target_pct", targetPct).Float64("sl_pct", slPct).Msg("evaluation requested")

	result, err := s.orch.Run(r.Context(), requests, targetPct, slPct)
	switch {
	case errors.Is(err, evaluator.ErrInvalidParameter):
		s.writeError(w, http.StatusBadRequest, err)
		return
	case result == nil, errors.Is(err, orchestrator.ErrPersist):
		s.writeError(w, http.StatusInternalServerError, err)
		return
	case err != nil:
		// Client went away; the partial run is already stored.
		s.logger.Warn().Err(err).Str("run_id", result.Run.RunID).Msg("evaluation interrupted")
		return
	}

	s.writeJSON(w, http.StatusOK, newRunResponse(result.Analysis, true))
}

// pctParam reads a percentage parameter, falling back to def when absent.
func (s *Server) pctParam(r *http.Request, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", name, raw)
	}
	if err := config.ValidatePct(name, v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := DefaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("limit: %q is not a positive integer", raw))
			return
		}
		limit = n
	}

	runs, err := s.orch.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := make([]runListItem, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, newRunListItem(run))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	analysis, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	includeResults := r.URL.Query().Get("results") != "false"
	s.writeJSON(w, http.StatusOK, newRunResponse(analysis, includeResults))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	analysis, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", attachment(reporting.ExportFileName(s.now(), "csv")))
	if err := reporting.WriteCSV(w, analysis.Results); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
	}
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	analysis, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", attachment(reporting.ExportFileName(s.now(), "xlsx")))
	if err := reporting.WriteXLSX(w, analysis.Results, analysis.Summary); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.gen.Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, lookupStatus(err), err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(reporting.RenderMarkdown(report)))
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*metrics.Analysis, bool) {
	analysis, err := s.orch.Load(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, lookupStatus(err), err)
		return nil, false
	}
	return analysis, true
}

func lookupStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
