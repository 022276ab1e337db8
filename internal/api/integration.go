package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// addressedStep is a step together with its rendered address.
type addressedStep struct {
	Address string      `json:"address"`
	Step    schema.Step `json:"step"`
}

func (s *Server) store() *state.IntegrationStore {
	return s.deps.Editor.Integrations()
}

func (s *Server) handleGetIntegration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store().Integration())
}

func (s *Server) handleUpdateIntegration(w http.ResponseWriter, r *http.Request) {
	var patch state.IntegrationPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if err := s.store().UpdateIntegration(patch); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store().Integration())
}

func (s *Server) handleDeleteIntegration(w http.ResponseWriter, r *http.Request) {
	s.store().DeleteIntegration()
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateIntegration checks the current integration. ?path narrows
// the report to one step and its descendants.
func (s *Server) handleValidateIntegration(w http.ResponseWriter, r *http.Request) {
	if s.deps.Validator == nil {
		writeNotImplemented(w, "validation")
		return
	}
	result := s.deps.Validator.ValidateIntegration(s.store().Integration())
	writeJSON(w, http.StatusOK, result.Within(r.URL.Query().Get("path")))
}

// handleListSteps returns the top-level steps, or every step with its
// address when ?flat=true.
func (s *Server) handleListSteps(w http.ResponseWriter, r *http.Request) {
	list := s.store().Steps()
	if r.URL.Query().Get("flat") != "true" {
		writeJSON(w, http.StatusOK, list)
		return
	}
	out := []addressedStep{}
	for addr, st := range steps.FlattenWithAddress(list) {
		out = append(out, addressedStep{Address: addr.String(), Step: st})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddStep(w http.ResponseWriter, r *http.Request) {
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.store().AddStep(step); err != nil {
		writeError(w, err)
		return
	}
	list := s.store().Steps()
	writeJSON(w, http.StatusCreated, list[len(list)-1])
}

func (s *Server) handlePrependStep(w http.ResponseWriter, r *http.Request) {
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.store().ReplaceStep(step, nil); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store().Steps()[0])
}

func (s *Server) handleReplaceStep(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.store().ReplaceStep(step, &index); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store().Steps()[index])
}

func (s *Server) handleDeleteStepIndex(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	if err := s.store().DeleteStep(index); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetStepAt(w http.ResponseWriter, r *http.Request) {
	addr, ok := queryAddress(w, r)
	if !ok {
		return
	}
	st, found := steps.StepAt(s.store().Steps(), addr)
	if !found {
		writeError(w, schema.NewErrorf(schema.ErrCodeNotFound, "no step at %s", addr))
		return
	}
	writeJSON(w, http.StatusOK, addressedStep{Address: addr.String(), Step: st})
}

func (s *Server) handleInsertStepAt(w http.ResponseWriter, r *http.Request) {
	addr, ok := queryAddress(w, r)
	if !ok {
		return
	}
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.store().InsertStepAt(step, addr); err != nil {
		writeError(w, err)
		return
	}
	s.writeStepAt(w, http.StatusCreated, addr)
}

func (s *Server) handleReplaceStepAt(w http.ResponseWriter, r *http.Request) {
	addr, ok := queryAddress(w, r)
	if !ok {
		return
	}
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.store().ReplaceStepAt(step, addr); err != nil {
		writeError(w, err)
		return
	}
	s.writeStepAt(w, http.StatusOK, addr)
}

func (s *Server) handleDeleteStepAt(w http.ResponseWriter, r *http.Request) {
	addr, ok := queryAddress(w, r)
	if !ok {
		return
	}
	if err := s.store().DeleteStepAt(addr); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetStep(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	list := s.store().Steps()
	addr, ok := steps.Locate(uuid, list)
	if !ok {
		writeError(w, schema.NewErrorf(schema.ErrCodeNotFound, "step %q not found", uuid).WithStep(uuid))
		return
	}
	st, _ := steps.StepAt(list, addr)
	writeJSON(w, http.StatusOK, addressedStep{Address: addr.String(), Step: st})
}

func (s *Server) handleDeleteStep(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Editor.DeleteStep(chi.URLParam(r, "uuid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInsertAfter(w http.ResponseWriter, r *http.Request) {
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.deps.Editor.InsertStepAfter(chi.URLParam(r, "uuid"), step); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store().Integration())
}

func (s *Server) handleInsertBefore(w http.ResponseWriter, r *http.Request) {
	var step schema.Step
	if !decodeBody(w, r, &step) {
		return
	}
	if err := s.deps.Editor.InsertStepBefore(chi.URLParam(r, "uuid"), step); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store().Integration())
}

func (s *Server) handleAddBranch(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Editor.AddBranch(chi.URLParam(r, "uuid")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.store().Integration())
}

func (s *Server) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var values map[string]any
	if !decodeBody(w, r, &values) {
		return
	}
	if err := s.deps.Editor.SaveConfig(chi.URLParam(r, "uuid"), values); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store().Integration())
}

// handleSearch runs the jq filter in ?q against every step.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("q")
	if filter == "" {
		writeBadRequest(w, "q is required")
		return
	}
	matches, err := steps.Search(r.Context(), s.jq, s.store().Steps(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]addressedStep, len(matches))
	for i, m := range matches {
		out[i] = addressedStep{Address: m.Address.String(), Step: m.Step}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeStepAt(w http.ResponseWriter, status int, addr schema.StepAddress) {
	st, _ := steps.StepAt(s.store().Steps(), addr)
	writeJSON(w, status, addressedStep{Address: addr.String(), Step: st})
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeBadRequest(w, "index must be an integer")
		return 0, false
	}
	return index, true
}

func queryAddress(w http.ResponseWriter, r *http.Request) (schema.StepAddress, bool) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		writeBadRequest(w, "address is required")
		return schema.StepAddress{}, false
	}
	addr, err := schema.ParseAddress(raw)
	if err != nil {
		writeError(w, err)
		return schema.StepAddress{}, false
	}
	return addr, true
}
