package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/Koyo-os/docusurvey/internal/service"
	"github.com/Koyo-os/docusurvey/pkg/auth"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type (
	fillView struct {
		ID        uuid.UUID  `json:"id"`
		Questions []string   `json:"questions"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}

	submitRequest struct {
		Answers entity.Answers `json:"answers"`
	}

	submitResponse struct {
		ResponseID string `json:"responseId"`
	}

	createSurveyRequest struct {
		Questions []string   `json:"questions"`
		ExpiresAt *time.Time `json:"expiresAt"`
	}

	createdSurvey struct {
		Survey   *entity.Survey `json:"survey"`
		FillPath string         `json:"fillPath"`
		FillURL  string         `json:"fillUrl"`
	}
)

func (h *Handler) GetFillSurvey(w http.ResponseWriter, r *http.Request) {
	id, err := surveyIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	survey, err := h.services.Surveys.FillSurvey(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, fillView{
		ID:        survey.ID,
		Questions: survey.Questions,
		ExpiresAt: survey.ExpiresAt,
	})
}

func (h *Handler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	id, err := surveyIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req submitRequest
	if err = decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	label, err := h.services.Responses.SubmitResponse(r.Context(), id, req.Answers)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, submitResponse{ResponseID: label})
}

// CreateSurvey accepts either a multipart upload of the survey document or a
// JSON list of questions.
func (h *Handler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	var (
		survey *entity.Survey
		err    error
	)

	if isMultipart(r) {
		survey, err = h.createFromDocument(r, viewer)
	} else {
		var req createSurveyRequest
		if err = decodeJSON(w, r, &req); err == nil {
			survey, err = h.services.Surveys.CreateSurvey(r.Context(), viewer, req.Questions, req.ExpiresAt)
		}
	}

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, createdSurvey{
		Survey:   survey,
		FillPath: survey.FillPath(),
		FillURL:  h.services.Surveys.ShareLink(survey.ID),
	})
}

func (h *Handler) createFromDocument(r *http.Request, viewer *entity.Viewer) (*entity.Survey, error) {
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, fmt.Errorf("%w: invalid multipart body: %v", entity.ErrValidation, err)
	}

	expiresAt, err := parseExpiry(r.FormValue("expiresAt"))
	if err != nil {
		return nil, err
	}

	filename, data, err := h.readFile(r, "file")
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: file is required", entity.ErrValidation)
	}

	return h.services.Surveys.CreateSurveyFromDocument(r.Context(), viewer, filename, data, expiresAt)
}

func (h *Handler) ListSurveys(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	surveys, err := h.services.Surveys.ListSurveys(r.Context(), viewer)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, surveys)
}

func (h *Handler) DeleteSurvey(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	id, err := surveyIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err = h.services.Surveys.DeleteSurvey(r.Context(), viewer, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) QRCode(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	id, err := surveyIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	png, err := h.services.Surveys.QRCode(r.Context(), viewer, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// SubmitPhysicalResponse reads the transcribed answers from the "answers"
// form field and an optional "scan" file.
func (h *Handler) SubmitPhysicalResponse(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	id, err := surveyIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err = r.ParseMultipartForm(h.maxUpload); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid multipart body: %v", entity.ErrValidation, err))
		return
	}

	var answers entity.Answers
	if err = json.Unmarshal([]byte(r.FormValue("answers")), &answers); err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid answers: %v", entity.ErrValidation, err))
		return
	}

	var scan *service.Upload
	filename, data, err := h.readFile(r, "scan")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if data != nil {
		scan = &service.Upload{Filename: filename, Data: data}
		if fh := r.MultipartForm.File["scan"]; len(fh) > 0 {
			scan.ContentType = fh[0].Header.Get("Content-Type")
		}
	}

	label, err := h.services.Responses.SubmitPhysicalResponse(r.Context(), viewer, id, answers, scan)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, submitResponse{ResponseID: label})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	filter, err := entity.ParseDateFilter(r.URL.Query().Get("filter"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	dashboard, err := h.services.Dashboards.Load(r.Context(), viewer, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	id, err := surveyIDQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	report, err := h.services.Reports.Report(r.Context(), viewer, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.ViewerFromContext(r.Context())

	id, err := surveyIDQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	filename, data, err := h.services.Reports.Export(r.Context(), viewer, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// readFile returns nil data when the field is absent.
func (h *Handler) readFile(r *http.Request, field string) (string, []byte, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("%w: invalid %s upload: %v", entity.ErrValidation, field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		return "", nil, fmt.Errorf("%w: read %s: %v", entity.ErrValidation, field, err)
	}
	if int64(len(data)) > h.maxUpload {
		return "", nil, fmt.Errorf("%w: %s exceeds %d bytes", entity.ErrValidation, field, h.maxUpload)
	}

	return header.Filename, data, nil
}

func surveyIDParam(r *http.Request) (uuid.UUID, error) {
	return parseSurveyID(chi.URLParam(r, "surveyID"))
}

func surveyIDQuery(r *http.Request) (uuid.UUID, error) {
	return parseSurveyID(r.URL.Query().Get("surveyId"))
}

func parseSurveyID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: Survey ID is required", entity.ErrValidation)
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid survey id %q", entity.ErrValidation, raw)
	}

	return id, nil
}

func parseExpiry(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: expiresAt must be RFC3339: %v", entity.ErrValidation, err)
	}

	return &t, nil
}

// decodeJSON reads at most maxJSONBodyBytes of the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: request body exceeds %d bytes", entity.ErrValidation, tooLarge.Limit)
		}
		return fmt.Errorf("%w: invalid request body: %v", entity.ErrValidation, err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}
