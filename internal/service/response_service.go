package service

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/Koyo-os/docusurvey/internal/entity"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

// Upload is a scanned paper response attached to a transcription.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ResponseService collects digital and transcribed paper responses.
type ResponseService struct {
	deps Deps
	opts Options
}

func NewResponseService(deps Deps, opts Options) *ResponseService {
	return &ResponseService{
		deps: deps.withDefaults(),
		opts: opts.withDefaults(),
	}
}

// SubmitResponse stores a respondent's answers and returns the response label.
// A failure to link the response to its survey does not fail the call, the
// response is flagged as orphaned instead.
func (s *ResponseService) SubmitResponse(ctx context.Context, surveyID uuid.UUID, answers entity.Answers) (string, error) {
	now := s.opts.Now()

	response, err := entity.NewResponse(surveyID, answers, entity.SourceDigital, now)
	if err != nil {
		return "", err
	}

	survey, err := s.deps.Surveys.GetSurvey(ctx, surveyID)
	if err != nil {
		return "", err
	}

	if survey.Expired(now) {
		return "", fmt.Errorf("%w: survey %s no longer accepts responses", entity.ErrExpired, surveyID)
	}

	if err = survey.CheckAnswers(answers); err != nil {
		return "", err
	}

	if err = s.deps.Responses.CreateResponse(ctx, response); err != nil {
		return "", fmt.Errorf("failed to save response: %w", err)
	}

	s.link(ctx, response)

	return response.ID, nil
}

// SubmitPhysicalResponse stores answers transcribed by the survey owner from
// paper. Expiry is not checked. The optional scan is uploaded before the
// record is written; an upload failure leaves nothing behind.
func (s *ResponseService) SubmitPhysicalResponse(ctx context.Context, viewer *entity.Viewer, surveyID uuid.UUID, answers entity.Answers, scan *Upload) (string, error) {
	response, err := entity.NewResponse(surveyID, answers, entity.SourcePhysicalUpload, s.opts.Now())
	if err != nil {
		return "", err
	}

	survey, err := ownedSurvey(ctx, s.deps.Surveys, viewer, surveyID)
	if err != nil {
		return "", err
	}

	if err = survey.CheckAnswers(answers); err != nil {
		return "", err
	}

	if scan != nil {
		if err = s.attachScan(ctx, response, scan); err != nil {
			return "", err
		}
	}

	if err = s.deps.Responses.CreateResponse(ctx, response); err != nil {
		s.dropScan(ctx, response)
		return "", fmt.Errorf("failed to save response: %w", err)
	}

	s.link(ctx, response)

	return response.ID, nil
}

func (s *ResponseService) link(ctx context.Context, response *entity.Response) {
	ref := entity.ResponseRef{
		SurveyID:   response.SurveyID.String(),
		ResponseID: response.ID,
		Source:     response.Source,
	}

	s.deps.Metrics.ResponseSubmitted(string(response.Source))

	if err := s.deps.Surveys.AppendResponse(ctx, response.SurveyID, response.ID); err != nil {
		s.deps.Logger.Error("response saved but not linked to survey",
			zap.String("survey_id", ref.SurveyID),
			zap.String("response_id", ref.ResponseID),
			zap.Error(err))

		s.deps.Metrics.ResponseOrphaned()
		s.deps.publish(ref, entity.EventResponseOrphaned)
	}

	s.deps.publish(ref, entity.EventResponseSubmitted)
}

func (s *ResponseService) attachScan(ctx context.Context, response *entity.Response, scan *Upload) error {
	contentType, err := s.checkScan(scan)
	if err != nil {
		return err
	}

	if s.deps.Objects == nil {
		return fmt.Errorf("%w: object storage is not configured", entity.ErrUpload)
	}

	key := entity.ScanObjectKey(response.ID, scan.Filename)

	url, err := s.deps.Objects.Put(ctx, key, scan.Data, contentType)
	if err != nil {
		return fmt.Errorf("%w: %v", entity.ErrUpload, err)
	}

	response.PhysicalScanURL = &url
	response.ScanKey = &key

	return nil
}

func (s *ResponseService) dropScan(ctx context.Context, response *entity.Response) {
	if response.ScanKey == nil || s.deps.Objects == nil {
		return
	}

	if err := s.deps.Objects.Delete(ctx, *response.ScanKey); err != nil {
		s.deps.Logger.Warn("error remove scan of unsaved response",
			zap.String("key", *response.ScanKey),
			zap.Error(err))
	}
}

// checkScan enforces the size limit and accepts images and PDFs that pdfcpu
// can read. It returns the content type to store the object with.
func (s *ResponseService) checkScan(scan *Upload) (string, error) {
	if len(scan.Data) == 0 {
		return "", fmt.Errorf("%w: scan is empty", entity.ErrValidation)
	}

	if int64(len(scan.Data)) > s.opts.MaxScanBytes {
		return "", fmt.Errorf("%w: scan exceeds %d bytes", entity.ErrValidation, s.opts.MaxScanBytes)
	}

	contentType := scanContentType(scan)

	switch {
	case contentType == "application/pdf":
		if err := checkPDF(scan.Data); err != nil {
			return "", fmt.Errorf("%w: unreadable pdf scan: %v", entity.ErrValidation, err)
		}
	case strings.HasPrefix(contentType, "image/"):
	default:
		return "", fmt.Errorf("%w: unsupported scan type %q", entity.ErrValidation, contentType)
	}

	return contentType, nil
}

func scanContentType(scan *Upload) string {
	if mediaType, _, err := mime.ParseMediaType(scan.ContentType); err == nil && mediaType != "application/octet-stream" {
		return mediaType
	}

	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(scan.Data))
	return mediaType
}

func checkPDF(data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return err
	}

	if err = pdfCtx.EnsurePageCount(); err != nil {
		return err
	}

	if pdfCtx.PageCount == 0 {
		return fmt.Errorf("pdf has no pages")
	}

	return nil
}
