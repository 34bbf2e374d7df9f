// Package handler provides HTTP handlers for the evidence service.
package handler

import (
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/evidence-x/internal/evidence/biz"
	"github.com/kart-io/evidence-x/internal/model"
	"github.com/kart-io/evidence-x/internal/pkg/httputils"
	"github.com/kart-io/evidence-x/pkg/errors"
	"github.com/kart-io/evidence-x/pkg/validator"
)

// FormFieldFiles is the multipart field carrying uploaded documents.
const FormFieldFiles = "files"

// EvidenceHandler handles evidence HTTP requests.
type EvidenceHandler struct {
	svc           biz.Service
	maxUploadSize int64
}

// NewEvidenceHandler creates a new EvidenceHandler. maxUploadSize bounds the
// whole multipart body in bytes; 0 disables the limit.
func NewEvidenceHandler(svc biz.Service, maxUploadSize int64) *EvidenceHandler {
	return &EvidenceHandler{svc: svc, maxUploadSize: maxUploadSize}
}

// AskRequest is the request body of Ask.
type AskRequest struct {
	Question string `json:"question" validate:"notblank,max=4000"`
}

// FilesResponse lists the indexed filenames.
type FilesResponse struct {
	Files []string `json:"files"`
}

// Upload handles POST /upload with one or more multipart "files" parts.
//
//	@Summary		上传文档
//	@Description	上传 PDF、DOCX、XLSX、Markdown 或纯文本文件，分块并向量化后追加到语料库
//	@Tags			Evidence
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			files	formData	file	true	"文档，可重复"
//	@Success		200		{object}	response.Response{data=model.UploadResult}
//	@Failure		400		{object}	response.Response
//	@Failure		409		{object}	response.Response
//	@Failure		413		{object}	response.Response
//	@Failure		503		{object}	response.Response
//	@Router			/v1/evidence/upload [post]
func (h *EvidenceHandler) Upload(c *gin.Context) {
	if h.maxUploadSize > 0 {
		if c.Request.ContentLength > h.maxUploadSize {
			httputils.WriteResponse(c, h.formError(&http.MaxBytesError{Limit: h.maxUploadSize}), nil)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	}

	form, err := c.MultipartForm()
	if err != nil {
		httputils.WriteResponse(c, h.formError(err), nil)
		return
	}

	headers := form.File[FormFieldFiles]
	if len(headers) == 0 {
		httputils.WriteResponse(c, errors.ErrNoFiles, nil)
		return
	}

	files := make([]model.UploadFile, 0, len(headers))
	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			httputils.WriteResponse(c, h.formError(err), nil)
			return
		}
		files = append(files, model.UploadFile{Filename: fh.Filename, Data: data})
	}

	result, err := h.svc.Upload(c.Request.Context(), files)
	httputils.WriteResponse(c, err, result)
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *EvidenceHandler) formError(err error) error {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return errors.ErrUploadTooLarge.WithMessagef("Upload exceeds the %d byte limit", h.maxUploadSize)
	}
	if stderrors.Is(err, http.ErrNotMultipart) || stderrors.Is(err, http.ErrMissingBoundary) {
		return errors.ErrBadRequest.WithMessage("Expected a multipart/form-data body")
	}
	logger.Warnw("failed to read upload", "error", err.Error())
	return errors.ErrBadRequest.WithCause(err)
}

// Ask handles POST /ask.
//
//	@Summary		提问
//	@Description	检索最相关的证据片段，生成答案并进行独立校验
//	@Tags			Evidence
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AskRequest	true	"问题"
//	@Success		200		{object}	response.Response{data=model.AskResult}
//	@Failure		400		{object}	response.Response
//	@Failure		409		{object}	response.Response
//	@Failure		502		{object}	response.Response
//	@Failure		503		{object}	response.Response
//	@Router			/v1/evidence/ask [post]
func (h *EvidenceHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrInvalidQuestion.WithMessage(fmt.Sprintf("Invalid request body: %v", err)), nil)
		return
	}

	lang := validator.LangFromAcceptLanguage(c.GetHeader("Accept-Language"))
	if verrs := validator.StructWithLang(&req, lang); verrs.HasErrors() {
		httputils.WriteResponse(c, errors.ErrInvalidQuestion.WithMessage(verrs.First()), nil)
		return
	}

	result, err := h.svc.Ask(c.Request.Context(), req.Question)
	httputils.WriteResponse(c, err, result)
}

// Clear handles POST /clear.
//
//	@Summary		清空语料库
//	@Tags			Evidence
//	@Produce		json
//	@Success		200	{object}	response.Response{data=model.ClearResult}
//	@Router			/v1/evidence/clear [post]
func (h *EvidenceHandler) Clear(c *gin.Context) {
	result, err := h.svc.Clear(c.Request.Context())
	httputils.WriteResponse(c, err, result)
}

// ListFiles handles GET /files.
//
//	@Summary	列出已索引文件
//	@Tags		Evidence
//	@Produce	json
//	@Success	200	{object}	response.Response{data=FilesResponse}
//	@Router		/v1/evidence/files [get]
func (h *EvidenceHandler) ListFiles(c *gin.Context) {
	files, err := h.svc.ListFiles(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	if files == nil {
		files = []string{}
	}
	httputils.WriteResponse(c, nil, FilesResponse{Files: files})
}

// Stats handles GET /stats.
//
//	@Summary	语料库统计
//	@Tags		Evidence
//	@Produce	json
//	@Success	200	{object}	response.Response{data=model.CorpusStats}
//	@Router		/v1/evidence/stats [get]
func (h *EvidenceHandler) Stats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	httputils.WriteResponse(c, err, stats)
}
