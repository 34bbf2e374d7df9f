package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// Evidence service errors (service code 21).
var (
	ErrInvalidQuestion = Register(New(
		MakeCode(ServiceEvidence, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument,
		"Question must not be empty", "问题不能为空",
	))

	ErrNoExtractableText = Register(New(
		MakeCode(ServiceEvidence, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument,
		"No extractable text found", "未找到可提取的文本",
	))

	ErrUnsupportedFile = Register(New(
		MakeCode(ServiceEvidence, CategoryRequest, 3),
		http.StatusBadRequest, codes.InvalidArgument,
		"Unsupported file type", "不支持的文件类型",
	))

	ErrUploadTooLarge = Register(New(
		MakeCode(ServiceEvidence, CategoryRequest, 4),
		http.StatusRequestEntityTooLarge, codes.ResourceExhausted,
		"Uploaded file exceeds the size limit", "上传文件超出大小限制",
	))

	ErrNoFiles = Register(New(
		MakeCode(ServiceEvidence, CategoryRequest, 5),
		http.StatusBadRequest, codes.InvalidArgument,
		"No files uploaded", "未上传文件",
	))

	ErrEmptyCorpus = Register(New(
		MakeCode(ServiceEvidence, CategoryConflict, 1),
		http.StatusConflict, codes.FailedPrecondition,
		"No documents uploaded yet", "尚未上传文档",
	))

	ErrCorpusCleared = Register(New(
		MakeCode(ServiceEvidence, CategoryConflict, 2),
		http.StatusConflict, codes.Aborted,
		"Corpus was cleared while the upload was in progress", "上传过程中语料库已被清空",
	))

	ErrModelNotConfigured = Register(New(
		MakeCode(ServiceEvidence, CategoryConfig, 1),
		http.StatusInternalServerError, codes.FailedPrecondition,
		"Language model credentials are not configured", "语言模型凭证未配置",
	))

	ErrEmbeddingUnavailable = Register(New(
		MakeCode(ServiceEvidence, CategoryNetwork, 1),
		http.StatusServiceUnavailable, codes.Unavailable,
		"Embedding backend unavailable", "向量化服务不可用",
	))

	ErrGenerationFailed = Register(New(
		MakeCode(ServiceEvidence, CategoryNetwork, 2),
		http.StatusBadGateway, codes.Unavailable,
		"Answer generation failed", "答案生成失败",
	))
)
