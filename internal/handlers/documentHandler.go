package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/ResearchAPI/internal/adapter"
	"github.com/akolanti/ResearchAPI/internal/adapter/utils"
	"github.com/akolanti/ResearchAPI/internal/api"
	"github.com/akolanti/ResearchAPI/internal/domain/commonModels"
	"github.com/akolanti/ResearchAPI/internal/domain/jobModel"
	"github.com/akolanti/ResearchAPI/internal/job"
	"github.com/akolanti/ResearchAPI/internal/rag/ingest"
)

const maxUploadSize = 32 << 20 //32mb

// CreateDocumentHandler godoc
// @Summary      Add a document
// @Description  Stores a text document for the caller and queues a job that chunks and embeds it.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      api.CreateDocumentRequest  true  "Document"
// @Success      202      {object}  api.InitJobResponse
// @Failure      400      {object}  api.JobResponse
// @Router       /documents [post]
func CreateDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	var req api.CreateDocumentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}
	docType := commonModels.DocType(req.Type)
	if docType == "" {
		docType = commonModels.KnowledgeBase
	}
	storeAndIndex(ctx, w, commonModels.Document{
		Title:    req.Title,
		Type:     docType,
		Source:   req.Source,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
}

// UploadDocumentHandler handles the uploading of PDF, DOCX or TXT documents.
// @Summary      Upload a document
// @Description  Receives a file via multipart/form-data, extracts its text and queues an indexing job.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        document_name  formData  string  true  "The display name of the document"
// @Param        document       formData  file    true  "The PDF, DOCX or TXT file to upload"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields, unsupported type or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /documents/upload [post]
func UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	log := logRH.Ctx(ctx)

	targetDir, errString := getTargetDirectory()
	if errString != "" {
		log.Error("Couldn't get target directory", "error", errString)
		WriteErrorResponse(w, http.StatusInternalServerError, "", errString)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	docName := r.FormValue("document_name")
	if docName == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "document_name is required")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not retrieve file")
		return
	}
	defer fileReader.Close()

	fileType := ingest.GetFileType(fileMetadata.Filename)
	if fileType == commonModels.ERR {
		WriteErrorResponse(w, http.StatusBadRequest, docName, ingest.ErrUnsupportedFile.Error())
		return
	}

	filename := fmt.Sprintf("%d-%s", time.Now().UnixNano(), filepath.Base(fileMetadata.Filename))
	tempFilePath := filepath.Join(targetDir, filename)
	if err = saveUpload(tempFilePath, fileReader); err != nil {
		log.Error("Could not store upload", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, docName, "Storage error")
		return
	}
	defer os.Remove(tempFilePath)

	text, err := ingest.ExtractFile(tempFilePath, fileType)
	if err != nil {
		log.Warn("Text extraction failed", "file", fileMetadata.Filename, "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, docName, "Could not read document text")
		return
	}

	storeAndIndex(ctx, w, commonModels.Document{
		Title:   docName,
		Type:    commonModels.Upload,
		Content: text,
		Metadata: map[string]any{
			"file_name": fileMetadata.Filename,
			"file_type": string(fileType),
			"file_size": fileMetadata.Size,
		},
	})
}

func saveUpload(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err = io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// UrlDocumentHandler godoc
// @Summary      Add a web page
// @Description  Fetches the URL, extracts the readable article text and queues an indexing job.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Param        request  body      api.UrlDocumentRequest  true  "Page URL"
// @Success      202      {object}  api.InitJobResponse
// @Failure      400      {object}  api.JobResponse
// @Failure      502      {object}  api.JobResponse "The page could not be fetched"
// @Router       /documents/url [post]
func UrlDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	var req api.UrlDocumentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", err.Error())
		return
	}

	page, err := ingest.FetchWebPage(ctx, services.HttpClient, req.Url)
	if err != nil {
		logRH.Ctx(ctx).Warn("Fetching page failed", "url", req.Url, "error", err)
		code := http.StatusBadGateway
		if errors.Is(err, ingest.ErrNotHTML) {
			code = http.StatusBadRequest
		}
		WriteErrorResponse(w, code, "", "Could not fetch page")
		return
	}

	title := req.Title
	if title == "" {
		title = page.Title
	}
	if title == "" {
		title = page.Url
	}
	storeAndIndex(ctx, w, commonModels.Document{
		Title:   title,
		Type:    commonModels.Web,
		Source:  page.Url,
		Content: page.Content,
	})
}

// storeAndIndex persists doc for the caller and queues its indexing job. Empty
// content is refused here so no embedding call is ever made for it.
func storeAndIndex(ctx context.Context, w http.ResponseWriter, doc commonModels.Document) {
	log := logRH.Ctx(ctx)
	if strings.TrimSpace(doc.Content) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", ingest.ErrEmptyDocument.Error())
		return
	}

	doc.Id = utils.GetNewUUID()
	doc.UserId = userIdFrom(ctx)
	doc.CreatedAt = time.Now().UTC()
	if err := services.Documents.CreateDocument(ctx, doc); err != nil {
		log.Error("Could not store document", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	indexJob := job.NewJob(ctx, jobModel.JobTypeIndex, jobModel.JobPayload{DocumentId: doc.Id})
	if err := CreateNewJob(ctx, indexJob, false); err != nil {
		log.Error("Could not queue indexing", "documentId", doc.Id, "error", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, doc.Id, "Could not queue job")
		return
	}
	log.Info("Document stored", "documentId", doc.Id, "type", doc.Type)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(indexJob))
}

// GetDocumentHandler godoc
// @Summary      Get a document
// @Description  Returns the document's metadata with its chunk and embedding counts.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := services.Documents.GetDocument(ctx, userIdFrom(ctx), id)
	if err != nil {
		WriteErrorResponse(w, statusFor(err), id, "Document not found")
		return
	}
	chunks, err := services.Documents.GetChunks(ctx, doc.Id)
	if err != nil {
		logRH.Ctx(ctx).Error("Loading chunks failed", "documentId", id, "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, id, "Storage error")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc, chunks))
}

// ReembedDocumentHandler godoc
// @Summary      Re-embed a document
// @Description  Queues a job that embeds the document's chunks that have no vector yet.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse
// @Failure      404  {object}  api.JobResponse
// @Router       /documents/{id}/reembed [post]
func ReembedDocumentHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !validateContext(ctx) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if _, err := services.Documents.GetDocument(ctx, userIdFrom(ctx), id); err != nil {
		WriteErrorResponse(w, statusFor(err), id, "Document not found")
		return
	}

	reembedJob := job.NewJob(ctx, jobModel.JobTypeReembed, jobModel.JobPayload{DocumentId: id})
	if err := CreateNewJob(ctx, reembedJob, false); err != nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, id, "Could not queue job")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(reembedJob))
}
