package handlers

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/zikenn26/CampusHub/internal/analytics"
	"github.com/zikenn26/CampusHub/internal/cache"
	"github.com/zikenn26/CampusHub/internal/config"
	"github.com/zikenn26/CampusHub/internal/domain/audit"
	"github.com/zikenn26/CampusHub/internal/domain/department"
	"github.com/zikenn26/CampusHub/internal/domain/material"
	"github.com/zikenn26/CampusHub/internal/domain/user"
	"github.com/zikenn26/CampusHub/internal/http/middlewares"
	"github.com/zikenn26/CampusHub/internal/utils"
)

type MaterialsStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateTx(ctx context.Context, tx pgx.Tx, m material.Material) error
	GetByID(ctx context.Context, id string) (material.Material, error)
	List(ctx context.Context, vis material.Visibility, f material.ListFilter) ([]material.Material, int, error)
	IncrementViews(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) error
	ToggleFavorite(ctx context.Context, userID, materialID string) (bool, int64, error)
	ListFavorites(ctx context.Context, userID string, vis material.Visibility, limit int) ([]material.Material, error)
}

type FileStore interface {
	Put(ctx context.Context, uploaderID, filename, contentType string, r io.Reader, size int64) (string, error)
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type SearchLogWriter interface {
	Insert(ctx context.Context, id, query string, userID *string) error
}

type MaterialsHandler struct {
	materials   MaterialsStore
	departments DepartmentReader
	audits      AuditAppender
	files       FileStore
	tracker     *analytics.Tracker
	searchLogs  SearchLogWriter
	listCache   *cache.Cache
}

func NewMaterialsHandler(materials MaterialsStore, departments DepartmentReader, audits AuditAppender, files FileStore, tracker *analytics.Tracker, searchLogs SearchLogWriter) *MaterialsHandler {
	return &MaterialsHandler{
		materials:   materials,
		departments: departments,
		audits:      audits,
		files:       files,
		tracker:     tracker,
		searchLogs:  searchLogs,
	}
}

// NewMaterialsHandlerWithCache additionally caches the anonymous
// approved-only listing. Per-user listings never go through the cache.
func NewMaterialsHandlerWithCache(materials MaterialsStore, departments DepartmentReader, audits AuditAppender, files FileStore, tracker *analytics.Tracker, searchLogs SearchLogWriter, listCache *cache.Cache) *MaterialsHandler {
	h := NewMaterialsHandler(materials, departments, audits, files, tracker, searchLogs)
	h.listCache = listCache

	return h
}

const presignedURLTTL = 15 * time.Minute

func (h *MaterialsHandler) Create(ctx *gin.Context) {
	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	var req material.CreateMaterialRequest
	var header *multipart.FileHeader

	if strings.HasPrefix(ctx.ContentType(), "multipart/form-data") {
		req, header, ok = h.parseUploadForm(ctx)

		if !ok {
			return
		}
	} else {
		if !BindJSON(ctx, &req) {
			return
		}

		// the JSON body is for link materials; files come via multipart
		if req.FileType != material.FileTypeLink {
			RespondBadRequest(ctx, "Send pdf and video materials as multipart/form-data", nil)
			return
		}

		if req.FileRef == "" {
			RespondBadRequest(ctx, "Link materials need a fileRef", gin.H{"field": "fileRef"})
			return
		}
	}

	req.UploaderID = actor.ID

	// uploads can be slow, give the storage write room
	cctx, cancel := config.WithTimeout(30 * time.Second)

	defer cancel()

	_, err := h.departments.GetByID(cctx, req.DepartmentID)

	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			RespondBadRequest(ctx, "Unknown department", gin.H{"departmentId": req.DepartmentID})
			return
		}

		RespondInternal(ctx, "Could not create material")
		return
	}

	m := material.NewFromCreateRequest(req)

	if header != nil {
		f, err := header.Open()

		if err != nil {
			RespondBadRequest(ctx, "Could not read uploaded file", nil)
			return
		}

		key, err := h.files.Put(cctx, actor.ID, header.Filename, header.Header.Get("Content-Type"), f, header.Size)

		f.Close()

		if err != nil {
			RespondInternal(ctx, "Could not store uploaded file")
			return
		}

		m.ObjectKey = key
	}

	tx, err := h.materials.BeginTx(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not create material")
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	err = h.materials.CreateTx(cctx, tx, m)

	if err != nil {
		RespondInternal(ctx, "Could not create material")
		return
	}

	entry := audit.New(actor.ID, audit.ActionMaterialUploaded, audit.TargetMaterial, m.ID, "")

	err = h.audits.AppendTx(cctx, tx, entry)

	if err != nil {
		RespondInternal(ctx, "Could not create material")
		return
	}

	err = tx.Commit(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not create material")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"material": m})
}

// parseUploadForm validates the multipart variant by hand; binding tags
// only run on JSON bodies.
func (h *MaterialsHandler) parseUploadForm(ctx *gin.Context) (material.CreateMaterialRequest, *multipart.FileHeader, bool) {
	req := material.CreateMaterialRequest{
		DepartmentID: ctx.PostForm("departmentId"),
		Title:        strings.TrimSpace(ctx.PostForm("title")),
		Description:  strings.TrimSpace(ctx.PostForm("description")),
		FileType:     material.FileType(ctx.PostForm("fileType")),
		SubjectTags:  ctx.PostFormArray("subjectTags"),
	}

	if !utils.IsUUID(req.DepartmentID) {
		RespondBadRequest(ctx, "Invalid department id", gin.H{"field": "departmentId"})
		return req, nil, false
	}

	if len(req.Title) < 3 || len(req.Title) > 200 {
		RespondBadRequest(ctx, "Title must be between 3 and 200 characters", gin.H{"field": "title"})
		return req, nil, false
	}

	if req.FileType != material.FileTypePDF && req.FileType != material.FileTypeVideo {
		RespondBadRequest(ctx, "Multipart uploads must be pdf or video", gin.H{"field": "fileType"})
		return req, nil, false
	}

	if raw := ctx.PostForm("semester"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 1 || n > 12 {
			RespondBadRequest(ctx, "Semester must be between 1 and 12", gin.H{"field": "semester"})
			return req, nil, false
		}

		req.Semester = n
	}

	if raw := ctx.PostForm("year"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil || n < 2000 || n > 2100 {
			RespondBadRequest(ctx, "Year must be between 2000 and 2100", gin.H{"field": "year"})
			return req, nil, false
		}

		req.Year = n
	}

	header, err := ctx.FormFile("file")

	if err != nil {
		RespondBadRequest(ctx, "Missing uploaded file", gin.H{"field": "file"})
		return req, nil, false
	}

	if header.Size == 0 {
		RespondBadRequest(ctx, "Uploaded file is empty", gin.H{"field": "file"})
		return req, nil, false
	}

	return req, header, true
}

func (h *MaterialsHandler) List(ctx *gin.Context) {
	limit, offset := utils.ParseLimitOffset(ctx.Query("limit"), ctx.Query("offset"), 20, 100)

	filter := material.ListFilter{Limit: limit, Offset: offset}

	if raw := ctx.Query("departmentId"); raw != "" {
		if !utils.IsUUID(raw) {
			RespondBadRequest(ctx, "Invalid department id", nil)
			return
		}

		filter.DepartmentID = &raw
	}

	if raw := ctx.Query("semester"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil {
			RespondBadRequest(ctx, "Invalid semester filter", nil)
			return
		}

		filter.Semester = &n
	}

	if raw := ctx.Query("year"); raw != "" {
		n, err := strconv.Atoi(raw)

		if err != nil {
			RespondBadRequest(ctx, "Invalid year filter", nil)
			return
		}

		filter.Year = &n
	}

	if raw := strings.TrimSpace(ctx.Query("tag")); raw != "" {
		filter.Tag = &raw
	}

	actor := currentUserPtr(ctx)
	vis := material.VisibilityFor(actor)

	// status filter exists for the moderator views; everyone else is
	// already pinned to approved ∪ own
	if raw := ctx.Query("status"); raw != "" && vis.All {
		status := material.ReviewStatus(raw)

		if !status.IsValid() {
			RespondBadRequest(ctx, "Unknown status filter", gin.H{"status": raw})
			return
		}

		filter.Status = &status
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	if raw := strings.TrimSpace(ctx.Query("q")); raw != "" {
		filter.Query = &raw

		// search analytics are best effort and never block the listing
		h.tracker.TrackSearch(ctx.Request.Context(), raw)

		var actorID *string

		if actor != nil {
			actorID = &actor.ID
		}

		_ = h.searchLogs.Insert(cctx, uuid.NewString(), raw, actorID)
	}

	var cacheKey string

	if actor == nil && h.listCache != nil {
		cacheKey = utils.BuildMaterialsListCacheKey(limit, offset, filter.DepartmentID, filter.Tag, filter.Query, filter.Semester, filter.Year)

		if cached, found := h.listCache.Get(cacheKey); found {
			RespondJSONWithETag(ctx, http.StatusOK, cached)
			return
		}
	}

	items, total, err := h.materials.List(cctx, vis, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list materials")
		return
	}

	payload := gin.H{
		"materials": items,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	}

	if cacheKey != "" {
		h.listCache.Set(cacheKey, payload)
	}

	RespondJSONWithETag(ctx, http.StatusOK, payload)
}

func (h *MaterialsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid material id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	m, err := h.materials.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, material.ErrNotFound) {
			RespondNotFound(ctx, "Material not found")
			return
		}

		RespondInternal(ctx, "Could not load material")
		return
	}

	vis := material.VisibilityFor(currentUserPtr(ctx))

	// out-of-scope records 404 rather than 403 so their existence
	// does not leak
	if !vis.Allows(m) {
		RespondNotFound(ctx, "Material not found")
		return
	}

	// counters are best effort
	_ = h.materials.IncrementViews(cctx, id)
	h.tracker.TrackMaterialView(ctx.Request.Context(), id)

	ctx.JSON(http.StatusOK, gin.H{"material": m})
}

func (h *MaterialsHandler) Download(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid material id", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	m, err := h.materials.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, material.ErrNotFound) {
			RespondNotFound(ctx, "Material not found")
			return
		}

		RespondInternal(ctx, "Could not load material")
		return
	}

	vis := material.VisibilityFor(currentUserPtr(ctx))

	if !vis.Allows(m) {
		RespondNotFound(ctx, "Material not found")
		return
	}

	_ = h.materials.IncrementDownloads(cctx, id)

	if m.FileType == material.FileTypeLink {
		ctx.Redirect(http.StatusFound, m.FileRef)
		return
	}

	if m.ObjectKey == "" {
		RespondNotFound(ctx, "Material has no stored file")
		return
	}

	url, err := h.files.PresignedGetURL(cctx, m.ObjectKey, presignedURLTTL)

	if err != nil {
		RespondInternal(ctx, "Could not generate download link")
		return
	}

	ctx.Redirect(http.StatusFound, url)
}

func (h *MaterialsHandler) ToggleFavorite(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondBadRequest(ctx, "Invalid material id", nil)
		return
	}

	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	m, err := h.materials.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, material.ErrNotFound) {
			RespondNotFound(ctx, "Material not found")
			return
		}

		RespondInternal(ctx, "Could not load material")
		return
	}

	if !material.VisibilityFor(&actor).Allows(m) {
		RespondNotFound(ctx, "Material not found")
		return
	}

	favorited, count, err := h.materials.ToggleFavorite(cctx, actor.ID, id)

	if err != nil {
		RespondInternal(ctx, "Could not update favorite")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"favorited":      favorited,
		"favoritesCount": count,
	})
}

// Library returns the caller's shelf: everything they favorited plus
// everything they uploaded, whatever its review state.
func (h *MaterialsHandler) Library(ctx *gin.Context) {
	actor, ok := middlewares.CurrentUser(ctx)

	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity")
		return
	}

	vis := material.VisibilityFor(&actor)

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	favorites, err := h.materials.ListFavorites(cctx, actor.ID, vis, 100)

	if err != nil {
		RespondInternal(ctx, "Could not load library")
		return
	}

	uploads, _, err := h.materials.List(cctx, vis, material.ListFilter{
		UploaderID: &actor.ID,
		Limit:      100,
	})

	if err != nil {
		RespondInternal(ctx, "Could not load library")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"favorites": favorites,
		"uploads":   uploads,
	})
}

func currentUserPtr(ctx *gin.Context) *user.User {
	u, ok := middlewares.CurrentUser(ctx)

	if !ok {
		return nil
	}

	return &u
}
