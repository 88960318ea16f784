package entry

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/daybook-app/core/internal/middleware"
	"github.com/daybook-app/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc        *Service
	stagingDir string
}

func NewHandler(svc *Service, stagingDir string) *Handler {
	return &Handler{svc: svc, stagingDir: stagingDir}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/entries", authMW)

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/search", h.search)
	g.POST("/staging", h.stageAttachment)
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateEntryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	e, err := h.svc.Create(c.Request.Context(), middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.Created(c, e)
}

// list serves plain listing plus the grouped and date-scoped views:
//
//	GET /entries                 all entries, newest first
//	GET /entries?date=…          one day
//	GET /entries?start=…&end=…   inclusive range
//	GET /entries?group=day|week|month
func (h *Handler) list(c *gin.Context) {
	ctx := c.Request.Context()
	ownerID := middleware.CurrentUserID(c)

	if group := c.Query("group"); group != "" {
		switch group {
		case "day":
			groups, err := h.svc.GroupByDay(ctx, ownerID)
			if err != nil {
				h.fail(c, err)
				return
			}
			response.OK(c, groups)
		case "week":
			groups, err := h.svc.GroupByWeek(ctx, ownerID)
			if err != nil {
				h.fail(c, err)
				return
			}
			response.OK(c, groups)
		case "month":
			groups, err := h.svc.GroupByMonth(ctx, ownerID)
			if err != nil {
				h.fail(c, err)
				return
			}
			response.OK(c, groups)
		default:
			response.BadRequest(c, "group must be day, week or month")
		}
		return
	}

	var (
		entries []*Entry
		err     error
	)
	switch {
	case c.Query("date") != "":
		entries, err = h.svc.ListByDate(ctx, ownerID, c.Query("date"))
	case c.Query("start") != "" && c.Query("end") != "":
		entries, err = h.svc.ListByDateRange(ctx, ownerID, c.Query("start"), c.Query("end"))
	default:
		entries, err = h.svc.List(ctx, ownerID)
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, entries)
}

func (h *Handler) search(c *gin.Context) {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		response.BadRequest(c, "q is required")
		return
	}

	entries, err := h.svc.Search(c.Request.Context(), middleware.CurrentUserID(c), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, entries)
}

func (h *Handler) get(c *gin.Context) {
	e, err := h.svc.GetByID(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if e == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, e)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateEntryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	e, err := h.svc.Update(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		h.fail(c, err)
		return
	}
	if e == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, e)
}

func (h *Handler) delete(c *gin.Context) {
	deleted, err := h.svc.Delete(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !deleted {
		response.NotFound(c)
		return
	}
	response.NoContent(c)
}

// stageAttachment receives a multipart file and parks it in the staging
// directory. The returned ref is what create/update expects in an
// attachment that still needs uploading.
func (h *Handler) stageAttachment(c *gin.Context) {
	if h.stagingDir == "" {
		response.UnprocessableEntity(c, "attachment staging is not configured")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer src.Close()

	if err := os.MkdirAll(h.stagingDir, 0o755); err != nil {
		response.InternalError(c, err)
		return
	}

	name := uuid.New().String() + filepath.Ext(fileHeader.Filename)
	dst, err := os.Create(filepath.Join(h.stagingDir, name))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		response.InternalError(c, err)
		return
	}

	response.Created(c, gin.H{
		"ref":  name,
		"name": fileHeader.Filename,
		"size": fileHeader.Size,
	})
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoOwner):
		response.Unauthorized(c)
	case strings.HasPrefix(err.Error(), "invalid date"):
		response.BadRequest(c, err.Error())
	default:
		response.InternalError(c, err)
	}
}
