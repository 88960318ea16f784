package summary

import (
	"time"

	"github.com/daybook-app/core/internal/middleware"
	"github.com/daybook-app/core/internal/modules/entry"
	"github.com/daybook-app/core/internal/pkg/response"
	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/summaries", authMW)

	g.GET("/day/:date/title", h.dayTitle)
	g.GET("/day/:date", h.day)
	g.POST("/day/:date/analyze", h.analyzeDay)
	g.GET("/week/:date", h.week)
	g.GET("/month/:month", h.month)
	g.GET("/range", h.analyzeRange)
}

// dayTitle is the cheap endpoint timeline views poll; it may return a stale
// title while a rebuild runs.
func (h *Handler) dayTitle(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	title, err := h.svc.GetTitle(c.Request.Context(), middleware.CurrentUserID(c), date)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"date": date, "title": title})
}

func (h *Handler) day(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	sum, err := h.svc.GetCached(c.Request.Context(), middleware.CurrentUserID(c), date)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if sum == nil {
		response.NotFoundMsg(c, "no summary for this day")
		return
	}
	response.OK(c, sum)
}

func (h *Handler) analyzeDay(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	sum, err := h.svc.Analyze(c.Request.Context(), middleware.CurrentUserID(c), date)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if sum == nil {
		response.NotFoundMsg(c, "no entries for this day")
		return
	}
	response.OK(c, sum)
}

// week analyzes the Monday-started week containing :date.
func (h *Handler) week(c *gin.Context) {
	date := c.Param("date")
	if !validDate(date) {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	start := entry.WeekStart(date)
	end := addDays(start, 6)
	h.serveRange(c, "week", start, end)
}

// month analyzes one calendar month, :month formatted YYYY-MM.
func (h *Handler) month(c *gin.Context) {
	month := c.Param("month")
	t, err := time.Parse("2006-01", month)
	if err != nil {
		response.BadRequest(c, "month must be YYYY-MM")
		return
	}

	start := t.Format("2006-01-02")
	end := t.AddDate(0, 1, -1).Format("2006-01-02")
	h.serveRange(c, "month", start, end)
}

func (h *Handler) analyzeRange(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if !validDate(start) || !validDate(end) || end < start {
		response.BadRequest(c, "start and end must be YYYY-MM-DD with start <= end")
		return
	}
	h.serveRange(c, "range", start, end)
}

func (h *Handler) serveRange(c *gin.Context, periodType, start, end string) {
	analysis, err := h.svc.AnalyzeRange(c.Request.Context(), middleware.CurrentUserID(c), periodType, start, end)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if analysis == nil {
		response.NotFoundMsg(c, "no entries in this period")
		return
	}
	response.OK(c, analysis)
}

func validDate(date string) bool {
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func addDays(date string, n int) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, n).Format("2006-01-02")
}
