package app

import (
	"context"
	"strconv"
	"time"

	"github.com/daybook-app/core/internal/middleware"
	"github.com/daybook-app/core/internal/modules/entry"
	"github.com/daybook-app/core/internal/modules/summary"
	"github.com/daybook-app/core/internal/modules/user"
	"github.com/daybook-app/core/internal/pkg/response"
	"github.com/daybook-app/core/internal/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

var processStart = time.Now()

func (a *App) registerRoutes() {
	r := a.router
	authMW := middleware.Auth()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	api := r.Group("/api/v1")

	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":   "daybook-core",
			"env":    a.cfg.Env,
			"uptime": time.Since(processStart).Truncate(time.Second).String(),
		})
	})

	user.NewHandler(a.users).RegisterRoutes(api, authMW)
	entry.NewHandler(a.entries, a.cfg.StagingDir).RegisterRoutes(api, authMW)
	summary.NewHandler(a.summaries).RegisterRoutes(api, authMW)

	a.registerMaintenanceRoutes(api, authMW)
}

// Maintenance endpoints expose the background machinery: the Redis task list
// and the cron schedule.
func (a *App) registerMaintenanceRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/maintenance", authMW)

	g.GET("/tasks", func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}

		var taskType *string
		if v := c.Query("type"); v != "" {
			taskType = &v
		}
		var status *taskqueue.TaskStatus
		if v := c.Query("status"); v != "" {
			s := taskqueue.TaskStatus(v)
			status = &s
		}

		tasks, total, err := a.tasks.List(c.Request.Context(), page, size, taskType, status)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"data": tasks, "total": total, "page": page, "size": size})
	})

	g.GET("/tasks/:id", func(c *gin.Context) {
		task, err := a.tasks.GetByID(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.InternalError(c, err)
			return
		}
		if task == nil {
			response.NotFound(c)
			return
		}
		response.OK(c, task)
	})

	g.GET("/cron", func(c *gin.Context) {
		response.OK(c, a.sched.List())
	})

	g.POST("/cron/:name/run", func(c *gin.Context) {
		// The job outlives the request, so it runs on a background context.
		if err := a.sched.Run(context.Background(), c.Param("name")); err != nil {
			response.NotFoundMsg(c, err.Error())
			return
		}
		response.OK(c, gin.H{"triggered": c.Param("name")})
	})
}
