package server

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jnnngs/5250Web/internal/aid"
	"github.com/jnnngs/5250Web/internal/controller"
	"github.com/jnnngs/5250Web/internal/host"
	"github.com/jnnngs/5250Web/internal/paging"
	"github.com/jnnngs/5250Web/internal/render"
	"github.com/jnnngs/5250Web/internal/session"
)

const htmlContentType = "text/html; charset=utf-8"

// recordsRequest is a getRecords call as bound from the request body.
type recordsRequest struct {
	Action          string `json:"action" binding:"required,eq=getRecords"`
	RecordName      string `json:"recordName" binding:"required"`
	RequestorAidKey string `json:"requestorAidKey"`
	From            int    `json:"from" binding:"gte=0"`
	To              int    `json:"to" binding:"gtefield=From"`
	WantDropped     bool   `json:"wantDropped"`
}

func screenURL(handle string) string {
	return "/screen?" + paging.JobHandleParam + "=" + url.QueryEscape(handle)
}

func (app *App) job(handle string) (*session.Job, bool) {
	if handle == "" {
		return nil, false
	}
	j, ok := app.Jobs.GetJob(handle)
	if !ok || j.Closed() {
		return nil, false
	}
	return j, true
}

// windowSize is the number of records one window shows. Dropped records use
// one line each, so more of them fit.
func (app *App) windowSize(f host.Format, folded bool) int {
	size := app.Config.Subfile.PageSize
	if lines := f.Lines(); lines > 1 && !folded {
		size *= lines
	}
	return size
}

func (app *App) page(j *session.Job) render.Page {
	view := j.View()
	f := j.Host.Format()
	size := app.windowSize(f, view.Folded)
	return render.Page{
		Action:         "/submit",
		RecordsURL:     "/records?" + paging.JobHandleParam + "=" + url.QueryEscape(j.Handle),
		StyleURL:       "/static/style.css",
		JobHandle:      j.Handle,
		Message:        view.Message,
		Format:         f,
		Records:        j.Host.Records(view.Top, view.Top+size),
		Total:          j.Host.Len(),
		Top:            view.Top,
		PageSize:       app.Config.Subfile.PageSize,
		FoldKey:        string(app.foldKey),
		AllowsAjax:     app.Config.Subfile.AllowsAjax == nil || *app.Config.Subfile.AllowsAjax,
		ShowSubfileEnd: app.Config.Subfile.ShowSubfileEnd,
		Keys:           app.keys,
		Rows:           render.Rows{Kind: app.rowKind, Folded: view.Folded, Pad: size},
	}
}

// HomeHandler starts a job and sends the browser to its screen.
func (app *App) HomeHandler(c *gin.Context) {
	j := app.Jobs.CreateJob(app.base.Clone(), session.View{Folded: app.Config.Subfile.Folded})
	log.Printf("5250Web: job %s started", j.Handle)
	c.Redirect(http.StatusFound, screenURL(j.Handle))
}

// ScreenHandler renders the job's current page.
func (app *App) ScreenHandler(c *gin.Context) {
	j, ok := app.job(c.Query(paging.JobHandleParam))
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	markup, err := app.Renderer.RenderPage(app.page(j))
	if err != nil {
		app.renderError(c, http.StatusInternalServerError, fmt.Sprintf("Render failed: %v", err))
		return
	}
	c.Data(http.StatusOK, htmlContentType, []byte(markup))
}

// RecordsHandler answers getRecords with a window of rendered rows.
func (app *App) RecordsHandler(c *gin.Context) {
	j, ok := app.job(c.Query(paging.JobHandleParam))
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "job not found"})
		return
	}
	var req recordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f := j.Host.Format()
	if req.RecordName != f.Control {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown subfile %q", req.RecordName)})
		return
	}

	folded := !req.WantDropped
	to := req.To
	if size := app.windowSize(f, folded); to-req.From > size {
		to = req.From + size
	}
	records := j.Host.Records(req.From, to)
	env := paging.Envelope{
		RecordCount: len(records),
		IsLastPage:  req.From+len(records) >= j.Host.Len(),
		Request: paging.EchoRequest{
			RecordName:      req.RecordName,
			From:            req.From,
			To:              to,
			RequestorAidKey: req.RequestorAidKey,
			Mode:            "ajax",
			WantDropped:     req.WantDropped,
		},
	}
	if len(records) > 0 {
		env.HTML = app.Renderer.RenderRows(f, records, render.Rows{Kind: app.rowKind, Folded: folded})
		view := j.View()
		view.Top = req.From
		view.Folded = folded
		view.Message = ""
		j.SetView(view)
	}
	c.JSON(http.StatusOK, env)
}

// SubmitHandler applies a posted form and acts on its AID key.
func (app *App) SubmitHandler(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		app.renderError(c, http.StatusBadRequest, fmt.Sprintf("Submit failed: %v", err))
		return
	}
	form := c.Request.PostForm
	j, ok := app.job(form.Get(controller.FieldJobHandle))
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}

	f := j.Host.Format()
	view := j.View()
	view.Message = ""
	window := host.ParseWindow(form.Get(controller.FieldWindowPrefix + f.Control))
	if _, err := j.Host.Apply(form, window); err != nil {
		log.Printf("Warning: job %s: %v", j.Handle, err)
		view.Message = err.Error()
	}
	if top, err := strconv.Atoi(strings.TrimSpace(form.Get(controller.FieldTopRRN))); err == nil && top >= 0 {
		view.Top = top
	}

	key := aid.Normalize(form.Get(controller.FieldAidKey))
	switch {
	case !app.keys.Enabled(key):
		view.Message = fmt.Sprintf("Function key %s not allowed.", key)
	case key == keyExit:
		app.Jobs.EndJob(j.Handle)
		log.Printf("5250Web: job %s ended by user", j.Handle)
		app.renderEnded(c)
		return
	case key == aid.PgUp || key == aid.PgDn || key == app.foldKey:
		view = app.roll(j, key, view)
	case key == aid.Enter:
		if msgs := j.Host.ProcessOptions(); len(msgs) > 0 {
			view.Message = strings.Join(msgs, " ")
		}
	}
	view.Top = clampTop(view.Top, j.Host.Len(), app.windowSize(f, view.Folded))
	j.SetView(view)
	c.Redirect(http.StatusSeeOther, screenURL(j.Handle))
}

// roll moves the window for a roll or fold key posted without in-place paging.
// Rolls step by the page size whatever the fold state.
func (app *App) roll(j *session.Job, key aid.Key, view session.View) session.View {
	step := app.Config.Subfile.PageSize
	switch key {
	case aid.PgDn:
		if view.Top+step >= j.Host.Len() {
			view.Message = "Already at the last record."
			return view
		}
		view.Top += step
	case aid.PgUp:
		if view.Top == 0 {
			view.Message = "Already at the first record."
			return view
		}
		view.Top = max(0, view.Top-step)
	default:
		view.Folded = !view.Folded
	}
	return view
}

func clampTop(top, total, size int) int {
	if total == 0 {
		return 0
	}
	if top < total {
		return max(0, top)
	}
	return max(0, total-size)
}

func (app *App) renderError(c *gin.Context, status int, message string) {
	body := fmt.Sprintf(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Error</title></head>`+
		`<body><p class="dds-message">%s</p><p><a href="/">Start a new job</a></p></body></html>`, html.EscapeString(message))
	c.Data(status, htmlContentType, []byte(body))
}

func (app *App) renderEnded(c *gin.Context) {
	c.Data(http.StatusOK, htmlContentType, []byte(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>Job ended</title></head>`+
		`<body><p class="dds-message">Job ended.</p><p><a href="/">Start a new job</a></p></body></html>`))
}
