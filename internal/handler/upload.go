package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/trajector/portal/internal/middleware"
	"github.com/trajector/portal/internal/model"
	"github.com/trajector/portal/internal/upload"
)

const maxUploadMemory = 32 << 20

// UploadHandler serves one staging widget. The client portal and the deep
// link each get their own handler and buffer.
type UploadHandler struct {
	BaseHandler
	buffer   *upload.Buffer
	spooler  *upload.Spooler
	basePath string
	deep     bool
	defaults model.Identity
}

type UploadView struct {
	BasePath string
	// Deep marks the unauthenticated view reached from a magic link.
	Deep     bool
	Defaults model.Identity
}

func NewUploadHandler(base BaseHandler, buf *upload.Buffer, sp *upload.Spooler, view UploadView) *UploadHandler {
	return &UploadHandler{
		BaseHandler: base,
		buffer:      buf,
		spooler:     sp,
		basePath:    view.BasePath,
		deep:        view.Deep,
		defaults:    view.Defaults,
	}
}

type uploadPageData struct {
	Files      []model.StagedFile
	Generation uint64
	Accept     string
	Identity   model.Identity
	Deep       bool
	basePath   string
	query      string
}

// Action returns the URL of a POST sub-route, keeping the deep-link query.
func (d uploadPageData) Action(sub string) string {
	u := d.basePath + "/" + sub
	if d.query != "" {
		u += "?" + d.query
	}
	return u
}

func (d uploadPageData) Remove(i int) string {
	return d.Action(fmt.Sprintf("files/%d/remove", i))
}

func (h *UploadHandler) identity(r *http.Request) model.Identity {
	return upload.ResolveIdentity(middleware.SessionFromContext(r.Context()), r.URL.Query(), h.defaults)
}

// back redirects to the widget page with the original query.
func (h *UploadHandler) back(w http.ResponseWriter, r *http.Request) {
	target := h.basePath
	if q := r.URL.RawQuery; q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *UploadHandler) Page(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "upload.html", "Upload documents", uploadPageData{
		Files:      h.buffer.Files(),
		Generation: h.buffer.Generation(),
		Accept:     h.buffer.AcceptHint(),
		Identity:   h.identity(r),
		Deep:       h.deep,
		basePath:   h.basePath,
		query:      pageQuery(r.URL.Query()),
	})
}

// AddFiles stages the files of one picker or drop event, in order.
func (h *UploadHandler) AddFiles(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			h.back(w, r)
			return
		}
		h.logError(r, err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files, err := h.spooler.FromForm(r.MultipartForm, "files")
	if err != nil {
		h.logError(r, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	rejected := h.buffer.AddFiles(files...)
	for _, f := range rejected {
		h.Notices.Notify(model.NotifyError, fmt.Sprintf("%s is not an accepted file type.", f.Name))
		if rm, ok := f.Handle.(model.DiskFile); ok {
			_ = rm.Remove()
		}
	}
	h.Logger.Debug("upload: staged", "added", len(files)-len(rejected), "staged", h.buffer.Len())
	h.back(w, r)
}

// RemoveFile drops one staged file by position. Bad positions are ignored.
func (h *UploadHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	if i, err := strconv.Atoi(chi.URLParam(r, "index")); err == nil {
		h.buffer.RemoveAt(i)
	}
	h.back(w, r)
}

// Submit drains the buffer and uploads it in the background. The page is
// redirected right away; the outcome arrives as a notification.
func (h *UploadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id := h.identity(r)
	p, err := h.buffer.Submit(context.WithoutCancel(r.Context()), id)
	switch {
	case errors.Is(err, upload.ErrEmptySubmission):
	case errors.Is(err, upload.ErrSubmitInFlight):
		h.Notices.Notify(model.NotifyInfo, "An upload is already in progress.")
	case err != nil:
		h.logError(r, err)
	default:
		h.Logger.Info("upload: submitted", "files", p.Count, "name", id.Name)
	}
	h.back(w, r)
}

// pageQuery keeps only the deep-link parameters.
func pageQuery(q url.Values) string {
	keep := url.Values{}
	for _, k := range []string{"name", "phone"} {
		if v := q.Get(k); v != "" {
			keep.Set(k, v)
		}
	}
	return keep.Encode()
}
