package handler

import (
	"context"
	"net/http"

	"github.com/trajector/portal/internal/guard"
	"github.com/trajector/portal/internal/model"
)

type folderLister interface {
	Folders(ctx context.Context) (*model.FolderResponse, error)
}

type clientPageData struct {
	Counts model.StatusCounts
	Rows   []model.DocumentRow
}

type errorPageData struct {
	Message string
	Retry   string
}

// ClientHandler serves the client portal overview.
type ClientHandler struct {
	BaseHandler
	folders folderLister
}

func NewClientHandler(base BaseHandler, folders folderLister) *ClientHandler {
	return &ClientHandler{BaseHandler: base, folders: folders}
}

// Portal shows document counts and the document table. A failed listing
// replaces the whole view with an error page.
func (h *ClientHandler) Portal(w http.ResponseWriter, r *http.Request) {
	resp, err := h.folders.Folders(r.Context())
	if err != nil {
		h.Logger.Error("client: list folders", "err", err)
		h.render(w, r, http.StatusBadGateway, "error.html", "Error", errorPageData{
			Message: "Failed to fetch folders",
			Retry:   guard.ClientPath,
		})
		return
	}

	h.render(w, r, http.StatusOK, "client.html", "Your documents", clientPageData{
		Counts: resp.Counts(),
		Rows:   resp.Rows(),
	})
}
