package asset

import (
	"fmt"
	"strings"

	"github.com/prappser/gallery_server/internal/apperr"
	"github.com/prappser/gallery_server/internal/respond"
	"github.com/valyala/fasthttp"
)

const (
	headerFolderName   = "folder-name"
	headerOriginFolder = "origin-folder"
	headerFileName     = "file-name"
	headerAction       = "action"
	headerFolderType   = "folder-type"
	headerStudentName  = "student-name"
	headerPage         = "page"
	headerLimit        = "limit"
)

type Endpoints struct {
	manager *Manager
	listing *Listing
}

func NewEndpoints(manager *Manager, listing *Listing) *Endpoints {
	return &Endpoints{
		manager: manager,
		listing: listing,
	}
}

func (e *Endpoints) Upload(ctx *fasthttp.RequestCtx) {
	owner := Normalize(respond.Header(ctx, headerFolderName))
	if owner == "" {
		respond.Error(ctx, apperr.Invalid("folder name is required in headers"))
		return
	}

	contentType := string(ctx.Request.Header.ContentType())
	if !strings.HasPrefix(contentType, "multipart/form-data") {
		respond.Error(ctx, apperr.Invalid("Content-Type must be multipart/form-data"))
		return
	}

	form, err := ctx.MultipartForm()
	if err != nil {
		respond.Error(ctx, apperr.Invalid("failed to parse multipart form"))
		return
	}

	files := form.File["file"]
	if len(files) == 0 || files[0].Filename == "" {
		respond.Error(ctx, apperr.Invalid("no file uploaded or invalid file"))
		return
	}

	fileHeader := files[0]
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(ctx, apperr.IO(err, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	stored, err := e.manager.Upload(owner, fileHeader.Filename, file)
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	respond.Text(ctx, fasthttp.StatusOK, fmt.Sprintf("File uploaded successfully to folder: %s", stored.Owner))
}

func (e *Endpoints) Verification(ctx *fasthttp.RequestCtx) {
	moved, err := e.manager.Transition(
		respond.Header(ctx, headerOriginFolder),
		respond.Header(ctx, headerFolderName),
		respond.Header(ctx, headerFileName),
		respond.Header(ctx, headerAction),
	)
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	if moved.State == StateVerified {
		respond.Text(ctx, fasthttp.StatusOK, fmt.Sprintf("File successfully verified and moved to: %s/%s", moved.State, moved.Owner))
		return
	}
	respond.Text(ctx, fasthttp.StatusOK, "File successfully deleted")
}

func (e *Endpoints) Delete(ctx *fasthttp.RequestCtx) {
	err := e.manager.Purge(
		respond.Header(ctx, headerOriginFolder),
		respond.Header(ctx, headerFolderName),
		respond.Header(ctx, headerFileName),
	)
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	respond.Text(ctx, fasthttp.StatusOK, "File successfully deleted")
}

func (e *Endpoints) Count(ctx *fasthttp.RequestCtx) {
	counts, err := e.listing.Count(respond.Header(ctx, headerFolderType))
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	respond.JSON(ctx, fasthttp.StatusOK, counts)
}

func (e *Endpoints) List(ctx *fasthttp.RequestCtx) {
	page, pageSize := ParsePage(respond.Header(ctx, headerPage), respond.Header(ctx, headerLimit))

	images, err := e.listing.List(
		respond.Header(ctx, headerFolderType),
		respond.Header(ctx, headerStudentName),
		page,
		pageSize,
	)
	if err != nil {
		respond.Error(ctx, err)
		return
	}

	urls := make([]string, 0, len(images))
	for _, image := range images {
		urls = append(urls, image.URL())
	}
	respond.JSON(ctx, fasthttp.StatusOK, urls)
}
