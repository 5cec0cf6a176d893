package asset

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newTestEndpoints(t *testing.T) (*Endpoints, *Store) {
	t.Helper()
	manager, store, _ := newTestManager(t)
	return NewEndpoints(manager, NewListing(store)), store
}

func multipartUpload(t *testing.T, ctx *fasthttp.RequestCtx, filename string, content []byte) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	ctx.Request.Header.SetMethod(fasthttp.MethodPost)
	ctx.Request.Header.SetContentType(writer.FormDataContentType())
	ctx.Request.SetBody(body.Bytes())
}

func TestEndpoints_Upload_ShouldStoreMultipartFile(t *testing.T) {
	// given
	endpoints, store := newTestEndpoints(t)
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("Folder-Name", "Alice Smith")
	multipartUpload(t, ctx, "Photo One.PNG", []byte("png"))

	// when
	endpoints.Upload(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), "alice_smith")
	assert.FileExists(t, store.Path(Asset{State: StateUploaded, Owner: "alice_smith", Filename: "photo_one.png"}))
}

func TestEndpoints_Upload_ShouldRequireFolderName(t *testing.T) {
	// given
	endpoints, _ := newTestEndpoints(t)
	ctx := &fasthttp.RequestCtx{}
	multipartUpload(t, ctx, "a.png", []byte("png"))

	// when
	endpoints.Upload(ctx)

	// then
	assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode())
}

func TestEndpoints_Verification_ShouldMapErrorsToStatus(t *testing.T) {
	// given
	endpoints, store := newTestEndpoints(t)
	writeAsset(t, store, Asset{State: StateVerified, Owner: "alice", Filename: "a.png"}, "x")

	cases := []struct {
		origin, action, file string
		status               int
	}{
		{"verified", "verify", "a.png", fasthttp.StatusBadRequest},
		{"uploaded", "verify", "a.png", fasthttp.StatusNotFound},
		{"verified", "delete", "a.png", fasthttp.StatusOK},
		{"deleted", "delete", "a.png", fasthttp.StatusBadRequest},
		{"deleted", "verify", "a.png", fasthttp.StatusOK},
	}

	for _, tc := range cases {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.Set("origin-folder", tc.origin)
		ctx.Request.Header.Set("action", tc.action)
		ctx.Request.Header.Set("folder-name", "alice")
		ctx.Request.Header.Set("file-name", tc.file)

		// when
		endpoints.Verification(ctx)

		// then
		assert.Equal(t, tc.status, ctx.Response.StatusCode(), "%s/%s: %s", tc.origin, tc.action, ctx.Response.Body())
	}
	assert.FileExists(t, store.Path(Asset{State: StateVerified, Owner: "alice", Filename: "a.png"}))
}

func TestEndpoints_Delete_ShouldPurge(t *testing.T) {
	// given
	endpoints, store := newTestEndpoints(t)
	target := Asset{State: StateUploaded, Owner: "alice", Filename: "a.png"}
	writeAsset(t, store, target, "x")
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("origin-folder", "uploaded")
	ctx.Request.Header.Set("folder-name", "alice")
	ctx.Request.Header.Set("file-name", "A.png")

	// when
	endpoints.Delete(ctx)

	// then
	assert.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.NoFileExists(t, store.Path(target))
}

func TestEndpoints_Count_ShouldReturnJSON(t *testing.T) {
	// given
	endpoints, store := newTestEndpoints(t)
	writeAsset(t, store, Asset{State: StateUploaded, Owner: "alice", Filename: "a.png"}, "x")
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("folder-type", "uploaded")

	// when
	endpoints.Count(ctx)

	// then
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var counts map[string]int
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &counts))
	assert.Equal(t, map[string]int{"alice": 1, "all": 1}, counts)
}

func TestEndpoints_List_ShouldUseDefaultPaging(t *testing.T) {
	// given
	endpoints, store := newTestEndpoints(t)
	for _, name := range []string{"1.png", "2.png", "3.png", "4.png", "5.png", "6.png"} {
		writeAsset(t, store, Asset{State: StateVerified, Owner: "bob", Filename: name}, "x")
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.Set("folder-type", "verified")
	ctx.Request.Header.Set("student-name", "all")
	ctx.Request.Header.Set("page", "not-a-number")

	// when
	endpoints.List(ctx)

	// then
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	var urls []string
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &urls))
	assert.Len(t, urls, 5)
	assert.Equal(t, "/images/verified/bob/1.png", urls[0])
}
