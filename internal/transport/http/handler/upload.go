package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"adaayien/internal/apperr"
	"adaayien/internal/core/config"
	"adaayien/internal/core/storage"
	"adaayien/internal/service"
)

const imagesField = "images"

// imageInput 收集 multipart "images" 文件和旧版 URL 字段；调用方负责执行返回的 done
func imageInput(c *gin.Context, up config.Upload, urls ...string) (service.ImageInput, func(), error) {
	var in service.ImageInput
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			in.URLs = append(in.URLs, u)
		}
	}
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return in, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, noop, apperr.BadRequest("request body too large")
		}
		return in, noop, apperr.BadRequest("invalid multipart form")
	}

	headers := form.File[imagesField]
	if up.MaxFiles > 0 && len(headers) > up.MaxFiles {
		return in, noop, apperr.Validation(map[string]string{
			imagesField: fmt.Sprintf("at most %d files per request", up.MaxFiles),
		})
	}
	for _, fh := range headers {
		if max := up.MaxFileBytes(); max > 0 && fh.Size > max {
			return in, noop, apperr.Validation(map[string]string{
				imagesField: fmt.Sprintf("%s exceeds %d MB", fh.Filename, up.MaxFileMB),
			})
		}
	}

	opened := make([]multipart.File, 0, len(headers))
	done := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			done()
			return in, noop, apperr.BadRequest("read uploaded file failed")
		}
		opened = append(opened, f)
		in.Files = append(in.Files, storage.File{Name: fh.Filename, Body: f})
	}
	return in, done, nil
}
