package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps request body size before any handler reads it. JSON
// bodies get the small jsonMax cap; multipart bodies carry material files
// (PDFs, videos) and get the larger uploadMax cap instead.
//
// http.MaxBytesReader makes the oversized read fail inside the handler's
// bind call, which surfaces as a 400 rather than an abort here.
func MaxBodyBytes(jsonMax, uploadMax int64) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		limit := jsonMax

		ct := ctx.GetHeader("Content-Type")
		if strings.HasPrefix(ct, "multipart/") {
			limit = uploadMax
		}

		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, limit)

		ctx.Next()
	}
}
