package handler

import (
	"github.com/flipflop/backend/tests/testutil"
	"github.com/gin-gonic/gin"
)

var (
	asUser     = testutil.AsUser
	perform    = testutil.Perform
	decodeData = testutil.DecodeData
	errorCode  = testutil.ErrorCode
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	return r
}
