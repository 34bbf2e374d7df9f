package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/version"
)

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	ServiceName string `json:"service_name,omitempty"`
	GitVersion  string `json:"git_version"`
	GitCommit   string `json:"git_commit,omitempty"`
	BuildDate   string `json:"build_date,omitempty"`
	GoVersion   string `json:"go_version,omitempty"`
	Platform    string `json:"platform,omitempty"`
}

// VersionHandler serves build information from kart-io/version.
func VersionHandler(hideDetails bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		info := version.Get()
		resp := VersionResponse{GitVersion: info.GitVersion}
		if !hideDetails {
			resp.ServiceName = info.ServiceName
			resp.GitCommit = info.GitCommit
			resp.BuildDate = info.BuildDate
			resp.GoVersion = info.GoVersion
			resp.Platform = info.Platform
		}
		c.JSON(http.StatusOK, resp)
	}
}
