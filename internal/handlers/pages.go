package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

func Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Index lists the registered routes grouped by their first path segment.
func Index(r *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		groups := map[string][]string{}
		for _, route := range r.Routes() {
			prefix := "/"
			if seg, _, _ := strings.Cut(strings.TrimPrefix(route.Path, "/"), "/"); seg != "" {
				prefix = "/" + seg
			}
			groups[prefix] = append(groups[prefix], route.Method+" "+route.Path)
		}
		for _, routes := range groups {
			sort.Strings(routes)
		}
		c.JSON(http.StatusOK, gin.H{"service": "accounts", "routes": groups})
	}
}
