package handlers

import (
	"net/http"
)

// baseURL reconstructs the external address of the service, used to
// build confirmation links in outgoing mail
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
