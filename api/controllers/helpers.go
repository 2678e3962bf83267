package controllers

import (
	"net/http"
	"strings"

	"github.com/freightdesk/freightdesk-backend/api/validators"
	"github.com/freightdesk/freightdesk-backend/pkg/pagination"
)

const maxCommentLen = 500

// trimmed drops blank optional strings and caps comment length.
func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := validators.SanitizeString(*v, maxCommentLen)
	if s == "" {
		return nil
	}
	return &s
}

func pageParams(r *http.Request) (int, string, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return 0, "", err
	}
	return limit, strings.TrimSpace(r.URL.Query().Get("cursor")), nil
}
