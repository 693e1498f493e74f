// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"net/http"

	requestutil "github.com/taibuivan/folio/internal/platform/request"
	"github.com/taibuivan/folio/internal/platform/respond"
)

type protectedResponse struct {
	Authenticated bool   `json:"authenticated"`
	Message       string `json:"message"`
}

/*
protected is the reference API route behind [middleware.RequireSession].

GET /api/admin/protected

Response:
  - 200: {authenticated: true, message: "This is a protected resource"}
  - 401: No valid session
  - 500: Session store failure
*/
func protected(writer http.ResponseWriter, request *http.Request) {
	if _, err := requestutil.RequiredIdentity(request); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, protectedResponse{Authenticated: true, Message: "This is a protected resource"})
}
