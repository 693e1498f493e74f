// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// Identity is the authenticated principal behind a verified session.
type Identity struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
}
