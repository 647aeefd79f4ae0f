package remotetest

import (
	"context"
	"net/http"
)

func withUser(r *http.Request, userID int64) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, userID)
}

func userFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(ctxKey{}).(int64)
	return id
}
