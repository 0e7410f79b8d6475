package requestdata

import (
	"context"

	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/internal/types"
)

type contextKey struct{}

var requestDataKey contextKey

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey)
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData carries the authenticated caller through the request context.
// Role is trusted as-is from the token (the core does not re-validate
// credentials).
type RequestData struct {
	TokenString string
	UserID      uuid.UUID
	Role        string
	User        *types.User
}

func (rd *RequestData) IsTeacher() bool {
	return rd != nil && rd.Role == types.RoleTeacher
}

func (rd *RequestData) IsStudent() bool {
	return rd != nil && rd.Role == types.RoleStudent
}
