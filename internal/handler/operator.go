package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-console/internal/model"
)

type OperatorResolver interface {
	ResolveOperator(ctx context.Context, externalUserID, email string) (*model.Operator, error)
}

// Operator resolves the authenticated caller to its operator row.
func Operator(c *gin.Context, resolver OperatorResolver) (*model.Operator, error) {
	return resolver.ResolveOperator(c.Request.Context(),
		c.GetString(ContextExternalUserID),
		c.GetString(ContextEmail))
}
