package inventory

import "context"

type operatorKey struct{}

// WithOperator attaches the acting operator (user or tenant identity) to ctx.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operator)
}

// OperatorFrom returns the operator stored in ctx, or "anonymous".
func OperatorFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operatorKey{}).(string); ok && op != "" {
		return op
	}

	return "anonymous"
}
