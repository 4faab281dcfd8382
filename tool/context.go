package tool

import "context"

type activeCollectionKey struct{}

// WithActiveCollection marks the document collection the current conversation
// is focused on, so document search can default to it when the model omits a
// collection argument.
func WithActiveCollection(ctx context.Context, collection string) context.Context {
	return context.WithValue(ctx, activeCollectionKey{}, collection)
}

func activeCollectionFrom(ctx context.Context) string {
	collection, _ := ctx.Value(activeCollectionKey{}).(string)
	return collection
}
