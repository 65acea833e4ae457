package tracking

import "context"

// Label describes the querykit statement behind the driver calls made under a context.
type Label struct {
	// ID correlates logs and spans of one statement.
	ID string
	// Context names the terminal that compiled the statement, such as "paginate".
	Context string
	Table   string
}

type labelKey struct{}

// WithLabel tags ctx with the statement about to run.
func WithLabel(ctx context.Context, l Label) context.Context {
	return context.WithValue(ctx, labelKey{}, l)
}

// LabelFrom returns the label stored by WithLabel.
func LabelFrom(ctx context.Context) (Label, bool) {
	if ctx == nil {
		return Label{}, false
	}
	l, ok := ctx.Value(labelKey{}).(Label)
	return l, ok
}

// StatementID returns the correlation id of the statement running under ctx.
func StatementID(ctx context.Context) (string, bool) {
	l, ok := LabelFrom(ctx)
	return l.ID, ok && l.ID != ""
}
