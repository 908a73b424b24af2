package report

// RenderFunc turns one component into a view element. ok=false drops it.
type RenderFunc[T any] func(Component) (view T, ok bool)

// Renderer dispatches components to per-type render functions. It is safe
// for concurrent Render calls once registration is done.
type Renderer[T any] struct {
	table map[ComponentType]RenderFunc[T]
}

func NewRenderer[T any]() *Renderer[T] {
	return &Renderer[T]{table: make(map[ComponentType]RenderFunc[T])}
}

// Register binds a render function to a discriminant, replacing any
// previous binding.
func (r *Renderer[T]) Register(t ComponentType, f RenderFunc[T]) *Renderer[T] {
	r.table[t] = f
	return r
}

// Handle registers a typed render function for component variant C.
func Handle[C Component, T any](r *Renderer[T], f func(C) T) {
	var zero C
	r.Register(zero.Type(), func(c Component) (T, bool) {
		typed, ok := c.(C)
		if !ok {
			var none T
			return none, false
		}
		return f(typed), true
	})
}

func (r *Renderer[T]) Handles(t ComponentType) bool {
	_, ok := r.table[t]
	return ok
}

// View is the rendered projection of a Spec. Metric cards are lifted into a
// leading row; Body keeps every other component in spec order. Mode tells
// the caller how to arrange Body and never reorders it.
type View[T any] struct {
	SpecID  string
	Title   string
	Mode    Layout
	Metrics []T
	Body    []T
	Dropped int
}

// Render projects spec without modifying it. Components whose type has no
// registered function, Unknown included, produce nothing and are counted in
// Dropped.
func (r *Renderer[T]) Render(spec Spec) View[T] {
	v := View[T]{SpecID: spec.ID, Title: spec.Title, Mode: spec.Layout}
	if v.Mode != LayoutStack {
		v.Mode = LayoutGrid
	}
	for _, c := range spec.Components {
		if c == nil {
			v.Dropped++
			continue
		}
		f, ok := r.table[c.Type()]
		if !ok {
			v.Dropped++
			continue
		}
		out, ok := f(c)
		if !ok {
			v.Dropped++
			continue
		}
		if c.Type() == TypeMetricCard {
			v.Metrics = append(v.Metrics, out)
		} else {
			v.Body = append(v.Body, out)
		}
	}
	return v
}
