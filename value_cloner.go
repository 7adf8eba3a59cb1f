package expiringmap

// ValueCloner copies values crossing the boundary of a Map.
// Put stores a copy of its argument, and Get and Snapshot hand out copies, so
// a caller mutating a value never changes what the map holds.
type ValueCloner[V ValueConstraint] interface {
	CloneValue(V) V
}

// ValueClonerFunc adapts a function to ValueCloner.
type ValueClonerFunc[V ValueConstraint] func(v V) V

// CloneValue calls the function.
func (f ValueClonerFunc[V]) CloneValue(v V) V {
	return f(v)
}

// NopValueCloner hands values over as they are.
// Suitable for immutable values and for values owned by the map alone.
type NopValueCloner[V ValueConstraint] struct{}

// CloneValue returns v.
func (NopValueCloner[V]) CloneValue(v V) V {
	return v
}

// DefaultValueCloner picks the cloner a Map uses when WithCloner is not given.
// A V with a Clone() V or DeepCopy() V method is copied through it; any other
// V gets NopValueCloner, which is exact for scalars and strings but leaves
// pointers, maps and slices shared between the map and its callers.
func DefaultValueCloner[V ValueConstraint]() ValueCloner[V] {
	type cloner interface {
		Clone() V
	}
	type deepCopier interface {
		DeepCopy() V
	}

	var zero V
	switch any(zero).(type) {
	case cloner:
		return ValueClonerFunc[V](func(v V) V {
			return any(v).(cloner).Clone()
		})

	case deepCopier:
		return ValueClonerFunc[V](func(v V) V {
			return any(v).(deepCopier).DeepCopy()
		})

	default:
		return NopValueCloner[V]{}
	}
}
