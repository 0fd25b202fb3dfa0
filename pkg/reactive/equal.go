package reactive

import "reflect"

// Same reports whether b is unchanged relative to a.
//
// Reference-typed values (pointers, maps, slices, funcs, channels, unsafe pointers) are
// compared by identity: a new value is a change iff it is not the same instance. Scalars
// and comparable composites compare by equality. Composites that cannot be compared with
// == fall back to deep equality.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}

	if va.Type().Comparable() {
		return safeEqual(a, b)
	}
	return reflect.DeepEqual(a, b)
}

// safeEqual compares with == but treats a runtime panic (an interface field holding a
// non-comparable value) as "not equal".
func safeEqual(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()
	return a == b
}
