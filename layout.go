package blobarena

import (
	"fmt"
	"reflect"
	"sync"
)

// layout describes whether a Go type may be stored in a blob.
// An empty reason means the type is accepted.
type layout struct {
	valueReason string // why the type cannot be stored at all
	keyReason   string // why the type cannot be hashed by its raw bytes
}

var layouts sync.Map // reflect.Type -> layout

func layoutOf(t reflect.Type) layout {
	if l, ok := layouts.Load(t); ok {
		return l.(layout)
	}
	l := inspect(t)
	layouts.Store(t, l)
	return l
}

func inspect(t reflect.Type) layout {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return layout{}
	case reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return layout{keyReason: "floating point values do not compare bytewise"}
	case reflect.Array:
		return inspect(t.Elem())
	case reflect.Struct:
		var l layout
		var sum uintptr
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			fl := inspect(f.Type)
			if l.valueReason == "" && fl.valueReason != "" {
				l.valueReason = fmt.Sprintf("field %s: %s", f.Name, fl.valueReason)
			}
			if l.keyReason == "" && fl.keyReason != "" {
				l.keyReason = fmt.Sprintf("field %s: %s", f.Name, fl.keyReason)
			}
			sum += f.Type.Size()
		}
		if l.keyReason == "" && sum != t.Size() {
			l.keyReason = "struct contains padding bytes"
		}
		return l
	default:
		reason := fmt.Sprintf("%s values hold Go pointers", t.Kind())
		return layout{valueReason: reason, keyReason: reason}
	}
}

// checkValue reports whether T can be stored in a blob.
func checkValue[T any]() error {
	t := reflect.TypeFor[T]()
	if r := layoutOf(t).valueReason; r != "" {
		return &UnsupportedTypeError{Type: t.String(), Reason: r}
	}
	return nil
}

// checkKey reports whether T can be stored in a blob and used as a hash key.
func checkKey[T any]() error {
	t := reflect.TypeFor[T]()
	l := layoutOf(t)
	if l.valueReason != "" {
		return &UnsupportedTypeError{Type: t.String(), Reason: l.valueReason}
	}
	if l.keyReason != "" {
		return &UnsupportedTypeError{Type: t.String(), Reason: l.keyReason}
	}
	return nil
}
