package model

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/nlimpid/ironsql/dberr"
	"github.com/nlimpid/ironsql/naming"
)

type cacheKey struct {
	t reflect.Type
	s naming.Strategy
}

type pending struct {
	done chan struct{}
	d    *Descriptor
	err  error
}

var (
	descriptors sync.Map // cacheKey -> *Descriptor
	inflight    sync.Map // cacheKey -> *pending

	buildDescriptor = build
)

// Describe returns the Descriptor of t under naming strategy s. The result is
// cached; concurrent callers asking for the same key share one construction.
// Failures are not cached.
func Describe(t reflect.Type, s naming.Strategy) (*Descriptor, error) {
	key := cacheKey{t: t, s: s}
	if v, ok := descriptors.Load(key); ok {
		return v.(*Descriptor), nil
	}

	p := &pending{done: make(chan struct{})}
	if actual, loaded := inflight.LoadOrStore(key, p); loaded {
		other := actual.(*pending)
		<-other.done
		return other.d, other.err
	}

	// A builder may have finished between the Load and the LoadOrStore.
	if v, ok := descriptors.Load(key); ok {
		p.d = v.(*Descriptor)
	} else {
		p.d, p.err = buildRecover(t, s)
		if p.err == nil {
			descriptors.Store(key, p.d)
		}
	}
	inflight.Delete(key)
	close(p.done)
	return p.d, p.err
}

func buildRecover(t reflect.Type, s naming.Strategy) (d *Descriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			d, err = nil, &dberr.UnsupportedModelError{Type: t, Reason: fmt.Sprintf("describe panic: %v", r)}
		}
	}()
	return buildDescriptor(t, s)
}

// forget drops cached descriptors of t for every strategy.
func forget(t reflect.Type) {
	descriptors.Range(func(k, _ any) bool {
		if k.(cacheKey).t == t {
			descriptors.Delete(k)
		}
		return true
	})
}
