package engine

import (
	"fmt"

	gingonic "github.com/gin-gonic/gin"
	"github.com/gorilla/mux"

	ginrouter "github.com/nimburion/serverconf/pkg/server/router/gin"
	gorillarouter "github.com/nimburion/serverconf/pkg/server/router/gorilla"
	"github.com/nimburion/serverconf/pkg/server/router/nethttp"
)

// NetHTTPFactory configures the stdlib pattern-router engine.
type NetHTTPFactory struct {
	factoryState
	router *nethttp.Router
}

// NewNetHTTPFactory creates a factory around a fresh net/http router.
func NewNetHTTPFactory() *NetHTTPFactory {
	r := nethttp.NewRouter()
	return &NetHTTPFactory{factoryState: newFactoryState(TypeNetHTTP, r), router: r}
}

// Router exposes the underlying adapter.
func (f *NetHTTPFactory) Router() *nethttp.Router { return f.router }

// GinFactory configures the gin engine.
type GinFactory struct {
	factoryState
	router *ginrouter.Router
}

// NewGinFactory creates a factory around a fresh gin router.
func NewGinFactory() *GinFactory {
	r := ginrouter.NewRouter()
	return &GinFactory{factoryState: newFactoryState(TypeGin, r), router: r}
}

// Router exposes the underlying adapter.
func (f *GinFactory) Router() *ginrouter.Router { return f.router }

// Engine exposes the raw gin engine for registrations the adapter does not
// cover.
func (f *GinFactory) Engine() *gingonic.Engine { return f.router.Engine() }

// GorillaFactory configures the gorilla/mux engine.
type GorillaFactory struct {
	factoryState
	router *gorillarouter.Router
}

// NewGorillaFactory creates a factory around a fresh gorilla router.
func NewGorillaFactory() *GorillaFactory {
	r := gorillarouter.NewRouter()
	return &GorillaFactory{factoryState: newFactoryState(TypeGorilla, r), router: r}
}

// Router exposes the underlying adapter.
func (f *GorillaFactory) Router() *gorillarouter.Router { return f.router }

// Mux exposes the raw gorilla router for registrations the adapter does not
// cover.
func (f *GorillaFactory) Mux() *mux.Router { return f.router.Mux() }

// NewFactory creates the factory for the named engine type.
func NewFactory(t Type) (Factory, error) {
	switch t {
	case TypeNetHTTP:
		return NewNetHTTPFactory(), nil
	case TypeGin:
		return NewGinFactory(), nil
	case TypeGorilla:
		return NewGorillaFactory(), nil
	}
	return nil, fmt.Errorf("unknown engine type %q", t)
}
