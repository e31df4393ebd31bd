package servlet

import (
	"context"
	"net/url"
)

// Request is the dispatcher's view of one dynamic call.
type Request struct {
	// Tool and Name locate the servlet; Extra is the path suffix after it.
	Tool  string
	Name  string
	Extra string

	Method    string
	Query     url.Values
	Body      []byte
	Principal string
}

// Response is what a handler produces; the dispatcher frames it onto the
// wire. Location is honored for 201/301/302 statuses.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
	Location    string
}

// Handler executes one HTTP method of a servlet.
type Handler func(ctx context.Context, req Request) (Response, error)

// Descriptor declares a servlet and, explicitly, which HTTP methods it
// implements. The dispatcher reads capabilities from here instead of
// probing the handler.
type Descriptor struct {
	Tool        string
	Name        string
	Description string

	OnGet    Handler
	OnPost   Handler
	OnPut    Handler
	OnDelete Handler
}

// Methods enumerates the declared verbs, in Allow-header order.
func (d Descriptor) Methods() []string {
	var methods []string
	if d.OnGet != nil {
		methods = append(methods, "GET")
	}
	if d.OnPost != nil {
		methods = append(methods, "POST")
	}
	if d.OnPut != nil {
		methods = append(methods, "PUT")
	}
	if d.OnDelete != nil {
		methods = append(methods, "DELETE")
	}
	return methods
}

// HandlerFor returns the handler declared for the method, or nil.
func (d Descriptor) HandlerFor(method string) Handler {
	switch method {
	case "GET":
		return d.OnGet
	case "POST":
		return d.OnPost
	case "PUT":
		return d.OnPut
	case "DELETE":
		return d.OnDelete
	}
	return nil
}
