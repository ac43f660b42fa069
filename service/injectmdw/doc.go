// Package injectmdw is responsible for decorating HTML pages served by the
// origin with a rotating background image.
//
// The primary export is Injector, a negroni compatible middleware that
// inspects every response produced by the rest of the chain. Responses whose
// content type is not text/html are passed through untouched. HTML responses
// are streamed through a Rewriter which, without buffering the document:
//   - prepends the background container to the first <body> element
//   - appends the background stylesheet to the first <head> element
//   - appends the rotator script to the first <body> element
//
// The stylesheet and script are embedded assets rendered once into Snippets,
// so they can be tested independently of the rewriting.
package injectmdw
