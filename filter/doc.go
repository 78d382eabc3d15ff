// Package filter decides, per request path, how much authentication a
// request needs.
//
// A [Chain] is an ordered list of [Rule]s with Ant-style patterns ('?' one
// character, '*' within one segment, '**' any number of segments). The
// first matching rule wins; unmatched paths get the chain's default rule.
// Enforcement lives in the middleware package.
package filter
