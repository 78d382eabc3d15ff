// Package httpapi serves the goRealm login surface over HTTP.
//
// Every response is an [Envelope] {code,msg,data}. Login accepts a form or
// a JSON body with loginName and password, answers with data.token and
// sets the session cookie unless the client sent its session id in the
// header. Login failures keep a 200 transport status and report the
// outcome in the envelope code.
package httpapi
