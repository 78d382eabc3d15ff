// Package middleware applies a goRealm filter chain to HTTP requests.
//
// [Access] resolves the session id of each request (header first, then
// cookie), loads the principal behind it and enforces the first matching
// filter rule:
//
//   - anonymous rules pass, with the principal attached when there is one;
//   - logout rules drop the session and expire the cookie, then pass;
//   - authenticated rules require a principal (OPTIONS pre-flights pass);
//   - permitted rules additionally require the rule's permission, or the
//     request path when the rule names none.
//
// All decisions are delegated to goRealm.Engine; this package only
// translates them into HTTP responses.
package middleware
