// Package api implements the platform REST client.
//
// Every call goes to https://{domain}/api/platform_user{path} with a cookie
// jar, so that the session cookie set by POST /sessions is sent back on
// later calls, and with a Bearer header whenever the config carries a token.
// Requests are throttled proactively with a token bucket.
package api
