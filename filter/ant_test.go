package filter

import "testing"

func TestMatchPath(t *testing.T) {
	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/login", "/admin/login", true},
		{"/admin/login", "/admin/login/", true},
		{"/admin/login", "/admin/logout", false},
		{"/admin/*", "/admin/login", true},
		{"/admin/*", "/admin/user/list", false},
		{"/admin/**", "/admin/user/list", true},
		{"/admin/**", "/admin", true},
		{"/**", "/", true},
		{"/**", "/anything/at/all", true},
		{"/static/**/*.js", "/static/js/app/main.js", true},
		{"/static/**/*.js", "/static/main.css", false},
		{"/user/?", "/user/1", true},
		{"/user/?", "/user/12", false},
		{"/user/*list", "/user/userlist", true},
		{"/api/**/detail", "/api/v1/order/detail", true},
		{"/api/**/detail", "/api/v1/order/summary", false},
	}
	for _, tt := range tests {
		if got := MatchPath(tt.pattern, tt.path); got != tt.want {
			t.Errorf("MatchPath(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}
