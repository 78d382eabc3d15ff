package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRule is returned by NewChain for malformed rules.
var ErrInvalidRule = errors.New("invalid filter rule")

// RuleKind is the handling applied to a matched request.
type RuleKind uint8

const (
	// Anonymous passes the request through untouched.
	Anonymous RuleKind = iota
	// Authenticated requires a principal bound to the session.
	Authenticated
	// AuthenticatedAndPermitted additionally requires Rule.Permission, or
	// the request path when Permission is empty.
	AuthenticatedAndPermitted
	// Logout terminates the session, then passes the request through.
	Logout
)

var ruleKindNames = map[RuleKind]string{
	Anonymous:                 "anon",
	Authenticated:             "authc",
	AuthenticatedAndPermitted: "perms",
	Logout:                    "logout",
}

func (k RuleKind) String() string {
	if s, ok := ruleKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("RuleKind(%d)", uint8(k))
}

// ParseRuleKind accepts the short names used in configuration files.
func ParseRuleKind(s string) (RuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "anon", "anonymous":
		return Anonymous, nil
	case "authc", "authenticated":
		return Authenticated, nil
	case "perms", "authc,perms", "permitted":
		return AuthenticatedAndPermitted, nil
	case "logout":
		return Logout, nil
	}
	return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, s)
}

func (k RuleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *RuleKind) UnmarshalText(b []byte) error {
	v, err := ParseRuleKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Rule binds a path pattern to a handling kind.
type Rule struct {
	Pattern    string   `yaml:"pattern"`
	Kind       RuleKind `yaml:"kind"`
	Permission string   `yaml:"permission,omitempty"`
}

// DefaultRule applies to paths no configured rule matches.
func DefaultRule() Rule {
	return Rule{Pattern: "/**", Kind: AuthenticatedAndPermitted}
}

// DefaultRules is the stock chain of the admin console. The logout rule is
// listed ahead of the "/admin/**" anonymous rule so that it is reachable.
func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/admin/login", Kind: Anonymous},
		{Pattern: "/admin/logout", Kind: Logout},
		{Pattern: "/admin/**", Kind: Anonymous},
		{Pattern: "/api/v1/anon/**", Kind: Anonymous},
		{Pattern: "/static/**", Kind: Anonymous},
		{Pattern: "/healthz", Kind: Anonymous},
		{Pattern: "/**", Kind: AuthenticatedAndPermitted},
	}
}

// Chain evaluates rules in order; the first match wins.
type Chain struct {
	rules []Rule
	def   Rule
}

// NewChain validates rules and def. Patterns must be absolute.
func NewChain(rules []Rule, def Rule) (*Chain, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		out = append(out, r)
	}
	if def.Pattern == "" {
		def.Pattern = "/**"
	}
	if err := validateRule(def); err != nil {
		return nil, fmt.Errorf("default rule: %w", err)
	}
	return &Chain{rules: out, def: def}, nil
}

func validateRule(r Rule) error {
	if !strings.HasPrefix(r.Pattern, "/") {
		return fmt.Errorf("%w: pattern %q must start with '/'", ErrInvalidRule, r.Pattern)
	}
	if _, ok := ruleKindNames[r.Kind]; !ok {
		return fmt.Errorf("%w: kind %d", ErrInvalidRule, r.Kind)
	}
	if r.Permission != "" && r.Kind != AuthenticatedAndPermitted {
		return fmt.Errorf("%w: permission on %s rule %q", ErrInvalidRule, r.Kind, r.Pattern)
	}
	return nil
}

// Match returns the first rule whose pattern matches path, or the default.
func (c *Chain) Match(path string) Rule {
	for _, r := range c.rules {
		if MatchPath(r.Pattern, path) {
			return r
		}
	}
	return c.def
}

// Rules returns a copy of the ordered rules.
func (c *Chain) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
