package credential

import (
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const redacted = "xxxxx"

// RedactURI replaces the password of a MongoDB URI so it can be logged.
// Unparseable input is redacted entirely.
func RedactURI(uri string) string {
	if uri == "" {
		return ""
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return redacted
	}
	if parsed.User == nil {
		return uri
	}
	if _, ok := parsed.User.Password(); ok {
		parsed.User = url.UserPassword(parsed.User.Username(), redacted)
	}
	return parsed.String()
}

// Target is the credential-free part of a connection URI.
type Target struct {
	Hosts    []string
	Database string
	Scheme   string
}

// HostList joins the hosts with commas.
func (t Target) HostList() string {
	return strings.Join(t.Hosts, ",")
}

// ParseTarget validates a MongoDB URI and returns its hosts and path database.
func ParseTarget(uri string) (Target, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return Target{}, err
	}
	hosts := make([]string, len(cs.Hosts))
	copy(hosts, cs.Hosts)
	return Target{Hosts: hosts, Database: cs.Database, Scheme: cs.Scheme}, nil
}
