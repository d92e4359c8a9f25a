package entity

import (
	"net/url"
	"strings"
)

const (
	UsernamePlaceholder = "{{username}}"
	PasswordPlaceholder = "{{password}}"
)

type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Fill replaces credential placeholders in text.
func (c Credential) Fill(text string) string {
	text = strings.ReplaceAll(text, UsernamePlaceholder, c.Username)
	return strings.ReplaceAll(text, PasswordPlaceholder, c.Password)
}

func HasCredentialPlaceholder(text string) bool {
	return strings.Contains(text, UsernamePlaceholder) || strings.Contains(text, PasswordPlaceholder)
}

// HostOf returns the hostname of rawURL without a leading "www.".
func HostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" && u.Scheme == "" {
		// bare domain such as "example.com/login"
		if u2, err := url.Parse("http://" + rawURL); err == nil {
			host = u2.Hostname()
		}
	}
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
