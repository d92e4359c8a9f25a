package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestElementIndex_Lookup(t *testing.T) {
	idx := NewElementIndex(3, []PageElement{
		{BxID: "bx-1", Tag: "a", Text: "Home"},
		{BxID: "bx-2", Tag: "button", Text: "Go"},
	})

	el, ok := idx.Lookup("bx-2")
	assert.True(t, ok)
	assert.Equal(t, "Go", el.Text)

	_, ok = idx.Lookup("bx-9")
	assert.False(t, ok)

	var nilIdx *ElementIndex
	_, ok = nilIdx.Lookup("bx-1")
	assert.False(t, ok)
	assert.Equal(t, 0, nilIdx.Len())

	assert.Equal(t, `[data-bx-id="bx-2"][data-bx-gen="3"]`, idx.Selector("bx-2"))
}

func TestPageState_SignatureIgnoresIdentifiers(t *testing.T) {
	a := &PageState{URL: "https://example.com", Index: NewElementIndex(1, []PageElement{
		{BxID: "bx-1", Tag: "a", Role: RoleNotApplicable, Text: "Home", X: 10, Y: 20},
	})}
	b := &PageState{URL: "https://example.com", Index: NewElementIndex(2, []PageElement{
		{BxID: "bx-5", Tag: "a", Role: RoleNotApplicable, Text: "Home", X: 10, Y: 20},
	})}
	c := &PageState{URL: "https://example.com/next", Index: b.Index}

	assert.Equal(t, a.Signature(), b.Signature())
	assert.NotEqual(t, a.Signature(), c.Signature())
	assert.False(t, a.Empty())
	assert.True(t, (&PageState{URL: "about:blank"}).Empty())
}

func TestCredentialHelpers(t *testing.T) {
	assert.Equal(t, "example.com", HostOf("https://www.Example.com/login?x=1"))
	assert.Equal(t, "mail.example.com", HostOf("http://mail.example.com:8080"))
	assert.Equal(t, "example.com", HostOf("example.com/login"))
	assert.Equal(t, "", HostOf("about:blank"))

	c := Credential{Username: "bob", Password: "s3cret"}
	assert.True(t, HasCredentialPlaceholder("{{password}}"))
	assert.False(t, HasCredentialPlaceholder("plain"))
	assert.Equal(t, "bob / s3cret", c.Fill("{{username}} / {{password}}"))
}
