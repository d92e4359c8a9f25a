package entity

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// ElementIDAttr marks an extracted element in the live DOM.
	ElementIDAttr = "data-bx-id"
	// ElementGenAttr carries the extraction generation the id belongs to.
	ElementGenAttr = "data-bx-gen"

	RoleNotApplicable = "n/a"
	MaxElementText    = 150
)

// PageElement is one labeled element of a single observation.
type PageElement struct {
	BxID string  `json:"bx_id"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Text string  `json:"text"`
	Tag  string  `json:"tag"`
	Role string  `json:"role"`
}

// ElementIndex maps the identifiers of one extraction generation to their
// elements. An index is discarded on the next observation.
type ElementIndex struct {
	Generation int64
	Elements   []PageElement
	byID       map[string]int
}

func NewElementIndex(generation int64, elements []PageElement) *ElementIndex {
	idx := &ElementIndex{
		Generation: generation,
		Elements:   elements,
		byID:       make(map[string]int, len(elements)),
	}
	for i, el := range elements {
		idx.byID[el.BxID] = i
	}
	return idx
}

func (i *ElementIndex) Lookup(bxID string) (PageElement, bool) {
	if i == nil {
		return PageElement{}, false
	}
	pos, ok := i.byID[bxID]
	if !ok {
		return PageElement{}, false
	}
	return i.Elements[pos], true
}

func (i *ElementIndex) Len() int {
	if i == nil {
		return 0
	}
	return len(i.Elements)
}

// Signature describes the element set without its identifiers, so two
// extractions of an unchanged page compare equal.
func (i *ElementIndex) Signature() string {
	if i == nil {
		return ""
	}
	var sb strings.Builder
	for _, el := range i.Elements {
		sb.WriteString(el.Tag)
		sb.WriteByte('|')
		sb.WriteString(el.Role)
		sb.WriteByte('|')
		sb.WriteString(el.Text)
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatFloat(el.X, 'f', 0, 64))
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatFloat(el.Y, 'f', 0, 64))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Selector addresses an element of this generation in the DOM.
func (i *ElementIndex) Selector(bxID string) string {
	gen := int64(0)
	if i != nil {
		gen = i.Generation
	}
	return fmt.Sprintf(`[%s="%s"][%s="%d"]`, ElementIDAttr, bxID, ElementGenAttr, gen)
}

type Screenshot struct {
	Data   []byte
	Format string
	Width  int
	Height int
}

// PageState is the result of one observation.
type PageState struct {
	URL        string
	Title      string
	Index      *ElementIndex
	Screenshot *Screenshot
}

func (s *PageState) Empty() bool {
	return s == nil || s.Index.Len() == 0
}

// Signature identifies the observed state for stuck detection.
func (s *PageState) Signature() string {
	if s == nil {
		return ""
	}
	return s.URL + "\n" + s.Index.Signature()
}
