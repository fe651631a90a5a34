package fhir

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Bundle represents a FHIR Bundle resource.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Link         []BundleLink  `json:"link,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
	Timestamp    string        `json:"timestamp,omitempty"`
}

type BundleLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
	Search   *BundleSearch   `json:"search,omitempty"`
}

type BundleSearch struct {
	Mode  string   `json:"mode,omitempty"`
	Score *float64 `json:"score,omitempty"`
}

// ParseBundle decodes a Bundle and checks its resourceType.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.ResourceType != "" && b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected Bundle, got %s", b.ResourceType)
	}
	return &b, nil
}

// Resources decodes every entry resource in order. Entries without a
// resource, or whose resource is not a JSON object, are skipped.
func (b *Bundle) Resources() []Resource {
	if b == nil {
		return nil
	}
	out := make([]Resource, 0, len(b.Entry))
	for _, e := range b.Entry {
		if len(e.Resource) == 0 {
			continue
		}
		r, err := ParseResource(e.Resource)
		if err != nil || r == nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// NextLink returns the url of the "next" paging link or "".
func (b *Bundle) NextLink() string {
	if b == nil {
		return ""
	}
	for _, l := range b.Link {
		if l.Relation == "next" {
			return l.URL
		}
	}
	return ""
}

// First returns the first entry resource or nil.
func (b *Bundle) First() Resource {
	rs := b.Resources()
	if len(rs) == 0 {
		return nil
	}
	return rs[0]
}

// NewCollectionBundle wraps resources in a collection Bundle. Each entry gets
// a urn:uuid fullUrl.
func NewCollectionBundle(resources []interface{}) (*Bundle, error) {
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode bundle entry: %w", err)
		}
		entries = append(entries, BundleEntry{
			FullURL:  "urn:uuid:" + uuid.New().String(),
			Resource: raw,
		})
	}
	total := len(entries)
	return &Bundle{
		ResourceType: "Bundle",
		ID:           uuid.New().String(),
		Type:         "collection",
		Total:        &total,
		Timestamp:    FormatInstant(time.Now()),
		Entry:        entries,
	}, nil
}

// NewSearchBundle builds a searchset Bundle. Used by tests and fakes that
// stand in for a FHIR server.
func NewSearchBundle(resources ...Resource) *Bundle {
	entries := make([]BundleEntry, 0, len(resources))
	for _, r := range resources {
		raw, _ := json.Marshal(r)
		entries = append(entries, BundleEntry{
			Resource: raw,
			Search:   &BundleSearch{Mode: "match"},
		})
	}
	total := len(entries)
	return &Bundle{
		ResourceType: "Bundle",
		Type:         "searchset",
		Total:        &total,
		Entry:        entries,
	}
}
