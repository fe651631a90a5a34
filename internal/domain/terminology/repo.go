package terminology

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("code not found")

// LOINCRepository provides access to LOINC reference codes.
type LOINCRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*LOINCCode, error)
	GetByCode(ctx context.Context, code string) (*LOINCCode, error)
}

// SNOMEDRepository provides access to SNOMED CT reference codes.
type SNOMEDRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*SNOMEDCode, error)
	GetByCode(ctx context.Context, code string) (*SNOMEDCode, error)
}

// RxNormRepository provides access to medication RxNorm codes.
type RxNormRepository interface {
	Search(ctx context.Context, query string, limit int) ([]*RxNormCode, error)
	GetByCode(ctx context.Context, code string) (*RxNormCode, error)
}

// -- built-in registries --

type loincRegistryRepo struct{}

// NewLOINCRegistry returns a repository over the built-in LOINC registry.
func NewLOINCRegistry() LOINCRepository { return loincRegistryRepo{} }

func (loincRegistryRepo) Search(_ context.Context, query string, limit int) ([]*LOINCCode, error) {
	q := strings.ToLower(query)
	var out []*LOINCCode
	for i := range loincRegistry {
		c := &loincRegistry[i]
		if matches(q, c.Key, c.Code, c.Display, textNameForKey(c.Key)) {
			cp := *c
			cp.SystemURI = SystemLOINC
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// GetByCode matches the code exactly or as a member of a comma list.
func (loincRegistryRepo) GetByCode(_ context.Context, code string) (*LOINCCode, error) {
	if c := findLOINC(code); c != nil {
		cp := *c
		cp.SystemURI = SystemLOINC
		return &cp, nil
	}
	return nil, ErrNotFound
}

type snomedRegistryRepo struct{}

func NewSNOMEDRegistry() SNOMEDRepository { return snomedRegistryRepo{} }

func (snomedRegistryRepo) Search(_ context.Context, query string, limit int) ([]*SNOMEDCode, error) {
	q := strings.ToLower(query)
	var out []*SNOMEDCode
	for i := range snomedRegistry {
		c := &snomedRegistry[i]
		if matches(q, c.Key, c.Code, c.Display) {
			cp := *c
			cp.SystemURI = SystemSNOMED
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (snomedRegistryRepo) GetByCode(_ context.Context, code string) (*SNOMEDCode, error) {
	for i := range snomedRegistry {
		if snomedRegistry[i].Code == code {
			cp := snomedRegistry[i]
			cp.SystemURI = SystemSNOMED
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type rxnormRegistryRepo struct{}

func NewRxNormRegistry() RxNormRepository { return rxnormRegistryRepo{} }

func (rxnormRegistryRepo) Search(_ context.Context, query string, limit int) ([]*RxNormCode, error) {
	q := strings.ToLower(query)
	var out []*RxNormCode
	for i := range rxnormRegistry {
		c := &rxnormRegistry[i]
		if matches(q, c.Key, c.Code, c.Display) {
			cp := *c
			cp.SystemURI = SystemRxNorm
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (rxnormRegistryRepo) GetByCode(_ context.Context, code string) (*RxNormCode, error) {
	for i := range rxnormRegistry {
		for _, c := range strings.Split(rxnormRegistry[i].Code, ",") {
			if c == code {
				cp := rxnormRegistry[i]
				cp.SystemURI = SystemRxNorm
				return &cp, nil
			}
		}
	}
	return nil, ErrNotFound
}

func matches(q string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}
