package terminology

import (
	"context"
	"errors"
	"fmt"
)

// Service provides terminology lookup and validation operations over the
// built-in code registries.
type Service struct {
	loinc  LOINCRepository
	snomed SNOMEDRepository
	rxnorm RxNormRepository
}

// NewService creates a new terminology service.
func NewService(loinc LOINCRepository, snomed SNOMEDRepository, rxnorm RxNormRepository) *Service {
	return &Service{loinc: loinc, snomed: snomed, rxnorm: rxnorm}
}

// NewDefaultService wires the service to the built-in registries.
func NewDefaultService() *Service {
	return NewService(NewLOINCRegistry(), NewSNOMEDRegistry(), NewRxNormRegistry())
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

// -- LOINC --

// SearchLOINC searches LOINC codes by key, code, display or EHR text name.
func (s *Service) SearchLOINC(ctx context.Context, query string, limit int) ([]*LOINCCode, error) {
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	return s.loinc.Search(ctx, query, clampLimit(limit))
}

// LookupLOINC looks up a single LOINC code.
func (s *Service) LookupLOINC(ctx context.Context, code string) (*LOINCCode, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.loinc.GetByCode(ctx, code)
}

// Describe collects the names and conversion family of a LOINC code. Unknown
// codes still report their measurement type and format validity.
func (s *Service) Describe(code string) CodeInfo {
	return CodeInfo{
		Code:            code,
		Name:            GetLoincName(code),
		TextName:        GetTextNameByLoinc(code),
		MeasurementType: GetMeasurementType(code),
		ValidLOINC:      IsValidLoincCode(code),
	}
}

// -- SNOMED --

func (s *Service) SearchSNOMED(ctx context.Context, query string, limit int) ([]*SNOMEDCode, error) {
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	return s.snomed.Search(ctx, query, clampLimit(limit))
}

func (s *Service) LookupSNOMED(ctx context.Context, code string) (*SNOMEDCode, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.snomed.GetByCode(ctx, code)
}

// -- RxNorm --

func (s *Service) SearchRxNorm(ctx context.Context, query string, limit int) ([]*RxNormCode, error) {
	if query == "" {
		return nil, fmt.Errorf("query parameter is required")
	}
	return s.rxnorm.Search(ctx, query, clampLimit(limit))
}

func (s *Service) LookupRxNorm(ctx context.Context, code string) (*RxNormCode, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}
	return s.rxnorm.GetByCode(ctx, code)
}

// SearchCodes searches one code system and flattens the results.
func (s *Service) SearchCodes(ctx context.Context, system, query string, limit int) ([]SearchResult, error) {
	var out []SearchResult
	switch system {
	case SystemLOINC:
		res, err := s.SearchLOINC(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			out = append(out, SearchResult{Code: r.Code, Display: r.Display, SystemURI: r.SystemURI})
		}
	case SystemSNOMED:
		res, err := s.SearchSNOMED(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			out = append(out, SearchResult{Code: r.Code, Display: r.Display, SystemURI: r.SystemURI})
		}
	case SystemRxNorm:
		res, err := s.SearchRxNorm(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		for _, r := range res {
			out = append(out, SearchResult{Code: r.Code, Display: r.Display, SystemURI: r.SystemURI})
		}
	default:
		return nil, fmt.Errorf("unsupported code system: %s", system)
	}
	return out, nil
}

func (s *Service) display(ctx context.Context, system, code string) (string, error) {
	switch system {
	case SystemLOINC:
		c, err := s.loinc.GetByCode(ctx, code)
		if err != nil {
			return "", err
		}
		return c.Display, nil
	case SystemSNOMED:
		c, err := s.snomed.GetByCode(ctx, code)
		if err != nil {
			return "", err
		}
		return c.Display, nil
	case SystemRxNorm:
		c, err := s.rxnorm.GetByCode(ctx, code)
		if err != nil {
			return "", err
		}
		return c.Display, nil
	}
	return "", errUnsupportedSystem
}

var errUnsupportedSystem = errors.New("unsupported code system")

// -- FHIR Operations --

// Lookup implements the FHIR CodeSystem $lookup operation.
func (s *Service) Lookup(ctx context.Context, req *LookupRequest) (*LookupResponse, error) {
	if req.System == "" {
		return nil, fmt.Errorf("system is required")
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}

	display, err := s.display(ctx, req.System, req.Code)
	if errors.Is(err, errUnsupportedSystem) {
		return nil, fmt.Errorf("unsupported code system: %s", req.System)
	}
	if err != nil {
		return nil, fmt.Errorf("code not found in %s: %s", req.System, req.Code)
	}

	params := []LookupParameter{
		{Name: "name", ValueString: display},
		{Name: "display", ValueString: display},
	}
	if req.System == SystemLOINC {
		if text := GetTextNameByLoinc(req.Code); text != "" {
			params = append(params, LookupParameter{Name: "designation", ValueString: text})
		}
	}
	return &LookupResponse{ResourceType: "Parameters", Parameter: params}, nil
}

// ValidateCode implements the FHIR CodeSystem $validate-code operation.
func (s *Service) ValidateCode(ctx context.Context, req *ValidateCodeRequest) (*ValidateCodeResponse, error) {
	if req.System == "" {
		return nil, fmt.Errorf("system is required")
	}
	if req.Code == "" {
		return nil, fmt.Errorf("code is required")
	}

	display, err := s.display(ctx, req.System, req.Code)
	if errors.Is(err, errUnsupportedSystem) {
		return nil, fmt.Errorf("unsupported code system: %s", req.System)
	}
	found := err == nil

	result := found
	params := []ValidateCodeParameter{
		{Name: "result", ValueBoolean: &result},
	}
	if found {
		params = append(params, ValidateCodeParameter{Name: "display", ValueString: display})
	} else {
		params = append(params, ValidateCodeParameter{Name: "message", ValueString: fmt.Sprintf("code '%s' not found in system '%s'", req.Code, req.System)})
	}

	return &ValidateCodeResponse{
		ResourceType: "Parameters",
		Parameter:    params,
	}, nil
}
